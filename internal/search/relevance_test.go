package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestRelevanceTiers(t *testing.T) {
	require.Equal(t, 1.0, Relevance("Go Tutorial", "go tutorial"))
	require.Equal(t, 0.9, Relevance("Go Tutorial for beginners", "go tutorial"))
	require.Equal(t, 0.7, Relevance("A complete Go Tutorial", "go tutorial"))

	// Word-fraction tier: one of two query words present.
	require.InDelta(t, 0.25, Relevance("all about tutorials and guides", "go tutorial"), 1e-9)

	require.Zero(t, Relevance("", "query"))
	require.Zero(t, Relevance("text", ""))
	require.Zero(t, Relevance("nothing in common", "zebra"))
}

func TestRelevanceOrdersTiers(t *testing.T) {
	q := "deploy"
	exact := Relevance("deploy", q)
	prefix := Relevance("deploy to prod", q)
	contains := Relevance("how to deploy", q)
	require.Greater(t, exact, prefix)
	require.Greater(t, prefix, contains)
}

func TestHighlightShortText(t *testing.T) {
	require.Equal(t, "short text", Highlight("short text", "text"))
	// No verbatim occurrence keeps the full text.
	require.Equal(t, "some words", Highlight("some words", "missing"))
}

func TestHighlightWindowsLongText(t *testing.T) {
	long := strings.Repeat("a", 300) + "NEEDLE" + strings.Repeat("b", 300)

	got := Highlight(long, "needle")
	require.True(t, strings.HasPrefix(got, "..."))
	require.True(t, strings.HasSuffix(got, "..."))
	require.Contains(t, got, "NEEDLE")
	// 100 chars of context on both sides plus the match and markers.
	require.Len(t, got, 100+len("NEEDLE")+100+6)
}

func TestHighlightLengthChangingFold(t *testing.T) {
	// "İ" (U+0130) lowercases to a longer byte sequence; the match offset
	// must still land on NEEDLE in the original bytes.
	text := strings.Repeat("İ", 50) + "NEEDLE" + strings.Repeat("z", 50)
	got := Highlight(text, "needle")
	require.Contains(t, got, "NEEDLE")
	require.True(t, utf8.ValidString(got))
}

func TestHighlightKeepsRuneBoundaries(t *testing.T) {
	// Two-byte runes on both sides put the window edges mid-rune unless
	// they are clamped.
	text := "a" + strings.Repeat("ж", 200) + "NEEDLE" + strings.Repeat("ю", 200)
	got := Highlight(text, "needle")
	require.True(t, strings.HasPrefix(got, "..."))
	require.True(t, strings.HasSuffix(got, "..."))
	require.Contains(t, got, "NEEDLE")
	require.True(t, utf8.ValidString(got))
}

func TestHighlightAtTextStart(t *testing.T) {
	long := "NEEDLE" + strings.Repeat("x", 300)
	got := Highlight(long, "needle")
	require.False(t, strings.HasPrefix(got, "..."))
	require.True(t, strings.HasSuffix(got, "..."))
}
