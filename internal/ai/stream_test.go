package ai

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseBody(lines ...string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func drain(t *testing.T, s *Stream) []Fragment {
	t.Helper()
	var frags []Fragment
	for {
		frag, err := s.Recv()
		if err == io.EOF {
			return frags
		}
		require.NoError(t, err)
		frags = append(frags, frag)
	}
}

func TestStreamRecvParsesFragments(t *testing.T) {
	s := newStream(sseBody(
		`data: {"choices":[{"delta":{"content":"Hel"},"finish_reason":null}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"lo"},"finish_reason":null}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	))

	frags := drain(t, s)
	require.Equal(t, []Fragment{
		{Content: "Hel"},
		{Content: "lo"},
		{FinishReason: "stop"},
	}, frags)

	// Terminal: every Recv after EOF stays EOF.
	_, err := s.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamRecvQueuesFinishBehindContent(t *testing.T) {
	// Some providers pack the last token and the finish reason into one chunk.
	s := newStream(sseBody(
		`data: {"choices":[{"delta":{"content":"bye"},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	))

	frags := drain(t, s)
	require.Equal(t, []Fragment{
		{Content: "bye"},
		{FinishReason: "stop"},
	}, frags)
}

func TestStreamRecvSkipsNoise(t *testing.T) {
	s := newStream(sseBody(
		`: keepalive comment`,
		`event: message`,
		`data: not-json`,
		`data: {"choices":[]}`,
		`data: {"choices":[{"delta":{"content":"ok"},"finish_reason":null}]}`,
		`data: [DONE]`,
	))

	frags := drain(t, s)
	require.Equal(t, []Fragment{{Content: "ok"}}, frags)
}

func TestStreamRecvEOFWithoutDoneMarker(t *testing.T) {
	// A connection that drops before [DONE] yields EOF with no finish reason;
	// callers treat that as a truncated stream.
	s := newStream(sseBody(
		`data: {"choices":[{"delta":{"content":"par"},"finish_reason":null}]}`,
	))

	frags := drain(t, s)
	require.Equal(t, []Fragment{{Content: "par"}}, frags)
}
