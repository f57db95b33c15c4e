package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Relevance scores how well text matches query, in [0,1]. Tiers: exact
// equality 1.0, prefix 0.9, substring 0.7, else the fraction of query
// words individually contained scaled by 0.5. Case-insensitive. Not a
// probability, just a ranking heuristic.
func Relevance(text, query string) float64 {
	if text == "" || query == "" {
		return 0
	}

	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	if lowerText == lowerQuery {
		return 1.0
	}
	if strings.HasPrefix(lowerText, lowerQuery) {
		return 0.9
	}
	if strings.Contains(lowerText, lowerQuery) {
		return 0.7
	}

	words := strings.Fields(lowerQuery)
	if len(words) == 0 {
		return 0
	}
	matched := 0
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(words)) * 0.5
}

// highlightContext is how many characters of context surround the first
// match in a highlight excerpt.
const highlightContext = 100

// Highlight extracts the window around the first occurrence of query in
// text, with ellipsis markers on truncated sides. Falls back to the full
// text when the query does not occur verbatim.
func Highlight(text, query string) string {
	if text == "" || query == "" {
		return text
	}

	start, end := foldIndex(text, query)
	if start < 0 {
		return text
	}

	lo := start - highlightContext
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	hi := end + highlightContext
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}

	excerpt := text[lo:hi]
	if lo > 0 {
		excerpt = "..." + excerpt
	}
	if hi < len(text) {
		excerpt = excerpt + "..."
	}
	return excerpt
}

// foldIndex reports the byte range [start,end) in text of the first
// case-insensitive occurrence of query, or (-1,-1). Matching is rune by
// rune so the offsets stay correct when case folding changes byte length.
func foldIndex(text, query string) (int, int) {
	runes := []rune(query)
	if len(runes) == 0 {
		return -1, -1
	}
	for i := range text {
		pos := i
		matched := 0
		for matched < len(runes) {
			r, size := utf8.DecodeRuneInString(text[pos:])
			if size == 0 || unicode.ToLower(r) != unicode.ToLower(runes[matched]) {
				break
			}
			pos += size
			matched++
		}
		if matched == len(runes) {
			return i, pos
		}
	}
	return -1, -1
}
