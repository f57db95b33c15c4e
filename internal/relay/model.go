package relay

import (
	"path"
	"strings"

	"github.com/oguzkara/chatforge/internal/ai"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var documentExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// SelectModel picks the provider model for a turn. Images force the
// multimodal tier; documents (or a base-tier hint) upgrade to the
// large-context tier so injected document text does not overflow the
// context window. Any other hint passes through unchanged.
func SelectModel(hint string, attachmentURLs []string) string {
	if hint == "" {
		hint = ai.ModelGPT4
	}

	if len(filterByExt(attachmentURLs, imageExts)) > 0 {
		return ai.ModelGPT4o
	}
	if len(filterByExt(attachmentURLs, documentExts)) > 0 || hint == ai.ModelGPT4 {
		return ai.ModelGPT4o
	}
	return hint
}

func filterByExt(urls []string, exts map[string]bool) []string {
	var matched []string
	for _, u := range urls {
		// Strip any query string before looking at the extension
		clean := u
		if i := strings.IndexByte(clean, '?'); i >= 0 {
			clean = clean[:i]
		}
		if exts[strings.ToLower(path.Ext(clean))] {
			matched = append(matched, u)
		}
	}
	return matched
}
