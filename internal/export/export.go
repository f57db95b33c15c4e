// Package export renders a chat transcript into downloadable text formats.
// All renderers share one input shape and differ only in templating.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oguzkara/chatforge/internal/models"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTXT      Format = "txt"
	// FormatPDF produces an HTML document styled for print-to-PDF.
	FormatPDF Format = "pdf"
)

var (
	ErrNoMessages        = errors.New("cannot export chat with no messages")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

type Options struct {
	Format            Format
	IncludeMetadata   bool
	IncludeTimestamps bool
}

type Result struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
	Format   Format `json:"format"`
}

// ParseFormat validates a caller-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatMarkdown, FormatTXT, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ExportChat renders the transcript. Fails on an empty message list for
// every format.
func ExportChat(chat models.Chat, messages []models.Message, opts Options) (*Result, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	exportedAt := time.Now()

	var content, ext string
	var err error
	switch opts.Format {
	case FormatJSON:
		content, err = renderJSON(chat, messages, opts, exportedAt)
		ext = "json"
	case FormatMarkdown:
		content = renderMarkdown(chat, messages, opts, exportedAt)
		ext = "md"
	case FormatTXT:
		content = renderTXT(chat, messages, opts, exportedAt)
		ext = "txt"
	case FormatPDF:
		content = renderHTML(chat, messages, opts, exportedAt)
		ext = "html"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Filename: Filename(chat, ext, exportedAt),
		Content:  content,
		Size:     len(content),
		Format:   opts.Format,
	}, nil
}

// ContentType returns the response content type for a format.
func ContentType(format Format) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown"
	case FormatTXT:
		return "text/plain"
	case FormatPDF:
		return "text/html"
	}
	return "text/plain"
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives a path-safe name: slugified length-capped title, export
// date and a short id fragment.
func Filename(chat models.Chat, ext string, exportedAt time.Time) string {
	title := chat.Title
	if title == "" {
		title = "untitled-chat"
	}
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "untitled-chat"
	}

	date := exportedAt.Format("2006-01-02")
	idFragment := chat.ID.String()[:8]
	return fmt.Sprintf("%s-%s-%s.%s", slug, date, idFragment, ext)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("January 2, 2006, 3:04 PM")
}

func roleLabel(role string) string {
	switch role {
	case models.RoleUser:
		return "You"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	}
	return role
}
