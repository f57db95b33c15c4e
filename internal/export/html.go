package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/oguzkara/chatforge/internal/models"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

const htmlStyles = `
@page { margin: 2cm; }
body {
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Helvetica', 'Arial', sans-serif;
  line-height: 1.6;
  color: #333;
  max-width: 800px;
  margin: 0 auto;
  padding: 20px;
}
h1 { color: #2563eb; border-bottom: 3px solid #2563eb; padding-bottom: 10px; margin-bottom: 30px; }
h2 { color: #1e40af; margin-top: 30px; margin-bottom: 15px; }
.metadata { background-color: #f3f4f6; padding: 15px; border-radius: 8px; margin-bottom: 30px; }
.metadata p { margin: 5px 0; }
.message { margin-bottom: 30px; padding: 15px; border-radius: 8px; page-break-inside: avoid; }
.message.user { background-color: #eff6ff; border-left: 4px solid #2563eb; }
.message.assistant { background-color: #f9fafb; border-left: 4px solid #6b7280; }
.message.system { background-color: #fef3c7; border-left: 4px solid #f59e0b; }
.message-role { font-weight: bold; color: #1f2937; margin-bottom: 8px; font-size: 14px; text-transform: uppercase; }
.message-timestamp { font-size: 12px; color: #6b7280; margin-bottom: 8px; }
.message-content { white-space: pre-wrap; word-wrap: break-word; }
.message-meta { font-size: 12px; color: #6b7280; margin-top: 10px; font-style: italic; }
.footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #e5e7eb; text-align: center; color: #6b7280; font-size: 12px; }
@media print { body { padding: 0; } .no-print { display: none; } }
`

// renderHTML produces a standalone document styled for print-to-PDF.
func renderHTML(chat models.Chat, messages []models.Message, opts Options, exportedAt time.Time) string {
	var lines []string

	title := chat.Title
	if title == "" {
		title = "Untitled Chat"
	}

	lines = append(lines,
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<head>",
		`<meta charset="UTF-8">`,
		`<meta name="viewport" content="width=device-width, initial-scale=1.0">`,
		"<title>"+escapeHTML(title)+"</title>",
		"<style>", htmlStyles, "</style>",
		"</head>",
		"<body>",
		"<h1>"+escapeHTML(title)+"</h1>")

	if opts.IncludeMetadata {
		lines = append(lines, `<div class="metadata">`, "<h2>Chat Information</h2>")
		if chat.Category != nil && *chat.Category != "" {
			lines = append(lines, "<p><strong>Category:</strong> "+escapeHTML(*chat.Category)+"</p>")
		}
		if tags := tagList(chat); len(tags) > 0 {
			escaped := make([]string, len(tags))
			for i, t := range tags {
				escaped[i] = escapeHTML(t)
			}
			lines = append(lines, "<p><strong>Tags:</strong> "+strings.Join(escaped, ", ")+"</p>")
		}
		if chat.IsFavorite {
			lines = append(lines, "<p><strong>Favorite:</strong> Yes</p>")
		}
		lines = append(lines, "</div>")
	}

	if opts.IncludeTimestamps {
		lines = append(lines, `<div class="metadata">`,
			"<p><strong>Created:</strong> "+formatDate(&chat.CreatedAt)+"</p>",
			"<p><strong>Last Updated:</strong> "+formatDate(&chat.UpdatedAt)+"</p>",
			"<p><strong>Exported:</strong> "+formatDate(&exportedAt)+"</p>",
			"</div>")
	}

	lines = append(lines, "<h2>Conversation</h2>")

	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf(`<div class="message %s">`, strings.ToLower(msg.Role)),
			`<div class="message-role">`+escapeHTML(roleLabel(msg.Role))+"</div>")
		if opts.IncludeTimestamps {
			lines = append(lines, `<div class="message-timestamp">`+formatDate(&msg.CreatedAt)+"</div>")
		}
		lines = append(lines, `<div class="message-content">`+escapeHTML(msg.Content)+"</div>")
		if opts.IncludeMetadata && msg.TokensUsed != nil {
			meta := fmt.Sprintf("Tokens: %d", *msg.TokensUsed)
			if msg.Model != nil {
				meta += " | Model: " + escapeHTML(*msg.Model)
			}
			lines = append(lines, `<div class="message-meta">`+meta+"</div>")
		}
		lines = append(lines, "</div>")
	}

	lines = append(lines,
		`<div class="footer">`,
		"<p>Chat exported on "+formatDate(&exportedAt)+"</p>",
		`<p class="no-print"><button onclick="window.print()">Print to PDF</button></p>`,
		"</div>",
		"</body>",
		"</html>")

	return strings.Join(lines, "\n")
}
