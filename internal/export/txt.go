package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/oguzkara/chatforge/internal/models"
)

const bannerWidth = 60

func renderTXT(chat models.Chat, messages []models.Message, opts Options, exportedAt time.Time) string {
	var lines []string
	banner := strings.Repeat("=", bannerWidth)
	divider := strings.Repeat("-", bannerWidth)

	title := chat.Title
	if title == "" {
		title = "Untitled Chat"
	}
	lines = append(lines, banner, title, banner, "")

	if opts.IncludeMetadata {
		if chat.Category != nil && *chat.Category != "" {
			lines = append(lines, "Category: "+*chat.Category)
		}
		if tags := tagList(chat); len(tags) > 0 {
			lines = append(lines, "Tags: "+strings.Join(tags, ", "))
		}
		lines = append(lines, "")
	}

	if opts.IncludeTimestamps {
		lines = append(lines,
			"Created: "+formatDate(&chat.CreatedAt),
			"Updated: "+formatDate(&chat.UpdatedAt),
			"Exported: "+formatDate(&exportedAt),
			"")
	}

	lines = append(lines, divider, "")

	for i, msg := range messages {
		lines = append(lines, "["+strings.ToUpper(roleLabel(msg.Role))+"]")
		if opts.IncludeTimestamps {
			lines = append(lines, "Time: "+formatDate(&msg.CreatedAt))
		}
		lines = append(lines, "", msg.Content, "")

		if opts.IncludeMetadata && msg.TokensUsed != nil {
			meta := fmt.Sprintf("(Tokens: %d", *msg.TokensUsed)
			if msg.Model != nil {
				meta += " | Model: " + *msg.Model
			}
			lines = append(lines, meta+")")
		}

		if i < len(messages)-1 {
			lines = append(lines, divider, "")
		}
	}

	lines = append(lines, banner,
		"End of chat - Exported at "+formatDate(&exportedAt),
		banner)

	return strings.Join(lines, "\n")
}
