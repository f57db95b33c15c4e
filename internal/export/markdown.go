package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oguzkara/chatforge/internal/models"
)

func tagList(chat models.Chat) []string {
	if len(chat.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(chat.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

func renderMarkdown(chat models.Chat, messages []models.Message, opts Options, exportedAt time.Time) string {
	var lines []string

	title := chat.Title
	if title == "" {
		title = "Untitled Chat"
	}
	lines = append(lines, "# "+title, "")

	if opts.IncludeMetadata {
		lines = append(lines, "## Metadata", "")
		if chat.Category != nil && *chat.Category != "" {
			lines = append(lines, fmt.Sprintf("**Category:** %s", *chat.Category))
		}
		if tags := tagList(chat); len(tags) > 0 {
			lines = append(lines, fmt.Sprintf("**Tags:** %s", strings.Join(tags, ", ")))
		}
		if chat.IsFavorite {
			lines = append(lines, "**Favorite:** Yes")
		}
		lines = append(lines, "")
	}

	if opts.IncludeTimestamps {
		lines = append(lines,
			fmt.Sprintf("**Created:** %s", formatDate(&chat.CreatedAt)),
			fmt.Sprintf("**Updated:** %s", formatDate(&chat.UpdatedAt)),
			fmt.Sprintf("**Exported:** %s", formatDate(&exportedAt)),
			"")
	}

	lines = append(lines, "---", "", "## Conversation", "")

	for i, msg := range messages {
		lines = append(lines, "### "+roleLabel(msg.Role))
		if opts.IncludeTimestamps {
			lines = append(lines, fmt.Sprintf("*%s*", formatDate(&msg.CreatedAt)), "")
		}
		lines = append(lines, msg.Content, "")

		if opts.IncludeMetadata && msg.TokensUsed != nil {
			meta := fmt.Sprintf("*Tokens: %d", *msg.TokensUsed)
			if msg.Model != nil {
				meta += " | Model: " + *msg.Model
			}
			lines = append(lines, meta+"*", "")
		}

		if i < len(messages)-1 {
			lines = append(lines, "---", "")
		}
	}

	return strings.Join(lines, "\n")
}
