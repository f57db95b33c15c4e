package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oguzkara/chatforge/internal/models"
)

// renderJSON emits the structured export. Optional fields are omitted
// entirely rather than nulled so the output stays minimal.
func renderJSON(chat models.Chat, messages []models.Message, opts Options, exportedAt time.Time) (string, error) {
	chatOut := map[string]interface{}{
		"id":    chat.ID,
		"title": chat.Title,
	}
	if opts.IncludeMetadata {
		chatOut["category"] = chat.Category
		chatOut["is_favorite"] = chat.IsFavorite
		if len(chat.Tags) > 0 {
			chatOut["tags"] = json.RawMessage(chat.Tags)
		}
		if len(chat.Metadata) > 0 {
			chatOut["metadata"] = json.RawMessage(chat.Metadata)
		}
	}
	if opts.IncludeTimestamps {
		chatOut["created_at"] = chat.CreatedAt
		chatOut["updated_at"] = chat.UpdatedAt
	}

	msgsOut := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		m := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}
		if opts.IncludeMetadata {
			m["tokens_used"] = msg.TokensUsed
			m["model"] = msg.Model
		}
		if opts.IncludeTimestamps {
			m["created_at"] = msg.CreatedAt
		}
		msgsOut = append(msgsOut, m)
	}

	out := map[string]interface{}{
		"chat":        chatOut,
		"messages":    msgsOut,
		"exported_at": exportedAt,
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	return string(encoded), nil
}
