package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/oguzkara/chatforge/internal/export"
	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/store"
)

type ExportHandler struct {
	store *store.ChatStore
}

func NewExportHandler(chatStore *store.ChatStore) *ExportHandler {
	return &ExportHandler{store: chatStore}
}

// Export renders a chat transcript as a downloadable document. The format
// comes from the query string and defaults to JSON; metadata and timestamps
// are included unless switched off.
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	format, err := export.ParseFormat(c.Query("format", string(export.FormatJSON)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}

	chat, err := h.store.GetChat(c.Context(), middleware.UserID(c), chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   true,
				"message": "Chat not found",
			})
		}
		slog.Error("Failed to fetch chat", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch chat",
		})
	}

	messages, err := h.store.ListMessages(c.Context(), chatID)
	if err != nil {
		slog.Error("Failed to fetch messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch messages",
		})
	}

	result, err := export.ExportChat(*chat, messages, export.Options{
		Format:            format,
		IncludeMetadata:   c.QueryBool("metadata", true),
		IncludeTimestamps: c.QueryBool("timestamps", true),
	})
	if err != nil {
		if errors.Is(err, export.ErrNoMessages) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Chat has no messages to export",
			})
		}
		slog.Error("Export failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Export failed",
		})
	}

	c.Set("Content-Type", export.ContentType(result.Format))
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	return c.SendString(result.Content)
}
