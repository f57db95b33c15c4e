package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/models"
	"github.com/oguzkara/chatforge/internal/store"
	"gorm.io/datatypes"
)

type ChatHandler struct {
	store *store.ChatStore
}

func NewChatHandler(chatStore *store.ChatStore) *ChatHandler {
	return &ChatHandler{store: chatStore}
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	chats, err := h.store.ListChats(c.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("Failed to list chats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch chats",
		})
	}
	return c.JSON(fiber.Map{"chats": chats})
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var req struct {
		Title    string          `json:"title"`
		Category *string         `json:"category"`
		Tags     []string        `json:"tags"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	if req.Title == "" {
		req.Title = "New Chat"
	}

	chat := models.Chat{
		UserID:   middleware.UserID(c),
		Title:    req.Title,
		Category: req.Category,
	}
	if len(req.Tags) > 0 {
		encoded, _ := json.Marshal(req.Tags)
		chat.Tags = datatypes.JSON(encoded)
	}
	if len(req.Metadata) > 0 {
		chat.Metadata = datatypes.JSON(req.Metadata)
	}

	if err := h.store.CreateChat(c.Context(), &chat); err != nil {
		slog.Error("Failed to create chat", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create chat",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chat": chat})
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	chat, err := h.store.GetChat(c.Context(), middleware.UserID(c), chatID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Chat not found",
		})
	}
	if err != nil {
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

	return c.JSON(fiber.Map{
		"chat":          chat,
		"messages":      messages,
		"message_count": len(messages),
	})
}

func (h *ChatHandler) UpdateChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	var req struct {
		Title      *string          `json:"title"`
		Category   *string          `json:"category"`
		Tags       *[]string        `json:"tags"`
		IsFavorite *bool            `json:"is_favorite"`
		Metadata   *json.RawMessage `json:"metadata"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Tags != nil {
		encoded, _ := json.Marshal(*req.Tags)
		fields["tags"] = datatypes.JSON(encoded)
	}
	if req.IsFavorite != nil {
		fields["is_favorite"] = *req.IsFavorite
	}
	if req.Metadata != nil {
		fields["metadata"] = datatypes.JSON(*req.Metadata)
	}

	chat, err := h.store.UpdateChat(c.Context(), middleware.UserID(c), chatID, fields)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Chat not found",
		})
	}
	if err != nil {
		slog.Error("Failed to update chat", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to update chat",
		})
	}
	return c.JSON(fiber.Map{"chat": chat})
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	err = h.store.DeleteChat(c.Context(), middleware.UserID(c), chatID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Chat not found",
		})
	}
	if err != nil {
		slog.Error("Failed to delete chat", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to delete chat",
		})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Chat deleted"})
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	if _, err := h.store.GetChat(c.Context(), middleware.UserID(c), chatID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Chat not found",
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
	return c.JSON(fiber.Map{"messages": messages})
}

// CreateMessage appends a message without invoking the AI. The upload flow
// uses this to create the user message before attaching files, then sends
// the turn with skip_user_message set.
func (h *ChatHandler) CreateMessage(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}

	var req struct {
		Role     string          `json:"role"`
		Content  string          `json:"content"`
		Model    *string         `json:"model"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !models.ValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid message role",
		})
	}

	if _, err := h.store.GetChat(c.Context(), middleware.UserID(c), chatID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Chat not found",
		})
	}

	msg := models.Message{
		ChatID:  chatID,
		Role:    req.Role,
		Content: req.Content,
		Model:   req.Model,
	}
	if len(req.Metadata) > 0 {
		msg.Metadata = datatypes.JSON(req.Metadata)
	}

	if err := h.store.InsertMessage(c.Context(), &msg); err != nil {
		slog.Error("Failed to save message", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save message",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}
