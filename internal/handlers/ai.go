package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/oguzkara/chatforge/internal/ai"
	"github.com/oguzkara/chatforge/internal/config"
	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/models"
	"github.com/oguzkara/chatforge/internal/relay"
	"github.com/oguzkara/chatforge/internal/store"
)

type AIHandler struct {
	cfg    *config.Config
	store  *store.ChatStore
	client *ai.Client
	relay  *relay.Relay
}

func NewAIHandler(cfg *config.Config, chatStore *store.ChatStore, client *ai.Client) *AIHandler {
	return &AIHandler{
		cfg:    cfg,
		store:  chatStore,
		client: client,
		relay:  relay.New(chatStore, relay.NewClientCompleter(client)),
	}
}

type streamRequest struct {
	ChatID          string   `json:"chat_id"`
	Content         string   `json:"content"`
	AttachmentURLs  []string `json:"attachment_urls"`
	Model           string   `json:"model"`
	SkipUserMessage bool     `json:"skip_user_message"`
}

// buildSendRequest validates ownership and assembles the relay request.
func (h *AIHandler) buildSendRequest(ctx context.Context, userID uuid.UUID, req streamRequest) (relay.SendRequest, int, error) {
	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		return relay.SendRequest{}, fiber.StatusBadRequest, errors.New("invalid chat ID")
	}
	if _, err := h.store.GetChat(ctx, userID, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return relay.SendRequest{}, fiber.StatusNotFound, errors.New("chat not found")
		}
		return relay.SendRequest{}, fiber.StatusInternalServerError, errors.New("failed to fetch chat")
	}

	model := req.Model
	if model == "" {
		model = h.cfg.DefaultModel
	}

	return relay.SendRequest{
		ChatID:          chatID,
		UserText:        req.Content,
		AttachmentURLs:  req.AttachmentURLs,
		ModelHint:       model,
		SkipUserPersist: req.SkipUserMessage,
	}, 0, nil
}

// ChatStream answers one user turn as a chunked event stream: chunk frames
// in provider order, then a single done or error frame.
func (h *AIHandler) ChatStream(c *fiber.Ctx) error {
	var req streamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	sendReq, status, err := h.buildSendRequest(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": true, "message": err.Error()})
	}

	prepared, err := h.relay.Prepare(c.Context(), sendReq)
	if errors.Is(err, relay.ErrEmptyTurn) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
	if err != nil {
		slog.Error("Relay prepare failed", "error", err, "chat_id", sendReq.ChatID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	streamRelay := h.relay
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The request context is gone once the handler returns; the
		// stream runs on its own lifetime and ends with the provider.
		sink := func(event relay.Event) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		}
		if err := streamRelay.Stream(context.Background(), prepared, sink); err != nil {
			slog.Error("Chat stream ended with error", "error", err)
		}
	})

	return nil
}

// UpgradeCheck gates the websocket route on an actual upgrade request.
func (h *AIHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// ChatStreamWS is the websocket variant of ChatStream: the client sends one
// JSON request, the server answers with the same chunk/done/error events as
// JSON messages.
func (h *AIHandler) ChatStreamWS() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(uuid.UUID)

		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			conn.WriteJSON(relay.Event{Type: relay.EventError, Message: "Invalid request"})
			return
		}

		ctx := context.Background()
		sendReq, _, err := h.buildSendRequest(ctx, userID, req)
		if err != nil {
			conn.WriteJSON(relay.Event{Type: relay.EventError, Message: err.Error()})
			return
		}

		prepared, err := h.relay.Prepare(ctx, sendReq)
		if err != nil {
			conn.WriteJSON(relay.Event{Type: relay.EventError, Message: err.Error()})
			return
		}

		sink := func(event relay.Event) error {
			return conn.WriteJSON(event)
		}
		if err := h.relay.Stream(ctx, prepared, sink); err != nil {
			slog.Error("Websocket chat stream ended with error", "error", err)
		}
	})
}

// Complete answers one user turn without streaming, using the retry helper
// around the provider call. Exact token usage comes back from the provider
// here, so no estimation is involved.
func (h *AIHandler) Complete(c *fiber.Ctx) error {
	var req struct {
		ChatID  string `json:"chat_id"`
		Content string `json:"content"`
		Model   string `json:"model"`
	}
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Message content is required",
		})
	}

	chatID, err := uuid.Parse(req.ChatID)
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

	model := relay.SelectModel(orDefault(req.Model, h.cfg.DefaultModel), nil)

	userMsg := models.Message{
		ChatID:  chatID,
		Role:    models.RoleUser,
		Content: req.Content,
		Model:   &model,
	}
	if err := h.store.InsertMessage(c.Context(), &userMsg); err != nil {
		slog.Error("Failed to save user message", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save message",
		})
	}

	history, err := h.store.ListMessages(c.Context(), chatID)
	if err != nil {
		slog.Error("Failed to fetch messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch messages",
		})
	}

	turns := make([]ai.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, ai.TextTurn(msg.Role, msg.Content))
	}

	ctx := c.Context()
	result, err := ai.WithRetry(ctx, func() (*ai.Result, error) {
		return h.client.Complete(ctx, turns, model, ai.Options{})
	}, 3, time.Second)
	if err != nil {
		var provErr *ai.ProviderError
		if errors.As(err, &provErr) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": provErr.Message,
			})
		}
		slog.Error("Completion failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": "AI service unavailable",
		})
	}

	tokens := result.TotalTokens
	assistantMsg := models.Message{
		ChatID:     chatID,
		Role:       models.RoleAssistant,
		Content:    result.Content,
		TokensUsed: &tokens,
		Model:      &model,
	}
	if err := h.store.InsertMessage(c.Context(), &assistantMsg); err != nil {
		slog.Error("Failed to save assistant message", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save assistant message",
		})
	}

	return c.JSON(fiber.Map{
		"response":      result.Content,
		"model":         result.Model,
		"tokens_used":   result.TotalTokens,
		"finish_reason": result.FinishReason,
		"cost_estimate": ai.CalculateCost(model, result.PromptTokens, result.CompletionTokens),
	})
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
