package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/oguzkara/chatforge/internal/config"
	"github.com/oguzkara/chatforge/internal/extract"
	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/models"
	"github.com/oguzkara/chatforge/internal/storage"
	"github.com/oguzkara/chatforge/internal/store"
)

// allowedUploadExts is the accepted attachment surface: images for vision
// turns, documents for text injection.
var allowedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".md": true,
	".csv": true, ".json": true, ".xml": true, ".html": true,
}

type UploadHandler struct {
	cfg   *config.Config
	store *store.ChatStore
	blobs storage.BlobStore
}

func NewUploadHandler(cfg *config.Config, chatStore *store.ChatStore, blobs storage.BlobStore) *UploadHandler {
	return &UploadHandler{cfg: cfg, store: chatStore, blobs: blobs}
}

// Upload stores one file for a chat: the blob goes to disk, a user message
// carrying the attachment goes to the database, and document text is
// extracted up front so the relay can inject it without re-reading files.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	chatID, err := uuid.Parse(c.FormValue("chat_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid chat ID",
		})
	}
	if _, err := h.store.GetChat(c.Context(), userID, chatID); err != nil {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "File is required",
		})
	}

	maxBytes := int64(h.cfg.MaxUploadMB) << 20
	if fileHeader.Size > maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error":   true,
			"message": fmt.Sprintf("File exceeds the %d MB limit", h.cfg.MaxUploadMB),
		})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedUploadExts[ext] {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error":   true,
			"message": "Unsupported file type",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		slog.Error("Failed to open upload", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to read file",
		})
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		slog.Error("Failed to read upload", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to read file",
		})
	}

	effectiveType := extract.EffectiveType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename, data)

	relPath := filepath.Join(chatID.String(), uuid.NewString()+ext)
	if err := h.blobs.Save(c.Context(), relPath, data); err != nil {
		slog.Error("Failed to store upload", "error", err, "path", relPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to store file",
		})
	}

	meta := fiber.Map{"effective_type": effectiveType}
	if text, ok := extract.Extract(data, effectiveType, fileHeader.Filename); ok {
		meta["extracted_text"] = text
	}
	metaJSON, _ := json.Marshal(meta)

	msg := models.Message{
		ChatID:  chatID,
		Role:    models.RoleUser,
		Content: c.FormValue("content"),
	}
	attachment := models.Attachment{
		FileName:    fileHeader.Filename,
		FileType:    effectiveType,
		FileSize:    fileHeader.Size,
		StoragePath: h.blobs.URL(relPath),
		Metadata:    datatypes.JSON(metaJSON),
	}
	if width, height, ok := imageDimensions(data); ok {
		attachment.Width = &width
		attachment.Height = &height
	}

	if err := h.store.InsertMessage(c.Context(), &msg); err != nil {
		h.compensate(c, relPath)
		slog.Error("Failed to save upload message", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save message",
		})
	}
	attachment.MessageID = msg.ID
	if err := h.store.InsertAttachment(c.Context(), &attachment); err != nil {
		h.compensate(c, relPath)
		slog.Error("Failed to save attachment", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save attachment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message_id": msg.ID,
		"attachment": attachment,
		"url":        attachment.StoragePath,
	})
}

// compensate removes an orphaned blob after a failed database write.
func (h *UploadHandler) compensate(c *fiber.Ctx, relPath string) {
	if err := h.blobs.Remove(c.Context(), relPath); err != nil {
		slog.Warn("Failed to remove orphaned upload", "error", err, "path", relPath)
	}
}

func imageDimensions(data []byte) (int, int, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
