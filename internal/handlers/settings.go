package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/models"
)

type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// GetSettings reports whether a provider key is on file. The key itself is
// never returned, only its presence.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	var setting models.UserSetting
	err := h.db.WithContext(c.Context()).
		Where("user_id = ?", middleware.UserID(c)).
		First(&setting).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("Failed to fetch settings", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch settings",
		})
	}

	return c.JSON(fiber.Map{
		"has_api_key": setting.OpenAIAPIKey != "",
	})
}

// UpdateSettings upserts the provider key. An empty key clears it.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req struct {
		OpenAIAPIKey *string `json:"openai_api_key"`
	}
	if err := c.BodyParser(&req); err != nil || req.OpenAIAPIKey == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	key := strings.TrimSpace(*req.OpenAIAPIKey)
	if key != "" && !strings.HasPrefix(key, "sk-") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "API key must start with sk-",
		})
	}

	setting := models.UserSetting{
		UserID:       middleware.UserID(c),
		OpenAIAPIKey: key,
	}
	err := h.db.WithContext(c.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"openai_api_key", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		slog.Error("Failed to save settings", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to save settings",
		})
	}

	return c.JSON(fiber.Map{
		"message":     "Settings updated",
		"has_api_key": key != "",
	})
}
