package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/oguzkara/chatforge/internal/ai"
)

const Version = "1.0.0"

type SystemHandler struct {
	db *gorm.DB
}

func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health reports service liveness and database reachability.
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	dbStatus := "up"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	status := fiber.StatusOK
	if dbStatus != "up" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   "ok",
		"version":  Version,
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// Models lists the models clients may request, with context and pricing.
func (h *SystemHandler) Models(c *fiber.Ctx) error {
	type entry struct {
		ID                 string  `json:"id"`
		MaxTokens          int     `json:"max_tokens"`
		PromptPricePer1k   float64 `json:"prompt_price_per_1k"`
		CompletePricePer1k float64 `json:"completion_price_per_1k"`
	}

	models := make([]entry, 0, 4)
	for _, id := range ai.AvailableModels() {
		info := ai.GetModelInfo(id)
		models = append(models, entry{
			ID:                 id,
			MaxTokens:          info.MaxTokens,
			PromptPricePer1k:   info.CostPer1kPromptTokens,
			CompletePricePer1k: info.CostPer1kCompletionToks,
		})
	}

	return c.JSON(fiber.Map{"models": models})
}
