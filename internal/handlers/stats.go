package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/oguzkara/chatforge/internal/ai"
	"github.com/oguzkara/chatforge/internal/middleware"
)

type StatsHandler struct {
	db *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type modelUsage struct {
	Model  string `json:"model"`
	Count  int64  `json:"count"`
	Tokens int64  `json:"tokens"`
}

// Stats aggregates the user's usage: chat and message counts, token
// totals per model with a rough cost estimate, and chats per category.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	db := h.db.WithContext(c.Context())

	var chatCount int64
	if err := db.Table("chats").
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Count(&chatCount).Error; err != nil {
		return h.fail(c, err)
	}

	var favoriteCount int64
	if err := db.Table("chats").
		Where("user_id = ? AND is_favorite = ? AND deleted_at IS NULL", userID, true).
		Count(&favoriteCount).Error; err != nil {
		return h.fail(c, err)
	}

	chatScope := db.Table("chats").
		Select("id").
		Where("user_id = ? AND deleted_at IS NULL", userID)

	var roleCounts []struct {
		Role  string `json:"role"`
		Count int64  `json:"count"`
	}
	if err := db.Table("messages").
		Select("role, COUNT(*) AS count").
		Where("chat_id IN (?)", chatScope).
		Group("role").
		Scan(&roleCounts).Error; err != nil {
		return h.fail(c, err)
	}

	var messageCount int64
	for _, rc := range roleCounts {
		messageCount += rc.Count
	}

	var usage []modelUsage
	if err := db.Table("messages").
		Select("model, COUNT(*) AS count, COALESCE(SUM(tokens_used), 0) AS tokens").
		Where("chat_id IN (?) AND model IS NOT NULL", chatScope).
		Group("model").
		Order("count DESC").
		Scan(&usage).Error; err != nil {
		return h.fail(c, err)
	}

	var totalTokens int64
	var costEstimate float64
	mostUsedModel := ""
	for i, u := range usage {
		if i == 0 {
			mostUsedModel = u.Model
		}
		totalTokens += u.Tokens
		// Completion tokens dominate assistant messages; price the total
		// at the completion rate as an upper-bound estimate.
		costEstimate += ai.CalculateCost(u.Model, 0, int(u.Tokens))
	}

	var categories []struct {
		Category string `json:"category"`
		Count    int64  `json:"count"`
	}
	if err := db.Table("chats").
		Select("category, COUNT(*) AS count").
		Where("user_id = ? AND category IS NOT NULL AND deleted_at IS NULL", userID).
		Group("category").
		Order("count DESC").
		Scan(&categories).Error; err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"total_chats":      chatCount,
		"favorite_chats":   favoriteCount,
		"total_messages":   messageCount,
		"messages_by_role": roleCounts,
		"total_tokens":     totalTokens,
		"cost_estimate":    costEstimate,
		"most_used_model":  mostUsedModel,
		"models":           usage,
		"categories":       categories,
	})
}

func (h *StatsHandler) fail(c *fiber.Ctx, err error) error {
	slog.Error("Failed to compute stats", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   true,
		"message": "Failed to compute stats",
	})
}
