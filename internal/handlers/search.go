package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oguzkara/chatforge/internal/middleware"
	"github.com/oguzkara/chatforge/internal/search"
)

type SearchHandler struct {
	search *search.Service
}

func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{search: service}
}

// Search runs a full search across chat titles and message contents.
// Filters and the query arrive as POST JSON so tags and dates stay typed.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query      string   `json:"query"`
		Category   string   `json:"category"`
		Tags       []string `json:"tags"`
		IsFavorite *bool    `json:"is_favorite"`
		DateFrom   string   `json:"date_from"`
		DateTo     string   `json:"date_to"`
		Limit      int      `json:"limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	filters := search.Filters{
		Category:   req.Category,
		Tags:       req.Tags,
		IsFavorite: req.IsFavorite,
	}
	if from, err := parseDate(req.DateFrom); err == nil && from != nil {
		filters.DateFrom = from
	}
	if to, err := parseDate(req.DateTo); err == nil && to != nil {
		filters.DateTo = to
	}

	results, err := h.search.Search(c.Context(), middleware.UserID(c), req.Query, filters, req.Limit)
	if err != nil {
		slog.Error("Search failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

// QuickSearch matches chat titles only, for typeahead.
func (h *SearchHandler) QuickSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	chats, err := h.search.QuickSearch(c.Context(), middleware.UserID(c), query, c.QueryInt("limit", 10))
	if err != nil {
		slog.Error("Quick search failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Search failed",
		})
	}
	return c.JSON(fiber.Map{"chats": chats})
}

func (h *SearchHandler) PopularTags(c *fiber.Ctx) error {
	tags, err := h.search.PopularTags(c.Context(), middleware.UserID(c), c.QueryInt("limit", 20))
	if err != nil {
		slog.Error("Tag lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch tags",
		})
	}
	return c.JSON(fiber.Map{"tags": tags})
}

func (h *SearchHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.search.Categories(c.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("Category lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to fetch categories",
		})
	}
	return c.JSON(fiber.Map{"categories": categories})
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if t, err = time.Parse("2006-01-02", value); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
