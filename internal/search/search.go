// Package search implements substring search with fixed-weight relevance
// ranking over chat titles and message bodies.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oguzkara/chatforge/internal/models"
	"gorm.io/gorm"
)

const defaultLimit = 50

type Filters struct {
	Category   string
	Tags       []string
	IsFavorite *bool
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Result struct {
	Type      string          `json:"type"` // "chat" or "message"
	Chat      models.Chat     `json:"chat"`
	Message   *models.Message `json:"message,omitempty"`
	Highlight string          `json:"highlight"`
	Score     float64         `json:"score"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Search runs the title and content sub-searches, scores every hit and
// returns the merged list sorted by score descending (stable on ties).
// An empty query is not an error; it returns no results.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string, filters Filters, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	chatResults, err := s.searchChats(ctx, userID, query, filters, limit)
	if err != nil {
		return nil, err
	}
	messageResults, err := s.searchMessages(ctx, userID, query, filters, limit)
	if err != nil {
		return nil, err
	}

	all := append(chatResults, messageResults...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) searchChats(ctx context.Context, userID uuid.UUID, query string, filters Filters, limit int) ([]Result, error) {
	q := s.chatScope(ctx, userID, filters).
		Where("LOWER(title) LIKE ?", "%"+strings.ToLower(query)+"%")
	if filters.DateFrom != nil {
		q = q.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("created_at <= ?", *filters.DateTo)
	}
	q = q.Limit(limit)

	var chats []models.Chat
	if err := q.Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("failed to search chats: %w", err)
	}

	results := make([]Result, 0, len(chats))
	for _, chat := range chats {
		if !matchesTags(chat, filters.Tags) {
			continue
		}
		results = append(results, Result{
			Type:      "chat",
			Chat:      chat,
			Highlight: Highlight(chat.Title, query),
			Score:     Relevance(chat.Title, query),
		})
	}
	return results, nil
}

func (s *Service) searchMessages(ctx context.Context, userID uuid.UUID, query string, filters Filters, limit int) ([]Result, error) {
	chatIDs := s.chatScope(ctx, userID, filters).Select("id")

	q := s.db.WithContext(ctx).
		Where("chat_id IN (?)", chatIDs).
		Where("LOWER(content) LIKE ?", "%"+strings.ToLower(query)+"%")
	if filters.DateFrom != nil {
		q = q.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("created_at <= ?", *filters.DateTo)
	}

	var messages []models.Message
	if err := q.Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	// Attach the owning chats in one pass
	ids := make([]uuid.UUID, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ChatID)
	}
	var chats []models.Chat
	if err := s.db.WithContext(ctx).Find(&chats, "id IN ?", ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load chats for results: %w", err)
	}
	chatByID := make(map[uuid.UUID]models.Chat, len(chats))
	for _, chat := range chats {
		chatByID[chat.ID] = chat
	}

	results := make([]Result, 0, len(messages))
	for i := range messages {
		msg := messages[i]
		chat, found := chatByID[msg.ChatID]
		if !found || !matchesTags(chat, filters.Tags) {
			continue
		}
		results = append(results, Result{
			Type:      "message",
			Chat:      chat,
			Message:   &msg,
			Highlight: Highlight(msg.Content, query),
			Score:     Relevance(msg.Content, query),
		})
	}
	return results, nil
}

// chatScope applies owner isolation and the chat attribute filters.
// Date filters are deliberately absent: the title search dates the chat,
// the content search dates the message, never the other row.
func (s *Service) chatScope(ctx context.Context, userID uuid.UUID, filters Filters) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Chat{}).Where("user_id = ?", userID)
	if filters.Category != "" {
		q = q.Where("category = ?", filters.Category)
	}
	if filters.IsFavorite != nil {
		q = q.Where("is_favorite = ?", *filters.IsFavorite)
	}
	return q
}

// matchesTags checks jsonb tag containment in Go so the query stays
// portable across Postgres and the sqlite test driver.
func matchesTags(chat models.Chat, want []string) bool {
	if len(want) == 0 {
		return true
	}
	if len(chat.Tags) == 0 {
		return false
	}
	var tags []string
	if err := json.Unmarshal(chat.Tags, &tags); err != nil {
		return false
	}
	have := make(map[string]bool, len(tags))
	for _, t := range tags {
		have[t] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// ─── Supplementary lookups ──────────────────────────────────────────────────

// QuickSearch matches chat titles only, for typeahead.
func (s *Service) QuickSearch(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.Chat, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Chat{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var chats []models.Chat
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("LOWER(title) LIKE ?", "%"+strings.ToLower(query)+"%").
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search chat titles: %w", err)
	}
	return chats, nil
}

// PopularTags returns the user's most used tags, most frequent first.
func (s *Service) PopularTags(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	var chats []models.Chat
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("tags IS NOT NULL").
		Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	counts := map[string]int{}
	for _, chat := range chats {
		var tags []string
		if err := json.Unmarshal(chat.Tags, &tags); err != nil {
			continue
		}
		for _, t := range tags {
			counts[t]++
		}
	}

	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.SliceStable(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

// Categories returns the user's distinct categories, sorted.
func (s *Service) Categories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("user_id = ?", userID).
		Where("category IS NOT NULL AND category <> ''").
		Distinct().
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	sort.Strings(categories)
	return categories, nil
}
