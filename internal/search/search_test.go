package search

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oguzkara/chatforge/internal/models"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One connection: each pooled conn of an in-memory sqlite would
	// otherwise see its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Chat{}, &models.Message{}))
	return New(db)
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, db.Create(value).Error)
}

func strPtr(s string) *string { return &s }

func TestSearchEmptyQuery(t *testing.T) {
	s := testService(t)
	results, err := s.Search(context.Background(), uuid.New(), "   ", Filters{}, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchMatchesTitlesAndMessages(t *testing.T) {
	s := testService(t)
	userID := uuid.New()

	chat := models.Chat{UserID: userID, Title: "Kubernetes notes"}
	mustCreate(t, s.db, &chat)
	other := models.Chat{UserID: userID, Title: "Dinner ideas"}
	mustCreate(t, s.db, &other)
	mustCreate(t, s.db, &models.Message{
		ChatID: other.ID, Role: models.RoleUser,
		Content: "how do I debug a kubernetes pod?",
	})

	results, err := s.Search(context.Background(), userID, "kubernetes", Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Title prefix match outranks a mid-sentence content match.
	require.Equal(t, "chat", results[0].Type)
	require.Equal(t, chat.ID, results[0].Chat.ID)
	require.Equal(t, "message", results[1].Type)
	require.Equal(t, other.ID, results[1].Chat.ID)
	require.NotNil(t, results[1].Message)
	require.Contains(t, results[1].Highlight, "kubernetes pod")
}

func TestSearchIsolatesUsers(t *testing.T) {
	s := testService(t)
	mine := uuid.New()
	mustCreate(t, s.db, &models.Chat{UserID: mine, Title: "golang tips"})
	mustCreate(t, s.db, &models.Chat{UserID: uuid.New(), Title: "golang secrets"})

	results, err := s.Search(context.Background(), mine, "golang", Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "golang tips", results[0].Chat.Title)
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "SQL Performance"})

	results, err := s.Search(context.Background(), userID, "sql perf", Filters{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchFilters(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	userID := uuid.New()
	fav := true

	mustCreate(t, s.db, &models.Chat{
		UserID: userID, Title: "docker in prod", Category: strPtr("work"),
		IsFavorite: true, Tags: []byte(`["infra","docker"]`),
	})
	mustCreate(t, s.db, &models.Chat{
		UserID: userID, Title: "docker at home", Category: strPtr("personal"),
		Tags: []byte(`["hobby"]`),
	})

	results, err := s.Search(ctx, userID, "docker", Filters{Category: "work"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "docker in prod", results[0].Chat.Title)

	results, err = s.Search(ctx, userID, "docker", Filters{IsFavorite: &fav}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = s.Search(ctx, userID, "docker", Filters{Tags: []string{"infra", "docker"}}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = s.Search(ctx, userID, "docker", Filters{Tags: []string{"infra", "hobby"}}, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchDateRange(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	old := time.Now().AddDate(0, 0, -30)
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "ancient meeting", CreatedAt: old})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "recent meeting"})

	from := time.Now().AddDate(0, 0, -7)
	results, err := s.Search(context.Background(), userID, "meeting", Filters{DateFrom: &from}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "recent meeting", results[0].Chat.Title)
}

func TestSearchDateRangeFiltersMessagesNotChats(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	old := time.Now().AddDate(0, 0, -30)

	chat := models.Chat{UserID: userID, Title: "old project", CreatedAt: old}
	mustCreate(t, s.db, &chat)
	mustCreate(t, s.db, &models.Message{
		ChatID: chat.ID, Role: models.RoleUser,
		Content: "follow-up on the migration plan",
	})

	// The message is recent even though its chat is not.
	from := time.Now().AddDate(0, 0, -7)
	results, err := s.Search(context.Background(), userID, "migration", Filters{DateFrom: &from}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "message", results[0].Type)
	require.Equal(t, chat.ID, results[0].Chat.ID)
}

func TestSearchLimit(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	for i := 0; i < 5; i++ {
		mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "repeated topic"})
	}

	results, err := s.Search(context.Background(), userID, "repeated", Filters{}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestQuickSearch(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "API design"})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "Database design"})
	mustCreate(t, s.db, &models.Message{
		ChatID: uuid.New(), Role: models.RoleUser, Content: "design question",
	})

	chats, err := s.QuickSearch(context.Background(), userID, "design", 0)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	chats, err = s.QuickSearch(context.Background(), userID, "", 0)
	require.NoError(t, err)
	require.Empty(t, chats)
}

func TestPopularTags(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "a", Tags: []byte(`["go","web"]`)})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "b", Tags: []byte(`["go"]`)})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "c", Tags: []byte(`["go","db"]`)})

	tags, err := s.PopularTags(context.Background(), userID, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "db"}, tags)
}

func TestCategories(t *testing.T) {
	s := testService(t)
	userID := uuid.New()
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "a", Category: strPtr("work")})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "b", Category: strPtr("work")})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "c", Category: strPtr("personal")})
	mustCreate(t, s.db, &models.Chat{UserID: userID, Title: "d"})

	categories, err := s.Categories(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"personal", "work"}, categories)
}
