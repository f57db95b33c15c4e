package store

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

func testStore(t *testing.T) *ChatStore {
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
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserSetting{},
		&models.Chat{}, &models.Message{}, &models.Attachment{},
	))
	return New(db)
}

func seedChat(t *testing.T, s *ChatStore, userID uuid.UUID, title string) *models.Chat {
	t.Helper()
	chat := &models.Chat{UserID: userID, Title: title}
	require.NoError(t, s.CreateChat(context.Background(), chat))
	return chat
}

func TestCreateAndGetChat(t *testing.T) {
	s := testStore(t)
	userID := uuid.New()
	chat := seedChat(t, s, userID, "Trip planning")
	require.NotEqual(t, uuid.Nil, chat.ID)

	got, err := s.GetChat(context.Background(), userID, chat.ID)
	require.NoError(t, err)
	require.Equal(t, "Trip planning", got.Title)
}

func TestGetChatEnforcesOwner(t *testing.T) {
	s := testStore(t)
	owner := uuid.New()
	chat := seedChat(t, s, owner, "Private")

	_, err := s.GetChat(context.Background(), uuid.New(), chat.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListChatsOrdersByActivity(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	userID := uuid.New()

	older := seedChat(t, s, userID, "older")
	newer := seedChat(t, s, userID, "newer")
	seedChat(t, s, uuid.New(), "someone else's")

	// Activity on the older chat moves it to the front.
	require.NoError(t, s.InsertMessage(ctx, &models.Message{
		ChatID: older.ID, Role: models.RoleUser, Content: "ping",
	}))

	chats, err := s.ListChats(ctx, userID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, older.ID, chats[0].ID)
	require.Equal(t, newer.ID, chats[1].ID)
}

func TestInsertMessageBumpsLastMessageAt(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	chat := seedChat(t, s, userID, "chat")
	require.Nil(t, chat.LastMessageAt)

	before := time.Now().Add(-time.Second)
	require.NoError(t, s.InsertMessage(ctx, &models.Message{
		ChatID: chat.ID, Role: models.RoleUser, Content: "hello",
	}))

	got, err := s.GetChat(ctx, userID, chat.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	require.True(t, got.LastMessageAt.After(before))
}

func TestInsertMessageRejectsUnknownRole(t *testing.T) {
	s := testStore(t)
	chat := seedChat(t, s, uuid.New(), "chat")

	err := s.InsertMessage(context.Background(), &models.Message{
		ChatID: chat.ID, Role: "moderator", Content: "nope",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid message role")
}

func TestListMessagesChronological(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	chat := seedChat(t, s, uuid.New(), "chat")

	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, s.InsertMessage(ctx, &models.Message{
			ChatID:    chat.ID,
			Role:      models.RoleUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, "third", msgs[2].Content)
}

func TestUpdateChatPartialFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	chat := seedChat(t, s, userID, "before")

	updated, err := s.UpdateChat(ctx, userID, chat.ID, map[string]interface{}{
		"title":       "after",
		"is_favorite": true,
	})
	require.NoError(t, err)
	require.Equal(t, "after", updated.Title)
	require.True(t, updated.IsFavorite)

	// No fields is a no-op, not an error.
	again, err := s.UpdateChat(ctx, userID, chat.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "after", again.Title)
}

func TestDeleteChatCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	chat := seedChat(t, s, userID, "doomed")

	msg := &models.Message{ChatID: chat.ID, Role: models.RoleUser, Content: "with file"}
	require.NoError(t, s.InsertMessage(ctx, msg))
	require.NoError(t, s.InsertAttachment(ctx, &models.Attachment{
		MessageID: msg.ID, FileName: "a.pdf", FileType: "application/pdf", StoragePath: "/uploads/a.pdf",
	}))

	require.NoError(t, s.DeleteChat(ctx, userID, chat.ID))

	_, err := s.GetChat(ctx, userID, chat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	msgs, err := s.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)

	atts, err := s.ListAttachments(ctx, msg.ID)
	require.NoError(t, err)
	require.Empty(t, atts)
}

func TestDeleteChatEnforcesOwner(t *testing.T) {
	s := testStore(t)
	chat := seedChat(t, s, uuid.New(), "protected")

	err := s.DeleteChat(context.Background(), uuid.New(), chat.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAttachmentsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	chat := seedChat(t, s, uuid.New(), "chat")
	msg := &models.Message{ChatID: chat.ID, Role: models.RoleUser, Content: ""}
	require.NoError(t, s.InsertMessage(ctx, msg))

	att := &models.Attachment{
		MessageID:   msg.ID,
		FileName:    "report.pdf",
		FileType:    "application/pdf",
		FileSize:    1234,
		StoragePath: "http://localhost/uploads/report.pdf",
		Metadata:    []byte(`{"extracted_text":"hello"}`),
	}
	require.NoError(t, s.InsertAttachment(ctx, att))

	atts, err := s.ListAttachments(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	require.Equal(t, "report.pdf", atts[0].FileName)
	require.JSONEq(t, `{"extracted_text":"hello"}`, string(atts[0].Metadata))
}
