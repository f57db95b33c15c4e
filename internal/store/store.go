// Package store wraps all chat persistence behind one type so the relay,
// handlers and tests share the same access path.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oguzkara/chatforge/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a chat or message does not exist or is not
// visible to the requesting user.
var ErrNotFound = errors.New("record not found")

type ChatStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) DB() *gorm.DB {
	return s.db
}

// ─── Chats ──────────────────────────────────────────────────────────────────

// ListChats returns the user's chats, most recently active first.
func (s *ChatStore) ListChats(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_message_at DESC NULLS LAST").
		Order("created_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *ChatStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	if err := s.db.WithContext(ctx).Create(chat).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetChat fetches a chat scoped to its owner.
func (s *ChatStore) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).
		First(&chat, "id = ? AND user_id = ?", chatID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat: %w", err)
	}
	return &chat, nil
}

// UpdateChat applies a partial field update and returns the new record.
func (s *ChatStore) UpdateChat(ctx context.Context, userID, chatID uuid.UUID, fields map[string]interface{}) (*models.Chat, error) {
	chat, err := s.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(chat).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update chat: %w", err)
		}
	}
	return s.GetChat(ctx, userID, chatID)
}

// DeleteChat removes a chat with its messages and attachments in one
// transaction. Explicit deletes rather than relying on FK cascade so the
// behavior is identical across backends.
func (s *ChatStore) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&models.Message{}).Select("id").Where("chat_id = ?", chatID),
		).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&models.Chat{}, "id = ?", chatID).Error; err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		return nil
	})
}

// ─── Messages ───────────────────────────────────────────────────────────────

// ListMessages returns the full conversation in chronological order. This
// order is canonical: it is what gets replayed to the completion provider.
func (s *ChatStore) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

// InsertMessage appends a message and bumps the chat's last_message_at.
func (s *ChatStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if !models.ValidRole(msg.Role) {
		return fmt.Errorf("invalid message role: %q", msg.Role)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		now := time.Now()
		if err := tx.Model(&models.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("last_message_at", &now).Error; err != nil {
			return fmt.Errorf("failed to touch chat: %w", err)
		}
		return nil
	})
}

func (s *ChatStore) GetMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return &msg, nil
}

// ─── Attachments ────────────────────────────────────────────────────────────

func (s *ChatStore) InsertAttachment(ctx context.Context, att *models.Attachment) error {
	if err := s.db.WithContext(ctx).Create(att).Error; err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}
	return nil
}

func (s *ChatStore) ListAttachments(ctx context.Context, messageID uuid.UUID) ([]models.Attachment, error) {
	var atts []models.Attachment
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}
	return atts, nil
}
