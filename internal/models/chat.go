package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message roles. The set is closed; anything else is rejected before insert.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}

type Chat struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title         string         `gorm:"not null" json:"title"`
	Category      *string        `gorm:"" json:"category"`
	Tags          datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	IsFavorite    bool           `gorm:"default:false" json:"is_favorite"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	LastMessageAt *time.Time     `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// IDs are assigned application-side so created records carry their key
// back immediately, on any backend.
func (c *Chat) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Message struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID     uuid.UUID      `gorm:"type:uuid;index;not null" json:"chat_id"`
	Chat       *Chat          `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
	Role       string         `gorm:"not null" json:"role"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	TokensUsed *int           `gorm:"" json:"tokens_used"`
	Model      *string        `gorm:"" json:"model"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Attachment struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"message_id"`
	Message      *Message       `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	FileName     string         `gorm:"not null" json:"file_name"`
	FileType     string         `gorm:"not null" json:"file_type"`
	FileSize     int64          `gorm:"not null" json:"file_size"`
	StoragePath  string         `gorm:"not null" json:"storage_path"`
	ThumbnailURL *string        `gorm:"" json:"thumbnail_url"`
	Width        *int           `gorm:"" json:"width"`
	Height       *int           `gorm:"" json:"height"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (a *Attachment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
