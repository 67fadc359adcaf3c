package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ChatSessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_session_id"`
	SenderID      uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	RecipientID   uuid.UUID `gorm:"type:uuid;not null" json:"recipient_id"`

	Content       string     `gorm:"type:text;not null" json:"content"`
	MessageType   string     `gorm:"size:20;not null;default:'text'" json:"message_type"`
	AttachmentURL *string    `gorm:"size:255" json:"attachment_url"`
	ReadAt        *time.Time `json:"read_at"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
