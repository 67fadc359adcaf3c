package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession is the messaging channel between a care recipient and a
// caregiver. Messaging stays locked until is_enabled flips true, either by
// both parties opting in or by a completed payment. One session per pair.
type ChatSession struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CareRecipientID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_pair" json:"care_recipient_id"`
	CaregiverID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_pair" json:"caregiver_id"`

	VideoCallRequestID *uuid.UUID `gorm:"type:uuid" json:"video_call_request_id"`

	IsEnabled             bool       `gorm:"default:false" json:"is_enabled"`
	CareRecipientAccepted bool       `gorm:"default:false" json:"care_recipient_accepted"`
	CaregiverAccepted     bool       `gorm:"default:false" json:"caregiver_accepted"`
	EnabledAt             *time.Time `json:"enabled_at"`

	CareRecipient User `gorm:"foreignKey:CareRecipientID" json:"-"`
	Caregiver     User `gorm:"foreignKey:CaregiverID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
