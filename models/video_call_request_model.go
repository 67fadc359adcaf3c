package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoCallRequest is the opening move of an engagement: a short introductory
// call a care recipient requests with a caregiver. Status is pending,
// accepted, declined or completed. The two accepted flags record each
// party's vote independently of the aggregate status.
type VideoCallRequest struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CareRecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"care_recipient_id"`
	CaregiverID     uuid.UUID `gorm:"type:uuid;not null;index" json:"caregiver_id"`

	ScheduledTime   time.Time `gorm:"not null" json:"scheduled_time"`
	DurationSeconds int       `gorm:"not null;default:15" json:"duration_seconds"`

	Status                string `gorm:"size:20;not null;default:'pending'" json:"status"`
	CareRecipientAccepted bool   `gorm:"default:false" json:"care_recipient_accepted"`
	CaregiverAccepted     bool   `gorm:"default:false" json:"caregiver_accepted"`

	VideoCallURL *string    `gorm:"size:255" json:"video_call_url"`
	CompletedAt  *time.Time `json:"completed_at"`

	CareRecipient User `gorm:"foreignKey:CareRecipientID" json:"-"`
	Caregiver     User `gorm:"foreignKey:CaregiverID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *VideoCallRequest) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
