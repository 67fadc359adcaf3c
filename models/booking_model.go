package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking is a care engagement. Most bookings are created automatically when
// a video call request is accepted; the unique index on video_call_request_id
// guarantees at most one booking per call even when two accepts race.
type Booking struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CareRecipientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"care_recipient_id"`
	CaregiverID        *uuid.UUID `gorm:"type:uuid;index" json:"caregiver_id"`
	VideoCallRequestID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"video_call_request_id"`
	ChatSessionID      *uuid.UUID `gorm:"type:uuid" json:"chat_session_id"`

	ServiceType      string            `gorm:"size:30;not null" json:"service_type"`
	ScheduledDate    time.Time         `gorm:"not null" json:"scheduled_date"`
	DurationHours    float64           `gorm:"type:numeric(5,2);not null;default:2.0" json:"duration_hours"`
	Location         datatypes.JSONMap `json:"location"`
	SpecificNeeds    *string           `gorm:"type:text" json:"specific_needs"`
	IsRecurring      bool              `gorm:"default:false" json:"is_recurring"`
	RecurringPattern datatypes.JSONMap `json:"recurring_pattern"`

	Status string `gorm:"size:20;not null;default:'pending'" json:"status"`

	PaymentStatus      string     `gorm:"size:20;not null;default:'none'" json:"payment_status"`
	Amount             *float64   `gorm:"type:numeric(10,2)" json:"amount"`
	Currency           *string    `gorm:"size:3" json:"currency"`
	RazorpayOrderID    *string    `gorm:"size:255;uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID  *string    `gorm:"size:255" json:"razorpay_payment_id"`
	PaymentCompletedAt *time.Time `json:"payment_completed_at"`

	AcceptedAt  *time.Time `json:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CareRecipient    User              `gorm:"foreignKey:CareRecipientID" json:"-"`
	Caregiver        *User             `gorm:"foreignKey:CaregiverID" json:"-"`
	VideoCallRequest *VideoCallRequest `gorm:"foreignKey:VideoCallRequestID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
