package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserDevice is a registered push target. A user may hold several devices;
// re-registering the same token reactivates the existing row instead of
// duplicating it.
type UserDevice struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_device" json:"user_id"`
	DeviceToken string    `gorm:"size:512;not null;uniqueIndex:idx_user_device" json:"device_token"`

	Platform   string            `gorm:"size:20;not null" json:"platform"`
	DeviceInfo datatypes.JSONMap `json:"device_info"`
	IsActive   bool              `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time        `json:"last_used_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *UserDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
