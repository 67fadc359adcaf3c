package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'care_recipient'" json:"role"`

	Phone       *string    `gorm:"size:20" json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`

	Address          datatypes.JSONMap `json:"address"`
	EmergencyContact datatypes.JSONMap `json:"emergency_contact"`
	CurrentLocation  datatypes.JSONMap `json:"current_location"`

	ProfilePhotoURL *string `gorm:"size:255" json:"profile_photo_url"`
	IsActive        bool    `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
