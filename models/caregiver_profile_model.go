package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaregiverProfile extends a caregiver user with marketplace details. The
// availability_status column is the manually set preference; whether a
// caregiver actually shows up in search also depends on their active
// bookings and video calls.
type CaregiverProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	Skills               datatypes.JSONSlice[string] `json:"skills"`
	Qualifications       datatypes.JSONSlice[string] `json:"qualifications"`
	ExperienceYears      *int                        `json:"experience_years"`
	Bio                  *string                     `gorm:"type:text" json:"bio"`
	HourlyRate           *float64                    `gorm:"type:numeric(10,2)" json:"hourly_rate"`
	AvailabilityStatus   string                      `gorm:"size:20;not null;default:'unavailable'" json:"availability_status"`
	AvailabilitySchedule datatypes.JSONMap           `json:"availability_schedule"`

	AvgRating    float64 `gorm:"type:numeric(3,2);default:0" json:"avg_rating"`
	TotalReviews int     `gorm:"default:0" json:"total_reviews"`

	User User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *CaregiverProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
