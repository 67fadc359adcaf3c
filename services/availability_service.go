package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assistlink/assistlink_backend/models"
)

// HasActiveCommitments reports whether a caregiver currently has work in
// flight: any booking in pending, accepted or in_progress, or any mutually
// accepted video call that has not run its course yet. A video call counts
// as finished when it is marked completed, has a completed_at timestamp, or
// every booking linked to it is completed. excludeBookingID lets a caller
// that just closed a booking leave it out of the count.
func HasActiveCommitments(db *gorm.DB, caregiverID uuid.UUID, excludeBookingID *uuid.UUID) (bool, error) {
	activeStatuses := []string{"pending", "accepted", "in_progress"}

	q := db.Model(&models.Booking{}).
		Where("caregiver_id = ? AND status IN ?", caregiverID, activeStatuses)
	if excludeBookingID != nil {
		q = q.Where("id <> ?", *excludeBookingID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var calls []models.VideoCallRequest
	err := db.Where(
		"caregiver_id = ? AND status = ? AND care_recipient_accepted = ? AND caregiver_accepted = ?",
		caregiverID, "accepted", true, true,
	).Find(&calls).Error
	if err != nil {
		return false, err
	}

	for _, vc := range calls {
		if vc.CompletedAt != nil {
			continue
		}
		var linked []models.Booking
		if err := db.Where("video_call_request_id = ?", vc.ID).Find(&linked).Error; err != nil {
			return false, err
		}
		if len(linked) == 0 {
			return true, nil
		}
		for _, b := range linked {
			if b.Status != "completed" {
				return true, nil
			}
		}
	}
	return false, nil
}

// SetCaregiverAvailability upserts the caregiver's persisted availability
// preference.
func SetCaregiverAvailability(db *gorm.DB, caregiverID uuid.UUID, status string) error {
	var profile models.CaregiverProfile
	err := db.Where("user_id = ?", caregiverID).First(&profile).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		profile = models.CaregiverProfile{
			UserID:             caregiverID,
			AvailabilityStatus: status,
		}
		return db.Create(&profile).Error
	}
	return db.Model(&profile).Update("availability_status", status).Error
}

// ReleaseCaregiverIfIdle flips the caregiver back to available when no
// active bookings or video calls remain. Booking completion is the only
// place that calls this; nothing else restores availability.
func ReleaseCaregiverIfIdle(db *gorm.DB, caregiverID uuid.UUID, completedBookingID uuid.UUID) error {
	active, err := HasActiveCommitments(db, caregiverID, &completedBookingID)
	if err != nil {
		return err
	}
	if active {
		return nil
	}
	return SetCaregiverAvailability(db, caregiverID, "available")
}

// IsDiscoverable applies the read-time availability filter used by caregiver
// search. A caregiver with active commitments is hidden; one who set
// themselves unavailable while having no commitments is hidden too. Lookup
// errors fail open so a transient fault never empties the marketplace.
func IsDiscoverable(db *gorm.DB, caregiverID uuid.UUID, profile *models.CaregiverProfile) bool {
	active, err := HasActiveCommitments(db, caregiverID, nil)
	if err != nil {
		log.Printf("🔥 Availability check failed for caregiver %s, listing anyway: %v", caregiverID, err)
		return true
	}
	if active {
		return false
	}
	if profile != nil && profile.AvailabilityStatus == "unavailable" {
		return false
	}
	return true
}
