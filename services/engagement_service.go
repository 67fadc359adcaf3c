package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/notifications"
)

// EngagementLinks carries the ids of records created or found while
// advancing an engagement, so handlers can return them without refetching.
type EngagementLinks struct {
	BookingID     *uuid.UUID
	ChatSessionID *uuid.UUID
}

// ActivateEngagement runs everything that follows a mutually accepted video
// call: idempotently create the linked booking, mark the caregiver
// unavailable, ensure a (still disabled) chat session for the pair, and
// notify both parties. The steps are isolated on purpose: a failure in one
// is logged and the rest still run, so a flaky notification can never block
// a booking.
func ActivateEngagement(db *gorm.DB, vc *models.VideoCallRequest) EngagementLinks {
	var links EngagementLinks

	booking, created, err := EnsureBookingForVideoCall(db, vc)
	if err != nil {
		log.Printf("🔥 Failed to create booking for video call %s: %v", vc.ID, err)
	} else {
		links.BookingID = &booking.ID
	}

	if err := SetCaregiverAvailability(db, vc.CaregiverID, "unavailable"); err != nil {
		log.Printf("🔥 Failed to mark caregiver %s unavailable: %v", vc.CaregiverID, err)
	}

	session, _, err := EnsureChatSession(db, vc.CareRecipientID, vc.CaregiverID, &vc.ID)
	if err != nil {
		log.Printf("🔥 Failed to ensure chat session for video call %s: %v", vc.ID, err)
	} else {
		links.ChatSessionID = &session.ID
		if booking != nil && booking.ChatSessionID == nil {
			if err := db.Model(&models.Booking{}).Where("id = ?", booking.ID).
				Update("chat_session_id", session.ID).Error; err != nil {
				log.Printf("🔥 Failed to link chat session to booking %s: %v", booking.ID, err)
			}
		}
	}

	if created && booking != nil {
		notifications.NotifyBookingCreated(db, vc.CaregiverID,
			UserFullName(db, vc.CareRecipientID, "A care recipient"), booking.ID)
		notifications.NotifyBookingStatus(db, vc.CareRecipientID, booking.ID, "pending",
			UserFullName(db, vc.CaregiverID, "your caregiver"))
	}

	return links
}

// EnsureBookingForVideoCall returns the booking linked to the video call,
// creating it if absent. The unique index on video_call_request_id is the
// backstop for two concurrent accepts passing the lookup at the same time:
// the loser of the race reads back the winner's row.
func EnsureBookingForVideoCall(db *gorm.DB, vc *models.VideoCallRequest) (*models.Booking, bool, error) {
	var existing models.Booking
	err := db.Where("video_call_request_id = ?", vc.ID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	caregiverID := vc.CaregiverID
	booking := models.Booking{
		CareRecipientID:    vc.CareRecipientID,
		CaregiverID:        &caregiverID,
		VideoCallRequestID: &vc.ID,
		ServiceType:        "video_call_session",
		ScheduledDate:      vc.ScheduledTime,
		DurationHours:      float64(vc.DurationSeconds) / 3600.0,
		Status:             "pending",
		PaymentStatus:      "none",
	}
	if err := db.Create(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err2 := db.Where("video_call_request_id = ?", vc.ID).First(&existing).Error; err2 == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}
	return &booking, true, nil
}

// EnsureChatSession returns the single chat session for a pair, creating a
// disabled one if none exists. The composite unique index on the pair
// columns closes the concurrent-creation race the same way bookings do.
func EnsureChatSession(db *gorm.DB, careRecipientID, caregiverID uuid.UUID, videoCallID *uuid.UUID) (*models.ChatSession, bool, error) {
	var existing models.ChatSession
	err := db.Where("care_recipient_id = ? AND caregiver_id = ?", careRecipientID, caregiverID).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	session := models.ChatSession{
		CareRecipientID:    careRecipientID,
		CaregiverID:        caregiverID,
		VideoCallRequestID: videoCallID,
	}
	if err := db.Create(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err2 := db.Where("care_recipient_id = ? AND caregiver_id = ?", careRecipientID, caregiverID).
				First(&existing).Error; err2 == nil {
				return &existing, false, nil
			}
		}
		return nil, false, err
	}
	return &session, true, nil
}

// CompletePaymentEffects applies everything that follows a paid booking:
// force-enable the chat session for the pair with both acceptance flags set
// (payment supersedes the mutual opt-in), mark the caregiver unavailable,
// and tell both parties the chat is open. Returns the chat session id when
// one could be secured.
func CompletePaymentEffects(db *gorm.DB, booking *models.Booking) *uuid.UUID {
	if booking.CaregiverID == nil {
		return nil
	}
	caregiverID := *booking.CaregiverID

	if err := SetCaregiverAvailability(db, caregiverID, "unavailable"); err != nil {
		log.Printf("🔥 Failed to mark caregiver %s unavailable after payment: %v", caregiverID, err)
	}

	session, _, err := EnsureChatSession(db, booking.CareRecipientID, caregiverID, booking.VideoCallRequestID)
	if err != nil {
		log.Printf("🔥 Failed to ensure chat session for booking %s: %v", booking.ID, err)
		return nil
	}

	now := time.Now().UTC()
	err = db.Model(&models.ChatSession{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
		"is_enabled":              true,
		"care_recipient_accepted": true,
		"caregiver_accepted":      true,
		"enabled_at":              now,
	}).Error
	if err != nil {
		log.Printf("🔥 Failed to enable chat session %s: %v", session.ID, err)
		return &session.ID
	}

	if booking.ChatSessionID == nil {
		if err := db.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Update("chat_session_id", session.ID).Error; err != nil {
			log.Printf("🔥 Failed to link chat session to booking %s: %v", booking.ID, err)
		}
	}

	notifications.NotifyChatEnabled(db, booking.CareRecipientID,
		UserFullName(db, caregiverID, "your caregiver"), session.ID)
	notifications.NotifyChatEnabled(db, caregiverID,
		UserFullName(db, booking.CareRecipientID, "your care recipient"), session.ID)

	return &session.ID
}

// UserFullName looks up a user's display name, falling back when the row is
// missing so notification text never breaks a flow.
func UserFullName(db *gorm.DB, userID uuid.UUID, fallback string) string {
	var user models.User
	if err := db.Select("full_name").Where("id = ?", userID).First(&user).Error; err != nil {
		return fallback
	}
	return user.FullName
}
