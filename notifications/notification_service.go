package notifications

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/assistlink/assistlink_backend/models"
)

// Create inserts an in-app notification row and fires a push to the user's
// active devices. Both halves are best-effort: failures are logged and
// swallowed so a broken notification never rolls back the state transition
// that produced it.
func Create(db *gorm.DB, userID uuid.UUID, notifType, title, body string, data map[string]interface{}) *models.Notification {
	notification := models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   datatypes.JSONMap(data),
	}
	if err := db.Create(&notification).Error; err != nil {
		log.Printf("🔥 Failed to create notification for user %s: %v", userID, err)
		return nil
	}

	go SendPush(db, userID, title, body, data)

	return &notification
}

func NotifyVideoCallRequested(db *gorm.DB, caregiverID uuid.UUID, careRecipientName string, videoCallID uuid.UUID) {
	Create(db, caregiverID, "video_call_request",
		"New Video Call Request",
		fmt.Sprintf("%s has requested a video call with you", careRecipientName),
		map[string]interface{}{"video_call_id": videoCallID.String(), "action": "view_video_call"})
}

func NotifyVideoCallScheduled(db *gorm.DB, careRecipientID uuid.UUID, caregiverName string, videoCallID uuid.UUID) {
	Create(db, careRecipientID, "video_call_scheduled",
		"Video Call Request Sent",
		fmt.Sprintf("Your video call request to %s has been sent", caregiverName),
		map[string]interface{}{"video_call_id": videoCallID.String(), "action": "view_video_call"})
}

func NotifyVideoCallResponse(db *gorm.DB, userID uuid.UUID, otherPartyName string, videoCallID uuid.UUID, accepted bool) {
	if accepted {
		Create(db, userID, "video_call_accepted",
			"Video Call Accepted",
			fmt.Sprintf("%s has accepted the video call", otherPartyName),
			map[string]interface{}{"video_call_id": videoCallID.String(), "action": "view_video_call"})
		return
	}
	Create(db, userID, "video_call_declined",
		"Video Call Declined",
		fmt.Sprintf("%s has declined the video call", otherPartyName),
		map[string]interface{}{"video_call_id": videoCallID.String(), "action": "view_video_call"})
}

func NotifyVideoCallReminder(db *gorm.DB, userID uuid.UUID, otherPartyName string, videoCallID uuid.UUID) {
	Create(db, userID, "video_call_reminder",
		"Upcoming Video Call",
		fmt.Sprintf("Your video call with %s starts in about an hour", otherPartyName),
		map[string]interface{}{"video_call_id": videoCallID.String(), "action": "view_video_call"})
}

func NotifyBookingCreated(db *gorm.DB, caregiverID uuid.UUID, careRecipientName string, bookingID uuid.UUID) {
	Create(db, caregiverID, "booking_created",
		"New Booking",
		fmt.Sprintf("A booking with %s has been created from your video call", careRecipientName),
		map[string]interface{}{"booking_id": bookingID.String(), "action": "view_booking"})
}

func NotifyBookingStatus(db *gorm.DB, userID uuid.UUID, bookingID uuid.UUID, status, otherPartyName string) {
	Create(db, userID, "booking_status",
		"Booking Update",
		fmt.Sprintf("Your booking with %s is now %s", otherPartyName, status),
		map[string]interface{}{"booking_id": bookingID.String(), "status": status, "action": "view_booking"})
}

func NotifyChatEnabled(db *gorm.DB, userID uuid.UUID, otherPartyName string, chatSessionID uuid.UUID) {
	Create(db, userID, "chat_enabled",
		"Chat Enabled",
		fmt.Sprintf("You can now chat with %s", otherPartyName),
		map[string]interface{}{"chat_session_id": chatSessionID.String(), "action": "open_chat"})
}

func NotifyNewMessage(db *gorm.DB, recipientID uuid.UUID, senderName string, chatSessionID uuid.UUID, preview string) {
	if runes := []rune(preview); len(runes) > 100 {
		preview = string(runes[:100])
	}
	Create(db, recipientID, "new_message",
		fmt.Sprintf("Message from %s", senderName),
		preview,
		map[string]interface{}{"chat_session_id": chatSessionID.String(), "action": "open_chat"})
}
