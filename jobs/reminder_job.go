package jobs

import (
	"log"
	"time"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/notifications"
	"github.com/assistlink/assistlink_backend/services"
)

// SendVideoCallReminders nudges both parties of accepted video calls
// starting in roughly an hour. The five minute window matches the cron
// cadence so each call is reminded once.
func SendVideoCallReminders() {
	log.Println("Running job: SendVideoCallReminders...")

	now := time.Now().UTC()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcomingCalls []models.VideoCallRequest
	err := database.DB.
		Where("status = ? AND scheduled_time BETWEEN ? AND ?", "accepted", lowerBound, upperBound).
		Find(&upcomingCalls).Error
	if err != nil {
		log.Printf("Error checking for upcoming video calls: %v", err)
		return
	}

	for _, call := range upcomingCalls {
		log.Printf("Sending reminders for video call ID: %s", call.ID)

		caregiverName := services.UserFullName(database.DB, call.CaregiverID, "your caregiver")
		recipientName := services.UserFullName(database.DB, call.CareRecipientID, "your care recipient")

		notifications.NotifyVideoCallReminder(database.DB, call.CareRecipientID, caregiverName, call.ID)
		notifications.NotifyVideoCallReminder(database.DB, call.CaregiverID, recipientName, call.ID)
	}
}
