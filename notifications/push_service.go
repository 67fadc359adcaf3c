package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	config "github.com/assistlink/assistlink_backend/configs"
	"github.com/assistlink/assistlink_backend/models"

	"github.com/google/uuid"
)

var pushClient *messaging.Client

// InitPushService wires up Firebase Cloud Messaging. Without credentials the
// service stays nil and pushes are silently skipped; in-app notifications
// still work.
func InitPushService() {
	credentialsPath := config.Config("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		log.Println("⚠️ FCM_CREDENTIALS_PATH not set, push notifications disabled")
		return
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		log.Printf("🔥 Failed to initialize Firebase app: %v", err)
		return
	}
	pushClient, err = app.Messaging(ctx)
	if err != nil {
		log.Printf("🔥 Failed to initialize FCM client: %v", err)
		return
	}
	log.Println("✅ Push notification service initialized")
}

// SendPush delivers one push per active device the user has registered.
// Tokens FCM reports as no longer registered are deactivated so dead devices
// drop out of future sends.
func SendPush(db *gorm.DB, userID uuid.UUID, title, body string, data map[string]interface{}) {
	if pushClient == nil {
		return
	}

	var devices []models.UserDevice
	if err := db.Where("user_id = ? AND is_active = ?", userID, true).Find(&devices).Error; err != nil {
		log.Printf("🔥 Failed to load devices for user %s: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	payload := make(map[string]string, len(data))
	for k, v := range data {
		payload[k] = fmt.Sprint(v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, device := range devices {
		msg := &messaging.Message{
			Token: device.DeviceToken,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: payload,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		}

		if _, err := pushClient.Send(ctx, msg); err != nil {
			if messaging.IsRegistrationTokenNotRegistered(err) {
				db.Model(&models.UserDevice{}).
					Where("device_token = ?", device.DeviceToken).
					Update("is_active", false)
				log.Printf("Deactivated dead device token for user %s", userID)
				continue
			}
			log.Printf("🔥 Push to %s device of user %s failed: %v", device.Platform, userID, err)
		}
	}
}
