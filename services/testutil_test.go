package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assistlink/assistlink_backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.CaregiverProfile{},
		&models.VideoCallRequest{},
		&models.Booking{},
		&models.ChatSession{},
		&models.Message{},
		&models.Notification{},
		&models.UserDevice{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	user := models.User{
		FullName: fmt.Sprintf("Test %s %s", role, uuid.New().String()[:8]),
		Email:    fmt.Sprintf("%s@test.local", uuid.New().String()),
		Password: "hashed",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func createTestVideoCall(t *testing.T, db *gorm.DB, careRecipientID, caregiverID uuid.UUID, status string, crAccepted, cgAccepted bool) *models.VideoCallRequest {
	t.Helper()

	vc := models.VideoCallRequest{
		CareRecipientID:       careRecipientID,
		CaregiverID:           caregiverID,
		ScheduledTime:         time.Now().UTC().Add(24 * time.Hour),
		DurationSeconds:       15,
		Status:                status,
		CareRecipientAccepted: crAccepted,
		CaregiverAccepted:     cgAccepted,
	}
	if err := db.Create(&vc).Error; err != nil {
		t.Fatalf("failed to create test video call: %v", err)
	}
	return &vc
}

func createTestBooking(t *testing.T, db *gorm.DB, careRecipientID uuid.UUID, caregiverID *uuid.UUID, status string) *models.Booking {
	t.Helper()

	booking := models.Booking{
		CareRecipientID: careRecipientID,
		CaregiverID:     caregiverID,
		ServiceType:     "companionship",
		ScheduledDate:   time.Now().UTC().Add(48 * time.Hour),
		DurationHours:   2.0,
		Status:          status,
		PaymentStatus:   "none",
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("failed to create test booking: %v", err)
	}
	return &booking
}
