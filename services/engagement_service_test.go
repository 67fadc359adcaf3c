package services

import (
	"math"
	"testing"

	"github.com/assistlink/assistlink_backend/models"
)

func TestActivateEngagement(t *testing.T) {
	db := newTestDB(t)
	recipient := createTestUser(t, db, "care_recipient")
	caregiver := createTestUser(t, db, "caregiver")
	vc := createTestVideoCall(t, db, recipient.ID, caregiver.ID, "accepted", true, true)

	links := ActivateEngagement(db, vc)
	if links.BookingID == nil {
		t.Fatal("expected a booking to be created")
	}
	if links.ChatSessionID == nil {
		t.Fatal("expected a chat session to be created")
	}

	var booking models.Booking
	if err := db.First(&booking, "id = ?", *links.BookingID).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.VideoCallRequestID == nil || *booking.VideoCallRequestID != vc.ID {
		t.Error("booking should link back to the video call")
	}
	if booking.Status != "pending" {
		t.Errorf("booking status = %q, want pending", booking.Status)
	}
	if booking.ServiceType != "video_call_session" {
		t.Errorf("service_type = %q, want video_call_session", booking.ServiceType)
	}
	wantHours := 15.0 / 3600.0
	if math.Abs(booking.DurationHours-wantHours) > 1e-9 {
		t.Errorf("duration_hours = %v, want %v", booking.DurationHours, wantHours)
	}
	if booking.ChatSessionID == nil || *booking.ChatSessionID != *links.ChatSessionID {
		t.Error("booking should reference the chat session")
	}

	var session models.ChatSession
	if err := db.First(&session, "id = ?", *links.ChatSessionID).Error; err != nil {
		t.Fatalf("load chat session: %v", err)
	}
	if session.IsEnabled {
		t.Error("chat session must start disabled")
	}

	var profile models.CaregiverProfile
	if err := db.Where("user_id = ?", caregiver.ID).First(&profile).Error; err != nil {
		t.Fatalf("load caregiver profile: %v", err)
	}
	if profile.AvailabilityStatus != "unavailable" {
		t.Errorf("caregiver should be marked unavailable, got %q", profile.AvailabilityStatus)
	}

	var notifCount int64
	db.Model(&models.Notification{}).Count(&notifCount)
	if notifCount == 0 {
		t.Error("expected booking notifications to be recorded")
	}
}

func TestActivateEngagementIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	recipient := createTestUser(t, db, "care_recipient")
	caregiver := createTestUser(t, db, "caregiver")
	vc := createTestVideoCall(t, db, recipient.ID, caregiver.ID, "accepted", true, true)

	first := ActivateEngagement(db, vc)
	second := ActivateEngagement(db, vc)

	if first.BookingID == nil || second.BookingID == nil {
		t.Fatal("both activations should resolve a booking")
	}
	if *first.BookingID != *second.BookingID {
		t.Error("second activation must return the same booking")
	}

	var bookingCount int64
	db.Model(&models.Booking{}).Where("video_call_request_id = ?", vc.ID).Count(&bookingCount)
	if bookingCount != 1 {
		t.Errorf("expected exactly one booking for the call, got %d", bookingCount)
	}

	var sessionCount int64
	db.Model(&models.ChatSession{}).
		Where("care_recipient_id = ? AND caregiver_id = ?", recipient.ID, caregiver.ID).
		Count(&sessionCount)
	if sessionCount != 1 {
		t.Errorf("expected exactly one chat session for the pair, got %d", sessionCount)
	}
}

func TestEnsureChatSessionReusesExisting(t *testing.T) {
	db := newTestDB(t)
	recipient := createTestUser(t, db, "care_recipient")
	caregiver := createTestUser(t, db, "caregiver")

	first, created, err := EnsureChatSession(db, recipient.ID, caregiver.ID, nil)
	if err != nil {
		t.Fatalf("EnsureChatSession: %v", err)
	}
	if !created {
		t.Error("first call should create the session")
	}

	second, created, err := EnsureChatSession(db, recipient.ID, caregiver.ID, nil)
	if err != nil {
		t.Fatalf("EnsureChatSession: %v", err)
	}
	if created {
		t.Error("second call should reuse the session")
	}
	if first.ID != second.ID {
		t.Error("expected the same session on both calls")
	}
}

func TestCompletePaymentEffects(t *testing.T) {
	db := newTestDB(t)
	recipient := createTestUser(t, db, "care_recipient")
	caregiver := createTestUser(t, db, "caregiver")
	booking := createTestBooking(t, db, recipient.ID, &caregiver.ID, "accepted")

	sessionID := CompletePaymentEffects(db, booking)
	if sessionID == nil {
		t.Fatal("expected a chat session id")
	}

	var session models.ChatSession
	if err := db.First(&session, "id = ?", *sessionID).Error; err != nil {
		t.Fatalf("load chat session: %v", err)
	}
	if !session.IsEnabled {
		t.Error("payment must enable the chat session")
	}
	if !session.CareRecipientAccepted || !session.CaregiverAccepted {
		t.Error("payment must set both acceptance flags")
	}
	if session.EnabledAt == nil {
		t.Error("enabled_at should be stamped")
	}

	var updated models.Booking
	db.First(&updated, "id = ?", booking.ID)
	if updated.ChatSessionID == nil || *updated.ChatSessionID != *sessionID {
		t.Error("booking should be linked to the enabled chat session")
	}

	var profile models.CaregiverProfile
	if err := db.Where("user_id = ?", caregiver.ID).First(&profile).Error; err != nil {
		t.Fatalf("load caregiver profile: %v", err)
	}
	if profile.AvailabilityStatus != "unavailable" {
		t.Errorf("caregiver should be unavailable after payment, got %q", profile.AvailabilityStatus)
	}

	var chatNotifs int64
	db.Model(&models.Notification{}).Where("type = ?", "chat_enabled").Count(&chatNotifs)
	if chatNotifs != 2 {
		t.Errorf("expected chat_enabled notifications for both parties, got %d", chatNotifs)
	}
}

func TestCompletePaymentEffectsEnablesExistingDisabledSession(t *testing.T) {
	db := newTestDB(t)
	recipient := createTestUser(t, db, "care_recipient")
	caregiver := createTestUser(t, db, "caregiver")

	existing, _, err := EnsureChatSession(db, recipient.ID, caregiver.ID, nil)
	if err != nil {
		t.Fatalf("EnsureChatSession: %v", err)
	}
	booking := createTestBooking(t, db, recipient.ID, &caregiver.ID, "accepted")

	sessionID := CompletePaymentEffects(db, booking)
	if sessionID == nil {
		t.Fatal("expected a chat session id")
	}
	if *sessionID != existing.ID {
		t.Error("payment should enable the pair's existing session, not create a new one")
	}

	var session models.ChatSession
	db.First(&session, "id = ?", existing.ID)
	if !session.IsEnabled {
		t.Error("existing session should now be enabled")
	}
}
