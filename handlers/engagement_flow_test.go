package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
)

// newFlowApp swaps the global DB for an in-memory one and mounts the
// engagement routes behind a header-driven identity so each request can act
// as either party.
func newFlowApp(t *testing.T) *fiber.App {
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

	previous := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = previous })

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		claims := jwt.MapClaims{
			"user_id": c.Get("X-Test-User"),
			"role":    c.Get("X-Test-Role"),
		}
		c.Locals("user", &jwt.Token{Claims: claims})
		return c.Next()
	})
	app.Post("/video-calls/:callId/respond", RespondToVideoCallRequest)
	app.Post("/bookings/:bookingId/complete-payment", CompleteBookingPayment)
	app.Post("/bookings/:bookingId/complete", CompleteBooking)
	app.Post("/chat/sessions/:sessionId/respond", RespondToChatSession)
	app.Get("/caregivers", ListCaregivers)
	app.Get("/dashboard/recurring", GetRecurringBookings)
	return app
}

func flowUser(t *testing.T, role string) *models.User {
	t.Helper()

	user := models.User{
		FullName: fmt.Sprintf("Flow %s", role),
		Email:    fmt.Sprintf("%s@flow.local", uuid.New().String()),
		Password: "hashed",
		Role:     role,
		IsActive: true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func flowVideoCall(t *testing.T, recipientID, caregiverID uuid.UUID) *models.VideoCallRequest {
	t.Helper()

	vc := models.VideoCallRequest{
		CareRecipientID: recipientID,
		CaregiverID:     caregiverID,
		ScheduledTime:   time.Now().UTC().Add(24 * time.Hour),
		DurationSeconds: 15,
		Status:          "pending",
	}
	if err := database.DB.Create(&vc).Error; err != nil {
		t.Fatalf("failed to create video call: %v", err)
	}
	return &vc
}

func doJSON(t *testing.T, app *fiber.App, method, path string, user *models.User, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user.ID.String())
	req.Header.Set("X-Test-Role", user.Role)

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var parsed map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&parsed)
	return resp.StatusCode, parsed
}

func TestEngagementAcceptThroughPayment(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")
	vc := flowVideoCall(t, recipient.ID, caregiver.ID)

	// caregiver accepts first: the booking is created even though the
	// recipient's flag is still false
	status, body := doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("respond: status = %d, body = %v", status, body)
	}
	if body["booking_id"] == nil {
		t.Fatal("caregiver-first accept should create a booking")
	}
	bookingID := body["booking_id"].(string)

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if booking.Status != "pending" {
		t.Errorf("booking status = %q, want pending", booking.Status)
	}

	var session models.ChatSession
	if err := database.DB.Where("care_recipient_id = ? AND caregiver_id = ?", recipient.ID, caregiver.ID).
		First(&session).Error; err != nil {
		t.Fatalf("load chat session: %v", err)
	}
	if session.IsEnabled {
		t.Error("chat must stay disabled before payment or mutual opt-in")
	}

	var profile models.CaregiverProfile
	if err := database.DB.Where("user_id = ?", caregiver.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.AvailabilityStatus != "unavailable" {
		t.Errorf("caregiver availability = %q, want unavailable", profile.AvailabilityStatus)
	}

	// recipient pays: booking accepted, chat force-enabled
	status, body = doJSON(t, app, "POST", "/bookings/"+bookingID+"/complete-payment", recipient, `{}`)
	if status != fiber.StatusOK {
		t.Fatalf("complete-payment: status = %d, body = %v", status, body)
	}

	database.DB.First(&booking, "id = ?", bookingID)
	if booking.Status != "accepted" || booking.PaymentStatus != "completed" {
		t.Errorf("after payment: status = %q, payment_status = %q", booking.Status, booking.PaymentStatus)
	}
	database.DB.First(&session, "id = ?", session.ID)
	if !session.IsEnabled || !session.CareRecipientAccepted || !session.CaregiverAccepted {
		t.Error("payment must enable chat with both flags set")
	}
}

func TestEngagementDeclineIsFinal(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")
	vc := flowVideoCall(t, recipient.ID, caregiver.ID)

	status, body := doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", recipient, `{"accept":false}`)
	if status != fiber.StatusOK {
		t.Fatalf("decline: status = %d, body = %v", status, body)
	}

	var updated models.VideoCallRequest
	database.DB.First(&updated, "id = ?", vc.ID)
	if updated.Status != "declined" {
		t.Fatalf("status = %q, want declined", updated.Status)
	}

	// the caregiver accepting afterwards must not reopen the request or
	// create a booking
	status, body = doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("late accept: status = %d, body = %v", status, body)
	}

	database.DB.First(&updated, "id = ?", vc.ID)
	if updated.Status != "declined" {
		t.Errorf("late accept reopened the request: status = %q", updated.Status)
	}
	var bookingCount int64
	database.DB.Model(&models.Booking{}).Where("video_call_request_id = ?", vc.ID).Count(&bookingCount)
	if bookingCount != 0 {
		t.Errorf("declined request must not produce a booking, found %d", bookingCount)
	}

	// the recipient must not hear that the call was "accepted" when the
	// decline already settled it
	var acceptedNotifs int64
	database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", recipient.ID, "video_call_accepted").Count(&acceptedNotifs)
	if acceptedNotifs != 0 {
		t.Errorf("late accept on a declined request sent %d accepted notifications", acceptedNotifs)
	}
}

func TestEngagementRepeatedAcceptsCreateOneBooking(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")
	vc := flowVideoCall(t, recipient.ID, caregiver.ID)

	doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", recipient, `{"accept":true}`)
	doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", recipient, `{"accept":true}`)

	var bookingCount int64
	database.DB.Model(&models.Booking{}).Where("video_call_request_id = ?", vc.ID).Count(&bookingCount)
	if bookingCount != 1 {
		t.Errorf("expected exactly one booking, got %d", bookingCount)
	}

	var updated models.VideoCallRequest
	database.DB.First(&updated, "id = ?", vc.ID)
	if updated.Status != "accepted" {
		t.Errorf("status = %q, want accepted", updated.Status)
	}
}

func TestEngagementCompleteBookingReleasesCaregiver(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")
	vc := flowVideoCall(t, recipient.ID, caregiver.ID)

	_, body := doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	bookingID := body["booking_id"].(string)
	doJSON(t, app, "POST", "/bookings/"+bookingID+"/complete-payment", recipient, `{}`)

	// mark the call itself as held so it no longer counts as a commitment
	now := time.Now().UTC()
	database.DB.Model(&models.VideoCallRequest{}).Where("id = ?", vc.ID).
		Updates(map[string]interface{}{"status": "completed", "completed_at": now})

	status, respBody := doJSON(t, app, "POST", "/bookings/"+bookingID+"/complete", recipient, `{}`)
	if status != fiber.StatusOK {
		t.Fatalf("complete: status = %d, body = %v", status, respBody)
	}

	var booking models.Booking
	database.DB.First(&booking, "id = ?", bookingID)
	if booking.Status != "completed" || booking.CompletedAt == nil {
		t.Errorf("booking not completed: status = %q", booking.Status)
	}

	var profile models.CaregiverProfile
	if err := database.DB.Where("user_id = ?", caregiver.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.AvailabilityStatus != "available" {
		t.Errorf("caregiver availability = %q, want available", profile.AvailabilityStatus)
	}

	// a stray re-accept on the completed call must not pull the caregiver
	// back off the market or spawn another booking
	status, respBody = doJSON(t, app, "POST", "/video-calls/"+vc.ID.String()+"/respond", caregiver, `{"accept":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("re-accept: status = %d, body = %v", status, respBody)
	}
	var updated models.VideoCallRequest
	database.DB.First(&updated, "id = ?", vc.ID)
	if updated.Status != "completed" {
		t.Errorf("re-accept regressed the call to %q", updated.Status)
	}
	var bookingCount int64
	database.DB.Model(&models.Booking{}).Where("video_call_request_id = ?", vc.ID).Count(&bookingCount)
	if bookingCount != 1 {
		t.Errorf("re-accept on a completed call created a booking, count = %d", bookingCount)
	}
	database.DB.Where("user_id = ?", caregiver.ID).First(&profile)
	if profile.AvailabilityStatus != "available" {
		t.Errorf("re-accept on a completed call flipped availability to %q", profile.AvailabilityStatus)
	}
}

func TestListCaregiversSkillsFilter(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")

	profile := models.CaregiverProfile{
		UserID:             caregiver.ID,
		Skills:             datatypes.NewJSONSlice([]string{"Transportation"}),
		AvailabilityStatus: "available",
	}
	if err := database.DB.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	status, body := doJSON(t, app, "GET", "/caregivers?skills=medical_support", recipient, "")
	if status != fiber.StatusOK {
		t.Fatalf("list: status = %d, body = %v", status, body)
	}
	if total := body["total"].(float64); total != 0 {
		t.Errorf("caregiver without the requested skill listed, total = %v", total)
	}

	// matching is case insensitive and any-of over a comma separated list
	status, body = doJSON(t, app, "GET", "/caregivers?skills=medical_support,transportation", recipient, "")
	if status != fiber.StatusOK {
		t.Fatalf("list: status = %d, body = %v", status, body)
	}
	if total := body["total"].(float64); total != 1 {
		t.Errorf("expected the transportation caregiver listed, total = %v", total)
	}
}

func TestRecurringBookingsDashboard(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")

	oneOff := models.Booking{
		CareRecipientID: recipient.ID,
		CaregiverID:     &caregiver.ID,
		ServiceType:     "companionship",
		ScheduledDate:   time.Now().UTC().Add(48 * time.Hour),
		DurationHours:   2.0,
		Status:          "pending",
		PaymentStatus:   "none",
	}
	recurring := oneOff
	recurring.ServiceType = "household_help"
	recurring.IsRecurring = true
	if err := database.DB.Create(&oneOff).Error; err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := database.DB.Create(&recurring).Error; err != nil {
		t.Fatalf("create booking: %v", err)
	}

	req := httptest.NewRequest("GET", "/dashboard/recurring", nil)
	req.Header.Set("X-Test-User", recipient.ID.String())
	req.Header.Set("X-Test-Role", recipient.Role)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("recurring: status = %d", resp.StatusCode)
	}
	var bookings []models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&bookings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected only the recurring booking, got %d", len(bookings))
	}
	if bookings[0].ServiceType != "household_help" || !bookings[0].IsRecurring {
		t.Errorf("wrong booking returned: %+v", bookings[0])
	}
}

func TestChatMutualOptInEnablesSession(t *testing.T) {
	app := newFlowApp(t)
	recipient := flowUser(t, "care_recipient")
	caregiver := flowUser(t, "caregiver")

	session := models.ChatSession{
		CareRecipientID: recipient.ID,
		CaregiverID:     caregiver.ID,
	}
	if err := database.DB.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	status, body := doJSON(t, app, "POST", "/chat/sessions/"+session.ID.String()+"/respond", recipient, `{"accept":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("recipient opt-in: status = %d, body = %v", status, body)
	}

	var loaded models.ChatSession
	database.DB.First(&loaded, "id = ?", session.ID)
	if loaded.IsEnabled {
		t.Error("one-sided opt-in must not enable chat")
	}

	status, body = doJSON(t, app, "POST", "/chat/sessions/"+session.ID.String()+"/respond", caregiver, `{"accept":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("caregiver opt-in: status = %d, body = %v", status, body)
	}

	database.DB.First(&loaded, "id = ?", session.ID)
	if !loaded.IsEnabled || loaded.EnabledAt == nil {
		t.Error("mutual opt-in should enable chat")
	}

	// withdrawal after enablement flips the flag but a decline alone never
	// re-locks history writes for the other side's record keeping
	status, _ = doJSON(t, app, "POST", "/chat/sessions/"+session.ID.String()+"/respond", caregiver, `{"accept":false}`)
	if status != fiber.StatusOK {
		t.Fatalf("withdrawal: status = %d", status)
	}
	database.DB.First(&loaded, "id = ?", session.ID)
	if loaded.CaregiverAccepted {
		t.Error("withdrawal should clear the caregiver flag")
	}
}
