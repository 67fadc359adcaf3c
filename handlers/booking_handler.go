package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/notifications"
	"github.com/assistlink/assistlink_backend/services"
)

type CreateBookingBody struct {
	CaregiverID      *string                `json:"caregiver_id" validate:"omitempty,uuid"`
	ServiceType      string                 `json:"service_type" validate:"required,oneof=personal_care companionship medical_support household_help transportation video_call_session"`
	ScheduledDate    time.Time              `json:"scheduled_date" validate:"required"`
	DurationHours    float64                `json:"duration_hours" validate:"omitempty,gt=0,lte=24"`
	Location         map[string]interface{} `json:"location"`
	SpecificNeeds    *string                `json:"specific_needs"`
	IsRecurring      bool                   `json:"is_recurring"`
	RecurringPattern map[string]interface{} `json:"recurring_pattern"`
}

// CreateBooking opens a booking directly, outside the video call flow. When
// a caregiver is named, the booking is stitched to the latest mutually
// accepted video call and any existing chat session for the pair, and the
// caregiver comes off the market immediately.
func CreateBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	careRecipientID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req CreateBookingBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	duration := req.DurationHours
	if duration == 0 {
		duration = 2.0
	}

	booking := models.Booking{
		CareRecipientID:  careRecipientID,
		ServiceType:      req.ServiceType,
		ScheduledDate:    req.ScheduledDate,
		DurationHours:    duration,
		Location:         datatypes.JSONMap(req.Location),
		SpecificNeeds:    req.SpecificNeeds,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: datatypes.JSONMap(req.RecurringPattern),
		Status:           "pending",
		PaymentStatus:    "none",
	}

	if req.CaregiverID != nil {
		caregiverID := uuid.MustParse(*req.CaregiverID)
		var caregiver models.User
		if err := database.DB.Where("id = ? AND role = ?", caregiverID, "caregiver").First(&caregiver).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Caregiver not found"})
		}
		booking.CaregiverID = &caregiverID

		var lastCall models.VideoCallRequest
		err := database.DB.Where(
			"care_recipient_id = ? AND caregiver_id = ? AND status = ? AND care_recipient_accepted = ? AND caregiver_accepted = ?",
			careRecipientID, caregiverID, "accepted", true, true,
		).Order("created_at DESC").First(&lastCall).Error
		if err == nil {
			booking.VideoCallRequestID = &lastCall.ID
		}

		session, _, err := services.EnsureChatSession(database.DB, careRecipientID, caregiverID, booking.VideoCallRequestID)
		if err == nil {
			booking.ChatSessionID = &session.ID
		}
	}

	if err := database.DB.Create(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create booking"})
	}

	if booking.CaregiverID != nil {
		caregiverID := *booking.CaregiverID
		if err := services.SetCaregiverAvailability(database.DB, caregiverID, "unavailable"); err == nil {
			notifications.NotifyBookingCreated(database.DB, caregiverID,
				services.UserFullName(database.DB, careRecipientID, "A care recipient"), booking.ID)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(booking)
}

func GetBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CareRecipientID != userID && (booking.CaregiverID == nil || *booking.CaregiverID != userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this booking"})
	}

	return c.JSON(booking)
}

type UpdateBookingBody struct {
	Status        *string                `json:"status" validate:"omitempty,oneof=pending accepted in_progress completed cancelled"`
	ScheduledDate *time.Time             `json:"scheduled_date"`
	DurationHours *float64               `json:"duration_hours" validate:"omitempty,gt=0,lte=24"`
	SpecificNeeds *string                `json:"specific_needs"`
	Location      map[string]interface{} `json:"location"`
}

// UpdateBooking applies a partial update from either party.
func UpdateBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req UpdateBookingBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CareRecipientID != userID && (booking.CaregiverID == nil || *booking.CaregiverID != userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this booking"})
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
		if *req.Status == "accepted" && booking.AcceptedAt == nil {
			updates["accepted_at"] = time.Now().UTC()
		}
	}
	if req.ScheduledDate != nil {
		updates["scheduled_date"] = *req.ScheduledDate
	}
	if req.DurationHours != nil {
		updates["duration_hours"] = *req.DurationHours
	}
	if req.SpecificNeeds != nil {
		updates["specific_needs"] = *req.SpecificNeeds
	}
	if req.Location != nil {
		updates["location"] = datatypes.JSONMap(req.Location)
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No fields to update"})
	}

	if err := database.DB.Model(&booking).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update booking"})
	}

	if req.Status != nil && booking.CaregiverID != nil {
		otherPartyID := *booking.CaregiverID
		actorName := services.UserFullName(database.DB, userID, "The other party")
		if userID == otherPartyID {
			otherPartyID = booking.CareRecipientID
		}
		notifications.NotifyBookingStatus(database.DB, otherPartyID, booking.ID, *req.Status, actorName)
	}

	database.DB.First(&booking, "id = ?", bookingID)
	return c.JSON(booking)
}

// CompleteBookingPayment moves a booking to accepted and force-enables the
// pair's chat session. Payment settlement and chat access travel together.
func CompleteBookingPayment(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CareRecipientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the care recipient can complete payment"})
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":               "accepted",
		"payment_status":       "completed",
		"payment_completed_at": now,
	}
	if booking.AcceptedAt == nil {
		updates["accepted_at"] = now
	}
	if err := database.DB.Model(&booking).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update booking"})
	}
	booking.Status = "accepted"
	booking.PaymentStatus = "completed"
	booking.PaymentCompletedAt = &now

	chatSessionID := services.CompletePaymentEffects(database.DB, &booking)

	response := fiber.Map{"message": "Payment completed", "booking": booking}
	if chatSessionID != nil {
		response["chat_session_id"] = chatSessionID
	}
	return c.JSON(response)
}

// CompleteBooking closes out a finished engagement and, when the caregiver
// has nothing else active, puts them back on the market. This is the only
// path that restores availability.
func CompleteBooking(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CareRecipientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the care recipient can complete the booking"})
	}
	if booking.Status == "completed" {
		return c.JSON(fiber.Map{"message": "Booking already completed", "booking": booking})
	}

	now := time.Now().UTC()
	err = database.DB.Model(&booking).Updates(map[string]interface{}{
		"status":       "completed",
		"completed_at": now,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete booking"})
	}
	booking.Status = "completed"
	booking.CompletedAt = &now

	if booking.CaregiverID != nil {
		caregiverID := *booking.CaregiverID
		notifications.NotifyBookingStatus(database.DB, caregiverID, booking.ID, "completed",
			services.UserFullName(database.DB, userID, "The care recipient"))
		if err := services.ReleaseCaregiverIfIdle(database.DB, caregiverID, booking.ID); err != nil {
			// availability stays stale rather than failing the completion
			log.Printf("🔥 Failed to release caregiver %s: %v", caregiverID, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Booking completed", "booking": booking})
}
