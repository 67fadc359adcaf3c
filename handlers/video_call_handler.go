package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/notifications"
	"github.com/assistlink/assistlink_backend/services"
)

type CreateVideoCallRequestBody struct {
	CaregiverID     string    `json:"caregiver_id" validate:"required,uuid"`
	ScheduledTime   time.Time `json:"scheduled_time" validate:"required"`
	DurationSeconds int       `json:"duration_seconds" validate:"omitempty,min=1,max=60"`
}

// CreateVideoCallRequest opens a pending video call request from the
// authenticated care recipient to a caregiver.
func CreateVideoCallRequest(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	careRecipientID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req CreateVideoCallRequestBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	caregiverID := uuid.MustParse(req.CaregiverID)
	var caregiver models.User
	if err := database.DB.Where("id = ? AND role = ?", caregiverID, "caregiver").First(&caregiver).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Caregiver not found"})
	}
	if !caregiver.IsActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Caregiver account is not active"})
	}

	duration := req.DurationSeconds
	if duration == 0 {
		duration = 15
	}

	callURL := fmt.Sprintf("https://meet.assistlink.app/call/%s", uuid.New().String())
	videoCall := models.VideoCallRequest{
		CareRecipientID: careRecipientID,
		CaregiverID:     caregiverID,
		ScheduledTime:   req.ScheduledTime,
		DurationSeconds: duration,
		Status:          "pending",
		VideoCallURL:    &callURL,
	}
	if err := database.DB.Create(&videoCall).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create video call request"})
	}

	notifications.NotifyVideoCallRequested(database.DB, caregiverID,
		services.UserFullName(database.DB, careRecipientID, "A care recipient"), videoCall.ID)
	notifications.NotifyVideoCallScheduled(database.DB, careRecipientID,
		caregiver.FullName, videoCall.ID)

	return c.Status(fiber.StatusCreated).JSON(videoCall)
}

func GetVideoCallRequest(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	callID, err := uuid.Parse(c.Params("callId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video call id"})
	}

	var videoCall models.VideoCallRequest
	if err := database.DB.First(&videoCall, "id = ?", callID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Video call request not found"})
	}
	if videoCall.CareRecipientID != userID && videoCall.CaregiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this video call"})
	}

	return c.JSON(videoCall)
}

// GetMyVideoCallRequests lists the caller's video call requests on either
// side of the marketplace, newest first.
func GetMyVideoCallRequests(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	query := database.DB.Where("care_recipient_id = ? OR caregiver_id = ?", userID, userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var calls []models.VideoCallRequest
	if err := query.Order("created_at DESC").Find(&calls).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch video call requests"})
	}
	return c.JSON(calls)
}

type RespondToVideoCallBody struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RespondToVideoCallRequest records one party's accept or decline vote. A
// decline is final. When the vote completes mutual acceptance, the linked
// booking and chat session are provisioned in the same request.
func RespondToVideoCallRequest(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	callID, err := uuid.Parse(c.Params("callId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video call id"})
	}

	var req RespondToVideoCallBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	accept := *req.Accept

	var videoCall models.VideoCallRequest
	if err := database.DB.First(&videoCall, "id = ?", callID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Video call request not found"})
	}

	var actor services.Party
	var otherPartyID uuid.UUID
	switch userID {
	case videoCall.CareRecipientID:
		actor = services.PartyCareRecipient
		otherPartyID = videoCall.CaregiverID
	case videoCall.CaregiverID:
		actor = services.PartyCaregiver
		otherPartyID = videoCall.CareRecipientID
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this video call"})
	}

	before := services.AcceptanceState{
		CareRecipientAccepted: videoCall.CareRecipientAccepted,
		CaregiverAccepted:     videoCall.CaregiverAccepted,
		Status:                videoCall.Status,
	}
	after := services.MergeAcceptance(before, actor, accept)

	err = database.DB.Model(&videoCall).Updates(map[string]interface{}{
		"care_recipient_accepted": after.CareRecipientAccepted,
		"caregiver_accepted":      after.CaregiverAccepted,
		"status":                  after.Status,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update video call request"})
	}
	videoCall.CareRecipientAccepted = after.CareRecipientAccepted
	videoCall.CaregiverAccepted = after.CaregiverAccepted
	videoCall.Status = after.Status

	// an accept that lands on an already declined request changes nothing,
	// so the other party gets no "accepted" notification for it
	if !accept || after.Status != "declined" {
		actorName := services.UserFullName(database.DB, userID, "The other party")
		notifications.NotifyVideoCallResponse(database.DB, otherPartyID, actorName, videoCall.ID, accept)
	}

	response := fiber.Map{"video_call_request": videoCall}
	if accept && services.ShouldCreateBooking(before, after) {
		links := services.ActivateEngagement(database.DB, &videoCall)
		if links.BookingID != nil {
			response["booking_id"] = links.BookingID
		}
		if links.ChatSessionID != nil {
			response["chat_session_id"] = links.ChatSessionID
		}
	}

	return c.JSON(response)
}

// CompleteVideoCall marks a call as held. Completion feeds the availability
// derivation but deliberately does not release the caregiver; only booking
// completion does that.
func CompleteVideoCall(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	callID, err := uuid.Parse(c.Params("callId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video call id"})
	}

	var videoCall models.VideoCallRequest
	if err := database.DB.First(&videoCall, "id = ?", callID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Video call request not found"})
	}
	if videoCall.CareRecipientID != userID && videoCall.CaregiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this video call"})
	}
	if videoCall.Status != "accepted" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only accepted video calls can be completed"})
	}

	now := time.Now().UTC()
	err = database.DB.Model(&videoCall).Updates(map[string]interface{}{
		"status":       "completed",
		"completed_at": now,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete video call"})
	}
	videoCall.Status = "completed"
	videoCall.CompletedAt = &now

	return c.JSON(videoCall)
}
