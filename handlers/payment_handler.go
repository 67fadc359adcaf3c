package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	config "github.com/assistlink/assistlink_backend/configs"
	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/payments"
	"github.com/assistlink/assistlink_backend/services"
)

// PaymentServiceStatus lets clients probe whether checkout is available
// before rendering a pay button.
func PaymentServiceStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"configured":     payments.Configured(),
		"key_id_set":     config.Config("RAZORPAY_KEY_ID") != "",
		"key_secret_set": config.Config("RAZORPAY_KEY_SECRET") != "",
	})
}

type CreatePaymentOrderBody struct {
	BookingID string   `json:"booking_id" validate:"required,uuid"`
	Amount    *float64 `json:"amount" validate:"omitempty,gt=0"`
	Currency  string   `json:"currency" validate:"omitempty,len=3"`
}

// CreatePaymentOrder opens a Razorpay order for a booking and pins the order
// id to it. Calling it again for an already paid booking returns the stored
// order instead of charging twice.
func CreatePaymentOrder(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req CreatePaymentOrderBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	bookingID := uuid.MustParse(req.BookingID)
	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.CareRecipientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the care recipient can pay for this booking"})
	}
	if booking.PaymentStatus == "completed" {
		return c.JSON(fiber.Map{
			"message":    "Booking is already paid",
			"booking_id": booking.ID,
			"order_id":   booking.RazorpayOrderID,
		})
	}

	amount := 500.0
	if req.Amount != nil {
		amount = *req.Amount
	} else if booking.Amount != nil {
		amount = *booking.Amount
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	orderID, err := payments.CreateOrder(amount, currency, fmt.Sprintf("booking-%s", booking.ID))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create payment order"})
	}

	err = database.DB.Model(&booking).Updates(map[string]interface{}{
		"razorpay_order_id": orderID,
		"amount":            amount,
		"currency":          currency,
		"payment_status":    "pending",
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment order"})
	}

	return c.JSON(fiber.Map{
		"order_id":   orderID,
		"amount":     amount,
		"currency":   currency,
		"key_id":     config.Config("RAZORPAY_KEY_ID"),
		"booking_id": booking.ID,
	})
}

type VerifyPaymentBody struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment is the synchronous settlement path. The client-supplied
// signature is checked against the key secret, then the payment is
// re-fetched from Razorpay so a forged client cannot claim a capture that
// never happened.
func VerifyPayment(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req VerifyPaymentBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.Where("razorpay_order_id = ?", req.RazorpayOrderID).First(&booking).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No booking found for this order"})
	}
	if booking.CareRecipientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the care recipient can verify this payment"})
	}
	if booking.PaymentStatus == "completed" {
		return c.JSON(fiber.Map{
			"success":         true,
			"message":         "Payment already processed",
			"booking_id":      booking.ID,
			"chat_session_id": booking.ChatSessionID,
		})
	}

	if !payments.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment signature"})
	}

	payment, err := payments.FetchPayment(req.RazorpayPaymentID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to verify payment with provider"})
	}
	status, _ := payment["status"].(string)
	if status != "captured" && status != "authorized" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("Payment is not settled (status: %s)", status)})
	}

	chatSessionID := settleBookingPayment(&booking, req.RazorpayPaymentID)

	return c.JSON(fiber.Map{
		"success":         true,
		"message":         "Payment verified",
		"booking_id":      booking.ID,
		"chat_session_id": chatSessionID,
	})
}

type razorpayWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandlePaymentWebhook is the asynchronous settlement path. It converges
// with VerifyPayment on the same effects; the payment_status guard makes
// whichever path lands second a no-op.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Razorpay-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing webhook signature"})
	}

	var payload razorpayWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	if payload.Event != "payment.captured" {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	entity := payload.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook payload missing payment identifiers"})
	}

	var booking models.Booking
	if err := database.DB.Where("razorpay_order_id = ?", entity.OrderID).First(&booking).Error; err != nil {
		log.Printf("Webhook for unknown order %s, ignoring", entity.OrderID)
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	if booking.PaymentStatus == "completed" {
		return c.JSON(fiber.Map{"status": "already_processed"})
	}

	if !payments.VerifySignature(entity.OrderID, entity.ID, signature) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook signature"})
	}

	settleBookingPayment(&booking, entity.ID)

	return c.JSON(fiber.Map{"status": "success"})
}

// settleBookingPayment applies the shared effects of a confirmed payment:
// mark the booking paid and accepted, then run the downstream chat and
// availability changes.
func settleBookingPayment(booking *models.Booking, paymentID string) *uuid.UUID {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"payment_status":       "completed",
		"razorpay_payment_id":  paymentID,
		"payment_completed_at": now,
		"status":               "accepted",
	}
	if booking.AcceptedAt == nil {
		updates["accepted_at"] = now
	}
	if err := database.DB.Model(booking).Updates(updates).Error; err != nil {
		log.Printf("🔥 Failed to record payment for booking %s: %v", booking.ID, err)
		return nil
	}
	booking.PaymentStatus = "completed"
	booking.Status = "accepted"
	booking.PaymentCompletedAt = &now

	return services.CompletePaymentEffects(database.DB, booking)
}
