package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
)

// GetDashboardStats summarizes the caller's side of the marketplace.
func GetDashboardStats(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role := claims["role"].(string)

	partyColumn := "care_recipient_id"
	if role == "caregiver" {
		partyColumn = "caregiver_id"
	}

	var totalBookings, activeBookings, completedBookings int64
	database.DB.Model(&models.Booking{}).Where(partyColumn+" = ?", userID).Count(&totalBookings)
	database.DB.Model(&models.Booking{}).
		Where(partyColumn+" = ? AND status IN ?", userID, []string{"pending", "accepted", "in_progress"}).
		Count(&activeBookings)
	database.DB.Model(&models.Booking{}).
		Where(partyColumn+" = ? AND status = ?", userID, "completed").Count(&completedBookings)

	var pendingVideoCalls int64
	database.DB.Model(&models.VideoCallRequest{}).
		Where(partyColumn+" = ? AND status = ?", userID, "pending").Count(&pendingVideoCalls)

	var unreadMessages int64
	database.DB.Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).Count(&unreadMessages)

	var activeChatSessions int64
	database.DB.Model(&models.ChatSession{}).
		Where("(care_recipient_id = ? OR caregiver_id = ?) AND is_enabled = ?", userID, userID, true).
		Count(&activeChatSessions)

	var unreadNotifications int64
	database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&unreadNotifications)

	return c.JSON(fiber.Map{
		"total_bookings":       totalBookings,
		"active_bookings":      activeBookings,
		"completed_bookings":   completedBookings,
		"pending_video_calls":  pendingVideoCalls,
		"unread_messages":      unreadMessages,
		"active_chat_sessions": activeChatSessions,
		"unread_notifications": unreadNotifications,
	})
}

// GetDashboardBookings lists the caller's bookings, optionally filtered by a
// comma separated status list.
func GetDashboardBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role := claims["role"].(string)

	query := database.DB.Model(&models.Booking{})
	if role == "caregiver" {
		query = query.Where("caregiver_id = ?", userID)
	} else {
		query = query.Where("care_recipient_id = ?", userID)
	}

	if statusParam := c.Query("status"); statusParam != "" {
		statuses := strings.Split(statusParam, ",")
		for i := range statuses {
			statuses[i] = strings.TrimSpace(statuses[i])
		}
		query = query.Where("status IN ?", statuses)
	}

	var bookings []models.Booking
	if err := query.Order("scheduled_date DESC").Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bookings"})
	}
	return c.JSON(bookings)
}

// GetRecurringBookings lists the caller's recurring bookings.
func GetRecurringBookings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role := claims["role"].(string)

	partyColumn := "care_recipient_id"
	if role == "caregiver" {
		partyColumn = "caregiver_id"
	}

	var bookings []models.Booking
	err = database.DB.
		Where(partyColumn+" = ? AND is_recurring = ?", userID, true).
		Order("scheduled_date DESC").Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch recurring bookings"})
	}
	return c.JSON(bookings)
}

// GetUpcomingEngagements returns bookings and video calls scheduled within
// the next seven days.
func GetUpcomingEngagements(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	role := claims["role"].(string)

	partyColumn := "care_recipient_id"
	if role == "caregiver" {
		partyColumn = "caregiver_id"
	}

	now := time.Now().UTC()
	horizon := now.Add(7 * 24 * time.Hour)

	var bookings []models.Booking
	err = database.DB.
		Where(partyColumn+" = ? AND status IN ? AND scheduled_date BETWEEN ? AND ?",
			userID, []string{"pending", "accepted", "in_progress"}, now, horizon).
		Order("scheduled_date ASC").Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch upcoming bookings"})
	}

	var videoCalls []models.VideoCallRequest
	err = database.DB.
		Where(partyColumn+" = ? AND status IN ? AND scheduled_time BETWEEN ? AND ?",
			userID, []string{"pending", "accepted"}, now, horizon).
		Order("scheduled_time ASC").Find(&videoCalls).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch upcoming video calls"})
	}

	return c.JSON(fiber.Map{
		"bookings":    bookings,
		"video_calls": videoCalls,
	})
}
