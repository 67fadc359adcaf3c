package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func NotificationRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	notifications := api.Group("/notifications", middleware.Protected())
	notifications.Get("", handlers.GetNotifications)
	notifications.Get("/unread-count", handlers.GetUnreadCount)
	notifications.Post("/read-all", handlers.MarkAllNotificationsRead)
	notifications.Post("/:notificationId/read", handlers.MarkNotificationRead)
	notifications.Delete("/:notificationId", handlers.DeleteNotification)

	devices := api.Group("/devices", middleware.Protected())
	devices.Post("/register", handlers.RegisterDevice)
	devices.Post("/unregister", handlers.UnregisterDevice)
}
