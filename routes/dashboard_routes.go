package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func DashboardRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	dashboard := api.Group("/dashboard", middleware.Protected())
	dashboard.Get("/stats", handlers.GetDashboardStats)
	dashboard.Get("/bookings", handlers.GetDashboardBookings)
	dashboard.Get("/upcoming", handlers.GetUpcomingEngagements)
	dashboard.Get("/recurring", handlers.GetRecurringBookings)
}
