package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func CaregiverRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	caregivers := api.Group("/caregivers", middleware.Protected())
	caregivers.Get("", handlers.ListCaregivers)
	caregivers.Get("/me", middleware.CaregiverRequired(), handlers.GetMyCaregiverProfile)
	caregivers.Put("/me", middleware.CaregiverRequired(), handlers.UpsertCaregiverProfile)
	caregivers.Put("/me/availability", middleware.CaregiverRequired(), handlers.SetAvailabilityStatus)
	caregivers.Get("/:caregiverId", handlers.GetCaregiver)
}
