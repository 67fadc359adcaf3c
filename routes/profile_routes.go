package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	users := api.Group("/users", middleware.Protected())
	users.Get("/me", handlers.GetProfile)
	users.Patch("/me", handlers.UpdateProfile)
	users.Put("/me/location", handlers.UpdateLocation)
	users.Get("/me/location", handlers.GetLocation)
}
