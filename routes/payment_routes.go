package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	payments := api.Group("/payments")
	payments.Get("/status", handlers.PaymentServiceStatus)
	payments.Post("/create-order", middleware.Protected(), middleware.CareRecipientRequired(), handlers.CreatePaymentOrder)
	payments.Post("/verify", middleware.Protected(), middleware.CareRecipientRequired(), handlers.VerifyPayment)
	// webhook is authenticated by its signature, not a JWT
	payments.Post("/webhook", handlers.HandlePaymentWebhook)
}
