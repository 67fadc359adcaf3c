package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	videoCalls := api.Group("/video-calls", middleware.Protected())
	videoCalls.Post("", middleware.CareRecipientRequired(), handlers.CreateVideoCallRequest)
	videoCalls.Get("/me", handlers.GetMyVideoCallRequests)
	videoCalls.Get("/:callId", handlers.GetVideoCallRequest)
	videoCalls.Post("/:callId/respond", handlers.RespondToVideoCallRequest)
	videoCalls.Post("/:callId/complete", handlers.CompleteVideoCall)

	bookings := api.Group("/bookings", middleware.Protected())
	bookings.Post("", middleware.CareRecipientRequired(), handlers.CreateBooking)
	bookings.Get("/:bookingId", handlers.GetBooking)
	bookings.Patch("/:bookingId", handlers.UpdateBooking)
	bookings.Post("/:bookingId/complete-payment", middleware.CareRecipientRequired(), handlers.CompleteBookingPayment)
	bookings.Post("/:bookingId/complete", middleware.CareRecipientRequired(), handlers.CompleteBooking)
}
