package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/assistlink/assistlink_backend/handlers"
	"github.com/assistlink/assistlink_backend/middleware"
)

func ChatRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	chat := api.Group("/chat", middleware.Protected())
	chat.Get("/sessions", handlers.GetChatSessions)
	chat.Get("/sessions/:sessionId", handlers.GetChatSession)
	chat.Post("/sessions/:sessionId/respond", handlers.RespondToChatSession)
	chat.Get("/sessions/:sessionId/messages", handlers.GetMessages)
	chat.Post("/sessions/:sessionId/messages", handlers.SendMessage)
	chat.Post("/sessions/:sessionId/read", handlers.MarkMessagesRead)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", handlers.ServeWs())
}
