package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	config "github.com/assistlink/assistlink_backend/configs"
	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/notifications"
	"github.com/assistlink/assistlink_backend/services"
	ws "github.com/assistlink/assistlink_backend/websocket"
)

// GetChatSessions lists the caller's chat sessions with the other party's
// name and the latest message attached.
func GetChatSessions(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var sessions []models.ChatSession
	err = database.DB.Where("care_recipient_id = ? OR caregiver_id = ?", userID, userID).
		Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch chat sessions"})
	}

	result := make([]fiber.Map, 0, len(sessions))
	for _, session := range sessions {
		otherPartyID := session.CaregiverID
		if userID == session.CaregiverID {
			otherPartyID = session.CareRecipientID
		}

		var lastMessage *models.Message
		var msg models.Message
		if err := database.DB.Where("chat_session_id = ?", session.ID).
			Order("created_at DESC").First(&msg).Error; err == nil {
			lastMessage = &msg
		}

		result = append(result, fiber.Map{
			"session":          session,
			"other_party_id":   otherPartyID,
			"other_party_name": services.UserFullName(database.DB, otherPartyID, "Unknown"),
			"last_message":     lastMessage,
		})
	}
	return c.JSON(result)
}

func GetChatSession(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	session, status, err := loadChatSession(c, userID, false)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(session)
}

// RespondToChatSession records one party's opt-in (or withdrawal) to chat.
// The session unlocks only once both parties have opted in; a completed
// payment bypasses this handshake entirely.
func RespondToChatSession(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	type Request struct {
		Accept *bool `json:"accept" validate:"required"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	accept := *req.Accept

	session, status, err := loadChatSession(c, userID, false)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if userID == session.CareRecipientID {
		session.CareRecipientAccepted = accept
	} else {
		session.CaregiverAccepted = accept
	}

	updates := map[string]interface{}{
		"care_recipient_accepted": session.CareRecipientAccepted,
		"caregiver_accepted":      session.CaregiverAccepted,
	}
	justEnabled := false
	if accept && session.CareRecipientAccepted && session.CaregiverAccepted && !session.IsEnabled {
		now := time.Now().UTC()
		updates["is_enabled"] = true
		updates["enabled_at"] = now
		session.IsEnabled = true
		session.EnabledAt = &now
		justEnabled = true
	}

	if err := database.DB.Model(&models.ChatSession{}).Where("id = ?", session.ID).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update chat session"})
	}

	if justEnabled {
		notifications.NotifyChatEnabled(database.DB, session.CareRecipientID,
			services.UserFullName(database.DB, session.CaregiverID, "your caregiver"), session.ID)
		notifications.NotifyChatEnabled(database.DB, session.CaregiverID,
			services.UserFullName(database.DB, session.CareRecipientID, "your care recipient"), session.ID)
	}

	return c.JSON(session)
}

func GetMessages(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	session, status, err := loadChatSession(c, userID, false)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var messages []models.Message
	err = database.DB.Where("chat_session_id = ?", session.ID).
		Order("created_at ASC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(messages)
}

type SendMessageBody struct {
	Content       string  `json:"content" validate:"required,min=1,max=5000"`
	MessageType   string  `json:"message_type" validate:"omitempty,oneof=text image file"`
	AttachmentURL *string `json:"attachment_url"`
}

func SendMessage(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req SendMessageBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, status, err := loadChatSession(c, userID, true)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	message, status, err := postMessage(session, userID, req.Content, req.MessageType, req.AttachmentURL)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// MarkMessagesRead stamps every unread message addressed to the caller in
// the session.
func MarkMessagesRead(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	session, status, err := loadChatSession(c, userID, false)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	result := database.DB.Model(&models.Message{}).
		Where("chat_session_id = ? AND recipient_id = ? AND read_at IS NULL", session.ID, userID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark messages read"})
	}
	return c.JSON(fiber.Map{"marked_read": result.RowsAffected})
}

// loadChatSession fetches the session from the sessionId route param and
// enforces membership, optionally requiring the session to be enabled.
func loadChatSession(c *fiber.Ctx, userID uuid.UUID, requireEnabled bool) (*models.ChatSession, int, error) {
	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return nil, fiber.StatusBadRequest, errors.New("invalid chat session id")
	}

	var session models.ChatSession
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, fiber.StatusNotFound, errors.New("chat session not found")
	}
	if session.CareRecipientID != userID && session.CaregiverID != userID {
		return nil, fiber.StatusForbidden, errors.New("not a participant of this chat")
	}
	if requireEnabled && !session.IsEnabled {
		return nil, fiber.StatusForbidden, errors.New("chat is not enabled yet")
	}
	return &session, fiber.StatusOK, nil
}

// postMessage persists a message, notifies the recipient and pushes it to
// their live socket if there is one. Shared by the REST and websocket paths.
func postMessage(session *models.ChatSession, senderID uuid.UUID, content, messageType string, attachmentURL *string) (*models.Message, int, error) {
	if !session.IsEnabled {
		return nil, fiber.StatusForbidden, errors.New("chat is not enabled yet")
	}
	recipientID := session.CaregiverID
	if senderID == session.CaregiverID {
		recipientID = session.CareRecipientID
	}
	if messageType == "" {
		messageType = "text"
	}

	message := models.Message{
		ChatSessionID: session.ID,
		SenderID:      senderID,
		RecipientID:   recipientID,
		Content:       content,
		MessageType:   messageType,
		AttachmentURL: attachmentURL,
	}
	if err := database.DB.Create(&message).Error; err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("failed to send message")
	}

	notifications.NotifyNewMessage(database.DB, recipientID,
		services.UserFullName(database.DB, senderID, "Someone"), session.ID, content)
	ws.Broadcast <- &message

	return &message, fiber.StatusCreated, nil
}

// ServeWs upgrades to a websocket. The first frame must be {"token": "..."};
// after that each frame is a MessagePayload posted into a chat session the
// user belongs to, subject to the same enablement rules as the REST path.
func ServeWs() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		var auth struct {
			Token string `json:"token"`
		}
		if err := conn.ReadJSON(&auth); err != nil {
			conn.WriteJSON(fiber.Map{"error": "expected auth message"})
			conn.Close()
			return
		}

		userID, err := parseWsToken(auth.Token)
		if err != nil {
			conn.WriteJSON(fiber.Map{"error": "invalid token"})
			conn.Close()
			return
		}

		client := &ws.Client{UserID: userID, Conn: conn}
		ws.Register <- client
		defer func() {
			ws.Unregister <- client
			conn.Close()
		}()

		for {
			var payload ws.MessagePayload
			if err := conn.ReadJSON(&payload); err != nil {
				return
			}
			sessionID, err := uuid.Parse(payload.ChatSessionID)
			if err != nil || payload.Content == "" {
				conn.WriteJSON(fiber.Map{"error": "invalid message payload"})
				continue
			}

			var session models.ChatSession
			if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
				conn.WriteJSON(fiber.Map{"error": "chat session not found"})
				continue
			}
			if session.CareRecipientID != userID && session.CaregiverID != userID {
				conn.WriteJSON(fiber.Map{"error": "not a participant of this chat"})
				continue
			}

			message, _, err := postMessage(&session, userID, payload.Content, "text", nil)
			if err != nil {
				conn.WriteJSON(fiber.Map{"error": err.Error()})
				continue
			}
			if err := conn.WriteJSON(message); err != nil {
				log.Printf("Error echoing message to sender %s: %v", userID, err)
				return
			}
		}
	})
}

func parseWsToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing user_id claim")
	}
	return uuid.Parse(userIDStr)
}
