package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/assistlink/assistlink_backend/models"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// MessagePayload is what a connected client sends to post into a chat
// session over the socket.
type MessagePayload struct {
	ChatSessionID string `json:"chat_session_id"`
	Content       string `json:"content"`
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan *models.Message)

func init() {
	go RunHub()
}

// RunHub fans persisted messages out to the recipient's live connection.
// Messages already carry their recipient, so delivery needs no lookup; a
// write failure drops the connection and the client is expected to
// reconnect and backfill over the REST history endpoint.
func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Chat client connected: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Chat client disconnected: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case message := <-Broadcast:
			clientsMu.RLock()
			conn, ok := clients[message.RecipientID]
			clientsMu.RUnlock()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(message); err != nil {
				log.Printf("Error delivering message to client %s: %v", message.RecipientID, err)
				conn.Close()
				clientsMu.Lock()
				if cur, ok := clients[message.RecipientID]; ok && cur == conn {
					delete(clients, message.RecipientID)
				}
				clientsMu.Unlock()
			}
		}
	}
}
