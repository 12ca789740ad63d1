package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Telegram WebApp origin varies; auth happens before upgrade
	},
}

// Hub fans realtime match and message events out to connected users.
// All client map access is confined to the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan targetedEvent
}

type targetedEvent struct {
	userID  uint
	payload []byte
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// MessageEvent is pushed to the counterpart when a message is appended.
type MessageEvent struct {
	Type      string `json:"type"`
	MatchID   uint   `json:"match_id"`
	SenderID  uint   `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// MatchEvent is pushed to both users the moment a mutual like
// creates a match. Counterpart carries the other user's profile.
type MatchEvent struct {
	Type        string      `json:"type"`
	MatchID     uint        `json:"match_id"`
	Counterpart interface{} `json:"counterpart"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	MatchID  uint   `json:"match_id"`
	UserID   uint   `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan targetedEvent, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logrus.WithField("user_id", client.userID).Debug("websocket client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logrus.WithField("user_id", client.userID).Debug("websocket client disconnected")
			}

		case event := <-h.broadcast:
			for client := range h.clients {
				if client.userID != event.userID {
					continue
				}
				select {
				case client.send <- event.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastToUser queues an event for every connection the user has
// open. Safe to call from any goroutine.
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.broadcast <- targetedEvent{userID: userID, payload: message}
}

func HandleWebSocket(hub *Hub, c *gin.Context, userID uint) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read error")
			}
			break
		}

		var message map[string]interface{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			continue
		}

		switch message["type"] {
		case "typing", "stop_typing":
			matchID, ok := message["match_id"].(float64)
			if !ok {
				continue
			}
			target, ok := message["to_user_id"].(float64)
			if !ok {
				continue
			}
			event := TypingEvent{
				Type:     "typing",
				MatchID:  uint(matchID),
				UserID:   c.userID,
				IsTyping: message["type"] == "typing",
			}
			if payload, err := json.Marshal(event); err == nil {
				c.hub.BroadcastToUser(uint(target), payload)
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logrus.WithError(err).Debug("websocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
