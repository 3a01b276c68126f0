package websocket

import (
	"context"
	"log"

	"github.com/anjiri1684/edutech_marketplace/middleware"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

// Event is the frame pushed to a user's connections.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type delivery struct {
	userID uuid.UUID
	event  Event
}

// Hub fans events out to every live connection of a user. All map access
// happens on the Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[Conn]struct{}
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	stopped    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[Conn]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		stopped:    make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for conn := range conns {
					conn.Close()
				}
			}
			return
		case client := <-h.register:
			conns, ok := h.clients[client.UserID]
			if !ok {
				conns = make(map[Conn]struct{})
				h.clients[client.UserID] = conns
			}
			conns[client.Conn] = struct{}{}
			log.Printf("Client registered: %s", client.UserID)
		case client := <-h.unregister:
			h.drop(client.UserID, client.Conn)
			log.Printf("Client unregistered: %s", client.UserID)
		case d := <-h.deliveries:
			for conn := range h.clients[d.userID] {
				if err := conn.WriteJSON(d.event); err != nil {
					log.Printf("Error sending %s to client %s: %v", d.event.Type, d.userID, err)
					conn.Close()
					h.drop(d.userID, conn)
				}
			}
		}
	}
}

func (h *Hub) drop(userID uuid.UUID, conn Conn) {
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
}

// Register adds the client. Once the hub has stopped the connection is
// closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
		c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Notify queues an event for a user. It never blocks the caller; when the
// queue is full the event is dropped.
func (h *Hub) Notify(userID uuid.UUID, eventType string, data interface{}) {
	select {
	case h.deliveries <- delivery{userID: userID, event: Event{Type: eventType, Data: data}}:
	default:
		log.Printf("⚠️ Notification queue full, dropping %s for %s", eventType, userID)
	}
}

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Handler authenticates the connection from its first frame and then keeps
// it registered until the client goes away. Incoming frames are ignored.
func (h *Hub) Handler(secret string) fiber.Handler {
	return websocketcontrib.New(func(c *websocketcontrib.Conn) {
		var auth authMessage
		if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
			_ = c.WriteJSON(fiber.Map{"type": "error", "error": "Invalid or missing auth message"})
			c.Close()
			return
		}
		id, err := middleware.ParseToken(secret, auth.Token)
		if err != nil {
			log.Printf("WebSocket auth failed: %v", err)
			_ = c.WriteJSON(fiber.Map{"type": "error", "error": "Invalid token"})
			c.Close()
			return
		}

		// Written before registering: the hub owns writes from then on.
		_ = c.WriteJSON(Event{Type: "auth.ok"})
		client := &Client{UserID: id.UserID, Conn: c}
		h.Register(client)
		defer func() {
			h.Unregister(client)
			c.Close()
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
					log.Printf("WebSocket read error for client %s: %v", id.UserID, err)
				}
				return
			}
		}
	})
}
