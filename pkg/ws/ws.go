// Package ws provides topic-scoped WebSocket fan-out using gorilla/websocket.
//
// The storefront uses one topic per order id so buyers watching the tracking
// page receive status transitions as they happen:
//
//	// In the route handler, after authorising the caller:
//	ws.Upgrade(c.W, c.R, ws.TrackingHub, orderID)
//
//	// From the order service, on a status change:
//	ws.TrackingHub.Publish(orderID, payload)
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oliveedge/oliveedge/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // tracking clients only send pongs
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins by default — restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default (allow-all) origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// TrackingHub is the process-wide hub for order tracking streams.
// Started by internal/server at boot.
var TrackingHub = NewHub()

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is a single connected WebSocket subscriber on one topic.
type Client struct {
	hub   *Hub
	topic string
	conn  *websocket.Conn
	send  chan []byte
}

// readPump discards inbound frames and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type publication struct {
	topic string
	data  []byte
}

// Hub groups clients by topic and fans published messages out to the
// subscribers of that topic only.
type Hub struct {
	topics     map[string]map[*Client]bool
	publish    chan publication
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub. Call hub.Run() in a goroutine at startup.
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		publish:    make(chan publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Publish fans data out to every client subscribed to topic.
// Non-blocking: drops the message if the hub's buffer is full.
func (h *Hub) Publish(topic string, data []byte) {
	select {
	case h.publish <- publication{topic: topic, data: data}:
	default:
		logger.Warn("ws: publish buffer full, dropping", "topic", topic)
	}
}

// Run starts the hub event loop. Must be run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			subs := h.topics[client.topic]
			if subs == nil {
				subs = make(map[*Client]bool)
				h.topics[client.topic] = subs
			}
			subs[client] = true

		case client := <-h.unregister:
			if subs, ok := h.topics[client.topic]; ok {
				if _, ok := subs[client]; ok {
					delete(subs, client)
					close(client.send)
					if len(subs) == 0 {
						delete(h.topics, client.topic)
					}
				}
			}

		case pub := <-h.publish:
			for client := range h.topics[pub.topic] {
				select {
				case client.send <- pub.data:
				default:
					close(client.send)
					delete(h.topics[pub.topic], client)
				}
			}
		}
	}
}

// SubscriberCount returns the number of clients on one topic.
// Only accurate when called from hub callbacks; used in tests.
func (h *Hub) SubscriberCount(topic string) int { return len(h.topics[topic]) }

// ─── Upgrade ─────────────────────────────────────────────────────────────────

// Upgrade upgrades an HTTP connection to a WebSocket subscribed to topic.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws: upgrade failed", "error", err)
		return
	}
	client := &Client{hub: hub, topic: topic, conn: conn, send: make(chan []byte, 256)}
	hub.register <- client
	go client.writePump()
	go client.readPump()
}
