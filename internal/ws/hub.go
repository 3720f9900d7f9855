// Package ws streams analysis results and speech over WebSocket.
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrSendBufferFull is returned by Send when the client is not reading.
var ErrSendBufferFull = errors.New("send buffer full")

// Envelope is the wire format for all WebSocket messages.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client represents a connected WebSocket client.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages WebSocket connections and message routing.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	handler MessageHandler
	origins map[string]bool // nil allows every origin
}

// MessageHandler processes incoming WebSocket messages.
type MessageHandler interface {
	HandleMessage(client *Client, env Envelope)
}

// DisconnectHandler is implemented by handlers that hold per-client state.
type DisconnectHandler interface {
	HandleDisconnect(client *Client)
}

// NewHub creates a new WebSocket hub accepting upgrades from origins. An
// empty list or a "*" entry accepts any origin.
func NewHub(handler MessageHandler, origins []string) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		handler: handler,
	}
	for _, o := range origins {
		if o == "*" {
			h.origins = nil
			break
		}
		if h.origins == nil {
			h.origins = make(map[string]bool)
		}
		h.origins[o] = true
	}
	return h
}

// ServeWS handles WebSocket upgrade requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if h.origins == nil {
				return true
			}
			return h.origins[r.Header.Get("Origin")]
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	slog.Info("client connected", "id", c.ID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	slog.Info("client disconnected", "id", c.ID)
	if dh, ok := h.handler.(DisconnectHandler); ok {
		dh.HandleDisconnect(c)
	}
}

// Send queues an envelope for the client. It is safe to call after the
// client has gone; the message is dropped.
func (c *Client) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return nil
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("websocket read error", "id", c.ID, "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			slog.Warn("invalid message format", "id", c.ID, "error", err)
			continue
		}

		c.hub.handler.HandleMessage(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
