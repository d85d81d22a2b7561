package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard runs on a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the frame pushed to subscribers: the original channel name and
// the parsed event, unmodified.
type envelope struct {
	Channel string                 `json:"channel"`
	Data    map[string]interface{} `json:"data"`
}

// clientCommand is what subscribers send to manage their scope set.
type clientCommand struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Scope  string `json:"scope"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	scopes map[string]bool
}

func (c *client) subscribed(scopes []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range scopes {
		if c.scopes[s] {
			return true
		}
	}
	return false
}

// Hub fans events out to connected dashboard clients. Each client joins one
// or more scopes (global, exchange:{exchange}, bot:{botId}) and receives an
// event at most once regardless of how many of its scopes match.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Broadcast implements the relay.Broadcaster contract. It never fails:
// clients with a full send buffer are dropped rather than blocking the relay.
func (h *Hub) Broadcast(channel string, scopes []string, event map[string]interface{}) {
	body, err := json.Marshal(envelope{Channel: channel, Data: event})
	if err != nil {
		logger.WithError(err).WithField("channel", channel).Warn("[ws] Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.subscribed(scopes) {
			continue
		}
		select {
		case c.send <- body:
		default:
			// Slow consumer; closing the send channel is handled by
			// the write pump noticing the hub removal.
			logger.Warn("[ws] Dropping event for slow client")
		}
	}
}

// HandleWS upgrades the connection and runs the client until it disconnects.
// New clients start subscribed to the global scope.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("[ws] Upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		scopes: map[string]bool{"global": true},
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(msg, &cmd); err != nil || cmd.Scope == "" {
			continue
		}

		c.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			c.scopes[cmd.Scope] = true
		case "unsubscribe":
			delete(c.scopes, cmd.Scope)
		}
		c.mu.Unlock()
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
