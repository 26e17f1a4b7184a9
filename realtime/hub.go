package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type clientID string

type client struct {
	id   clientID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans status-change events out to the websocket connections of a user.
// Rooms are keyed by user id; a user may hold several connections (tabs).
// Delivery is best effort: a slow client drops events, it is never waited on.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[clientID]*client
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[clientID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Notify implements services.Notifier.
func (h *Hub) Notify(userID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to encode realtime event for user %s: %v", userID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[userID] {
		select {
		case c.send <- payload:
		default:
			log.Printf("Dropping realtime event for slow client %s (user %s)", c.id, userID)
		}
	}
}

// Serve upgrades the request and keeps the connection registered in the
// user's room until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed for user %s: %v", userID, err)
		return
	}

	c := &client{
		id:   clientID(uuid.NewString()),
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.register(userID, c)

	go c.writePump()
	c.readPump(func() { h.unregister(userID, c) })
}

// ConnectionCount reports the number of open connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[clientID]*client)
		h.rooms[userID] = room
	}
	room[c.id] = c
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		return
	}
	delete(room, c.id)
	if len(room) == 0 {
		delete(h.rooms, userID)
	}
	close(c.send)
}

// readPump discards inbound frames; the channel is push-only. It exists to
// notice closes and keep the pong deadline fresh.
func (c *client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
