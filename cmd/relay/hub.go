package main

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks connected clients per game and broadcasts raw notification
// payloads to them. Delivery is best-effort: a client that cannot keep up is
// dropped, never waited on.
type Hub struct {
	mu    sync.Mutex
	games map[string]map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const clientSendBuffer = 16

func NewHub() *Hub {
	return &Hub{games: make(map[string]map[*client]bool)}
}

func (h *Hub) Subscribe(gameID string, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[*client]bool)
	}
	h.games[gameID][c] = true
	subscribers := len(h.games[gameID])
	h.mu.Unlock()

	slog.Debug("Client subscribed", "component", "hub", "game_id", gameID, "subscribers", subscribers)

	go h.writeLoop(gameID, c)
	go h.readLoop(gameID, c)
}

func (h *Hub) Broadcast(gameID string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.games[gameID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			// Slow client; drop it rather than block the broadcast.
			h.dropLocked(gameID, c)
		}
	}
	return delivered
}

func (h *Hub) drop(gameID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(gameID, c)
}

func (h *Hub) dropLocked(gameID string, c *client) {
	subscribers, ok := h.games[gameID]
	if !ok || !subscribers[c] {
		return
	}
	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.games, gameID)
	}
	close(c.send)
}

// writeLoop drains the send channel onto the socket until the client is
// dropped.
func (h *Hub) writeLoop(gameID string, c *client) {
	defer func() {
		if err := c.conn.Close(); err != nil {
			slog.Debug("Failed to close client connection", "component", "hub", "error", err)
		}
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Debug("Client write failed, dropping", "component", "hub", "game_id", gameID, "error", err)
			h.drop(gameID, c)
			return
		}
	}
}

// readLoop discards inbound frames; clients only listen. It exists to notice
// disconnects promptly.
func (h *Hub) readLoop(gameID string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(gameID, c)
			return
		}
	}
}
