// Package notify pushes new game state to the relay for connected clients.
// Fan-out is strictly best-effort: a slow or dead relay is logged and
// swallowed, and never blocks or fails the command path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type MessageType string

const (
	TypeGameUpdate   MessageType = "gameUpdate"
	TypeGameStarted  MessageType = "gameStarted"
	TypePlayerJoined MessageType = "playerJoined"
	TypeGameEnded    MessageType = "gameEnded"
)

type Message struct {
	Type      MessageType `json:"type"`
	GameState interface{} `json:"gameState,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type envelope struct {
	GameID  string  `json:"gameId"`
	Message Message `json:"message"`
}

type Client struct {
	relayURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a fan-out client. An empty relay URL disables publishing.
func NewClient(relayURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		relayURL:   relayURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Enabled() bool {
	return c.relayURL != ""
}

// Publish posts a message to the relay. No response is required for
// correctness; any failure is recovered locally.
func (c *Client) Publish(ctx context.Context, gameID string, message Message) {
	if !c.Enabled() {
		return
	}

	logger := c.logger.With(
		"component", "notify",
		"operation", "publish",
		"game_id", gameID,
		"type", message.Type,
	)

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	payload, err := json.Marshal(envelope{GameID: gameID, Message: message})
	if err != nil {
		logger.Error("Failed to encode notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/notify", bytes.NewReader(payload))
	if err != nil {
		logger.Error("Failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Relay unreachable, notification dropped", "error", err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close relay response body", "error", err)
		}
	}()

	if resp.StatusCode >= 300 {
		logger.Warn("Relay rejected notification", "status", resp.StatusCode)
		return
	}

	logger.Debug("Notification published")
}
