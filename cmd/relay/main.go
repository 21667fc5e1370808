// The relay is the companion push-notification service: the game server
// POSTs state updates to /notify and connected clients receive them over
// WebSocket. It holds no game state and makes no correctness promises; the
// engine works identically with the relay down.
package main

import (
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type notifyEnvelope struct {
	GameID  string          `json:"gameId"`
	Message json.RawMessage `json:"message"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	port := os.Getenv("RELAY_PORT")
	if port == "" {
		port = "8090"
	}

	hub := NewHub()

	router := mux.NewRouter()
	router.HandleFunc("/notify", handleNotify(hub)).Methods(http.MethodPost)
	router.HandleFunc("/ws/{gameId}", handleWS(hub)).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Relay starting", "component", "relay", "port", port)
	log.Fatal(srv.ListenAndServe())
}

func handleNotify(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With("component", "relay", "handler", "notify")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
		if err != nil {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}

		var envelope notifyEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.GameID == "" {
			http.Error(w, "invalid notification payload", http.StatusBadRequest)
			return
		}

		delivered := hub.Broadcast(envelope.GameID, envelope.Message)
		logger.Debug("Notification relayed", "game_id", envelope.GameID, "delivered", delivered)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With("component", "relay", "handler", "ws")

		gameID := mux.Vars(r)["gameId"]
		if gameID == "" {
			http.Error(w, "game ID is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}

		hub.Subscribe(gameID, conn)
	}
}
