package server

import (
	"log/slog"
	"net/http"

	"conquest-server/internal/game"
	gameHandlers "conquest-server/internal/game/handlers"
	serverHandlers "conquest-server/internal/server/handlers"
	"conquest-server/internal/storage"
)

type Routes struct {
	store       storage.Store
	gameService *game.Service
	logger      *slog.Logger
}

func NewRoutes(store storage.Store, gameService *game.Service, logger *slog.Logger) *Routes {
	return &Routes{
		store:       store,
		gameService: gameService,
		logger:      logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.store)
	gameHandler := gameHandlers.NewGameHandler(r.gameService)
	commandHandler := gameHandlers.NewCommandHandler(r.gameService)

	mux.Handle("/api/server/health", healthHandler)

	// Game lifecycle
	mux.HandleFunc("/api/games", gameHandler.GetGames)
	mux.HandleFunc("/api/games/create", gameHandler.CreateGame)
	mux.HandleFunc("/api/games/{id}", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodDelete {
			gameHandler.DeleteGame(w, req)
			return
		}
		gameHandler.GetGame(w, req)
	})
	mux.HandleFunc("/api/games/{id}/join", gameHandler.JoinGame)
	mux.HandleFunc("/api/games/{id}/start", gameHandler.StartGame)

	// Commands, one endpoint per kind
	mux.HandleFunc("/api/games/{id}/move", commandHandler.Move)
	mux.HandleFunc("/api/games/{id}/build", commandHandler.Build)
	mux.HandleFunc("/api/games/{id}/recruit", commandHandler.Recruit)
	mux.HandleFunc("/api/games/{id}/end-turn", commandHandler.EndTurn)
	mux.HandleFunc("/api/games/{id}/resign", commandHandler.Resign)
	mux.HandleFunc("/api/games/{id}/flush", commandHandler.Flush)

	logger.Info("Routes configured successfully",
		"lifecycle_endpoints", []string{"/api/games", "/api/games/create", "/api/games/{id}", "/api/games/{id}/join", "/api/games/{id}/start"},
		"command_endpoints", []string{"/api/games/{id}/move", "/api/games/{id}/build", "/api/games/{id}/recruit", "/api/games/{id}/end-turn", "/api/games/{id}/resign", "/api/games/{id}/flush"},
	)

	return mux
}
