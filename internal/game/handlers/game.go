package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"conquest-server/internal/game"
	"conquest-server/internal/shared/errors"
	"conquest-server/internal/shared/response"
)

type GameHandler struct {
	service *game.Service
}

func NewGameHandler(service *game.Service) *GameHandler {
	return &GameHandler{service: service}
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var cfg game.CreateConfig
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	record, err := h.service.CreateGame(ctx, cfg)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, record)
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_games")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	summaries, err := h.service.ListGames(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if summaries == nil {
		summaries = []game.GameSummary{}
	}

	response.Success(w, http.StatusOK, summaries)
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_game")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	record, err := h.service.Get(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, record)
}

func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "join_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	record, slot, err := h.service.Join(ctx, gameID, req.Name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]interface{}{
		"slotIndex": slot,
		"game":      record,
	})
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "start_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	record, err := h.service.Start(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, record)
}

func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_game")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	if err := h.service.Delete(ctx, gameID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"deleted": gameID})
}
