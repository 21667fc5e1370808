package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"conquest-server/internal/game"
	"conquest-server/internal/shared/errors"
	"conquest-server/internal/shared/response"
)

// CommandHandler exposes one endpoint per command kind. Players are trusted
// by their slot index; there is no authentication layer in front of this.
type CommandHandler struct {
	service *game.Service
}

func NewCommandHandler(service *game.Service) *CommandHandler {
	return &CommandHandler{service: service}
}

type commandEvents struct {
	BattleReplays      []game.BattleReplay `json:"recentBattleReplays"`
	ConqueredLocations []int               `json:"conqueredLocations"`
}

type commandResponse struct {
	Success bool             `json:"success"`
	Game    *game.GameRecord `json:"game"`
	Events  commandEvents    `json:"events"`
}

func (h *CommandHandler) execute(w http.ResponseWriter, r *http.Request, logger *slog.Logger, cmd game.Command, deferWrite bool) {
	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	result, err := h.service.Execute(r.Context(), gameID, cmd, deferWrite)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, commandResponse{
		Success: true,
		Game:    result.Record,
		Events: commandEvents{
			BattleReplays:      result.Replays,
			ConqueredLocations: result.Conquered,
		},
	})
}

func decodeCommand(w http.ResponseWriter, r *http.Request, logger *slog.Logger, into interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return false
	}
	return true
}

func (h *CommandHandler) Move(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "move")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req struct {
		PlayerSlot int  `json:"playerSlot"`
		From       int  `json:"from"`
		To         int  `json:"to"`
		Count      int  `json:"count"`
		DeferWrite bool `json:"deferWrite"`
	}
	if !decodeCommand(w, r, logger, &req) {
		return
	}

	cmd := game.MoveCommand{Actor: req.PlayerSlot, From: req.From, To: req.To, Count: req.Count}
	h.execute(w, r, logger, cmd, req.DeferWrite)
}

func (h *CommandHandler) Build(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "build")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req struct {
		PlayerSlot int                `json:"playerSlot"`
		Location   int                `json:"location"`
		Structure  game.StructureType `json:"structure"`
		DeferWrite bool               `json:"deferWrite"`
	}
	if !decodeCommand(w, r, logger, &req) {
		return
	}

	cmd := game.BuildCommand{Actor: req.PlayerSlot, Location: req.Location, Structure: req.Structure}
	h.execute(w, r, logger, cmd, req.DeferWrite)
}

func (h *CommandHandler) Recruit(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "recruit")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req struct {
		PlayerSlot int  `json:"playerSlot"`
		Location   int  `json:"location"`
		DeferWrite bool `json:"deferWrite"`
	}
	if !decodeCommand(w, r, logger, &req) {
		return
	}

	cmd := game.RecruitCommand{Actor: req.PlayerSlot, Location: req.Location}
	h.execute(w, r, logger, cmd, req.DeferWrite)
}

func (h *CommandHandler) EndTurn(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "end_turn")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req struct {
		PlayerSlot int `json:"playerSlot"`
	}
	if !decodeCommand(w, r, logger, &req) {
		return
	}

	// Ending the turn always writes through: the turn is over, nothing else
	// is coming that could justify keeping the record in memory.
	cmd := game.EndTurnCommand{Actor: req.PlayerSlot}
	h.execute(w, r, logger, cmd, false)
}

func (h *CommandHandler) Resign(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "resign")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req struct {
		PlayerSlot int `json:"playerSlot"`
	}
	if !decodeCommand(w, r, logger, &req) {
		return
	}

	cmd := game.ResignCommand{Actor: req.PlayerSlot}
	h.execute(w, r, logger, cmd, false)
}

func (h *CommandHandler) Flush(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "flush")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID := r.PathValue("id")
	if gameID == "" {
		response.Error(w, r, logger, errors.Validation("game ID is required"))
		return
	}

	if err := h.service.Flush(r.Context(), gameID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"flushed": gameID})
}
