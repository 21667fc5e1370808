package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"conquest-server/internal/shared/response"
	"conquest-server/internal/storage"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Storage   string `json:"storage"`
}

type HealthHandler struct {
	store storage.Store
}

func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	// The contract has no ping; a probe read answers the same question.
	storageStatus := "reachable"
	if _, err := h.store.Get(r.Context(), "health:probe"); err != nil {
		storageStatus = "unreachable"
		logger.Warn("Storage probe failed", "error", err)
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Storage:   storageStatus,
	}

	response.Success(w, http.StatusOK, resp)
}
