package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	storage Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, storage Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		storage: storage,
		version: version,
	}
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Version string `json:"version,omitempty"`
}

// Health обрабатывает GET /health
// Health check endpoint для мониторинга, 503 если хранилище недоступно
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Storage: "ok",
		Version: h.version,
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "storage health check failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode health response", slog.Any("error", err))
	}
}
