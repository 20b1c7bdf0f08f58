package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/auth-gateway/internal/repository"
)

// HealthHandler reports whether the credential store is reachable.
type HealthHandler struct {
	store  repository.Pinger
	logger *slog.Logger
}

func NewHealthHandler(store repository.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HandleHealth → 200 {"status":"ok"} or 503 {"status":"unavailable"}.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
