package api

import (
	"context"
	"net/http"
	"time"

	"github.com/corpusd/corpusd/internal/log"
)

// readyTimeout bounds the storage ping in the readiness probe.
const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pinger Pinger
	logger log.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(pinger Pinger, logger log.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
}

// health reports process liveness.
func (h *HealthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports whether the storage backend is reachable.
func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Warn("readiness probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
