package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler interface {
	Check(w http.ResponseWriter, r *http.Request)
}

type healthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHealthHandler creates the health endpoint handler. A nil db makes
// the check trivially healthy.
func NewHealthHandler(db Pinger, timeout time.Duration, logger zerolog.Logger) HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &healthHandler{db: db, timeout: timeout, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

func (h *healthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
