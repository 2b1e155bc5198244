package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health probes.
type SystemHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewSystemHandler creates a SystemHandler checking the named dependencies
// on readiness probes.
func NewSystemHandler(checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{checks: checks, timeout: 2 * time.Second}
}

// Healthz reports liveness.
// GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings every dependency and answers 503 when any is down.
// GET /readyz
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	failed := map[string]interface{}{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeError(w, http.StatusServiceUnavailable, "Not ready", failed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
