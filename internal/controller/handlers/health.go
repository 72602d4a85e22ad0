package handlers

import (
	"net/http"

	"sponte/pkg/api"
)

// Healthz only proves the process serves HTTP.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.HealthResponse{Status: "healthy"})
}

// Readyz fails while the database is unreachable. The scheduler is reported
// but never fails the check; a controller with jobs disabled still serves.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ready", Checks: map[string]string{"database": "ok", "scheduler": "disabled"}}
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		resp.Status, resp.Checks["database"] = "unavailable", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if h.jobs != nil {
		resp.Checks["scheduler"] = "ok"
	}
	h.respondJson(w, code, resp)
}
