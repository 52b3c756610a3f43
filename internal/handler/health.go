package handler

import (
	"net/http"

	"github.com/askdb/askdb/internal/service"
)

// HealthHandler reports the state of the pipeline dependencies.
type HealthHandler struct {
	health service.Health
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(health service.Health) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health returns {database, llm, rag}. It always answers 200 so a partially
// available system can still be inspected.
// GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.health.Report(r.Context()))
}

// Ready answers 200 when every dependency is up and 503 otherwise.
// GET /readyz
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	report := h.health.Report(r.Context())
	status := "ok"
	code := http.StatusOK
	if !report.Healthy() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": report,
	})
}
