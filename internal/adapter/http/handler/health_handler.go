package handler

import (
	"net/http"

	"github.com/v4vapp/bridge/internal/usecase"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	health *usecase.HealthUseCase
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(health *usecase.HealthUseCase) *HealthHandler {
	return &HealthHandler{health: health}
}

// Liveness returns 200 if the process is alive, without probing dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness polls every registered dependency (postgres, redis, hive node,
// lnd) and returns 503 if any is unhealthy.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := h.health.CheckAll(r.Context())

	status := http.StatusOK
	if !usecase.AllHealthy(checks) {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": statusLabel(status),
		"checks": checks,
	})
}

func statusLabel(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "unready"
}
