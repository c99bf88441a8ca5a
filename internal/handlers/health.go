package handlers

import (
	"net/http"
)

// Health reports storage and redis connectivity
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if err := h.store.Health(); err != nil {
		checks["storage"] = "unhealthy"
		healthy = false
	} else {
		checks["storage"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			checks["redis"] = "unhealthy"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
