package controllers

import (
	"context"
	"net/http"
	"time"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
}

// NewHealthController builds readiness over the named checks, for example
// "mongodb" and "redis".
func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

func (hc *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (hc *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			body[name] = "unavailable"
			body["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "connected"
	}
	writeJSON(w, status, body)
}
