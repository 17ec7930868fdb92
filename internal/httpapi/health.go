package httpapi

import (
	"context"
	"net/http"
	"time"
)

type healthBody struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment,omitempty"`
	Version     string            `json:"version,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:      "ok",
		Timestamp:   s.now().UTC(),
		Environment: s.env,
		Version:     apiVersion,
	})
}

func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "alive", Timestamp: s.now().UTC()})
}

// readiness answers 503 if any dependency check fails.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.checkTimeout)
	defer cancel()

	body := healthBody{Status: "ready", Timestamp: s.now().UTC()}
	status := http.StatusOK
	if len(s.checks) > 0 {
		body.Checks = make(map[string]string, len(s.checks))
	}
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.log.Warn(ctx, "readiness check failed", "check", c.Name, "error", err)
			body.Checks[c.Name] = "down"
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Checks[c.Name] = "up"
	}
	writeJSON(w, status, body)
}
