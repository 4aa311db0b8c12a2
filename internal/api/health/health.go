package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ledgerbot/pkg/logger"
)

// Checker reports the health of one dependency
type Checker interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checks      map[string]Checker
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. Checks may be empty when the
// bot runs without external stores.
func New(log *logger.Logger, checks map[string]Checker, serviceName, version string) *Handler {
	return &Handler{
		log:         log,
		checks:      checks,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Status represents the overall health status
type Status struct {
	Status    string                     `json:"status"` // "healthy", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks,omitempty"`
}

// HandleRoot answers the legacy liveness probe on GET /
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Bot is running!",
	})
}

// HandleLiveness returns 200 OK if the process is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks the configured dependencies
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := Status{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]ComponentHealth),
	}

	code := http.StatusOK
	for name, check := range h.checks {
		start := time.Now()
		err := check.Health(ctx)
		component := ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start).Round(time.Millisecond).String(),
		}
		if err != nil {
			component.Status = "unhealthy"
			component.Error = err.Error()
			status.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			h.log.Warnw("Readiness check failed", "component", name, "error", err)
		}
		status.Checks[name] = component
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
