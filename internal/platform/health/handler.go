// Package health serves liveness, readiness and status probes. Readiness
// distinguishes the backends a query cannot be answered without from the
// ones it can degrade around, such as the audit sink.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"saldo/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc checks one dependency and returns nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// DetailsFunc reports runtime figures for the status endpoint.
type DetailsFunc func() map[string]int

type check struct {
	fn       CheckFunc
	optional bool
}

// Handler provides health check endpoints.
type Handler struct {
	startTime    time.Time
	environment  string
	checkTimeout time.Duration

	mu      sync.RWMutex
	checks  map[string]check
	details DetailsFunc
}

// New creates a new health handler.
func New(environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		checkTimeout: 2 * time.Second,
		checks:       make(map[string]check),
	}
}

// RegisterCheck adds a check that must pass for the service to be ready.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn})
}

// RegisterOptionalCheck adds a check whose failure marks the service
// degraded but still ready.
func (h *Handler) RegisterOptionalCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn, optional: true})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// SetDetails installs the figures reported by the status endpoint.
func (h *Handler) SetDetails(fn DetailsFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.details = fn
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always returns 200 OK while the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check in parallel. It answers 503
// when a required check fails and "degraded" when only optional ones do.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	type outcome struct {
		name     string
		optional bool
		err      error
	}
	results := make(chan outcome, len(checks))
	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- outcome{name: name, optional: c.optional, err: c.fn(ctx)}
		}()
	}
	wg.Wait()
	close(results)

	response := ReadinessResponse{
		Status: "ready",
		Checks: make(map[string]string, len(checks)),
	}
	requiredDown := false
	for res := range results {
		switch {
		case res.err == nil:
			response.Checks[res.name] = "up"
		case res.optional:
			response.Checks[res.name] = "degraded: " + res.err.Error()
			if response.Status == "ready" {
				response.Status = "degraded"
			}
		default:
			response.Checks[res.name] = "down: " + res.err.Error()
			requiredDown = true
		}
	}

	if requiredDown {
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// StatusResponse is the response for the general health status endpoint.
type StatusResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Environment   string         `json:"environment"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Timestamp     string         `json:"timestamp"`
	Details       map[string]int `json:"details,omitempty"`
}

// HandleStatus returns version, uptime and the installed runtime details.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	details := h.details
	h.mu.RUnlock()

	resp := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if details != nil {
		resp.Details = details()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
