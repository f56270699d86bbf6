package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds all dependency pings of one readiness probe.
const readyTimeout = 5 * time.Second

// Pinger is a dependency the readiness probe can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type namedPinger struct {
	name   string
	pinger Pinger
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks []namedPinger
	guards map[string]string
}

// HealthHandlerOption configures the health handler.
type HealthHandlerOption func(*HealthHandler)

// WithCheck adds a dependency pinged by Ready.
func WithCheck(name string, p Pinger) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.checks = append(h.checks, namedPinger{name: name, pinger: p})
	}
}

// WithRedis adds a Redis check. Only set it when a component uses Redis.
func WithRedis(redis Pinger) HealthHandlerOption {
	return WithCheck("redis", redis)
}

// WithGuardStatus reports how each guard is configured, e.g.
// {"rate_limit": "redis", "captcha": "disabled"}. Values must not carry
// secrets.
func WithGuardStatus(status map[string]string) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.guards = status
	}
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(opts ...HealthHandlerOption) *HealthHandler {
	h := &HealthHandler{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health always answers 200 while the process serves HTTP.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Guards    map[string]string      `json:"guards,omitempty"`
}

// CheckResult is the outcome of one dependency ping. Error never carries the
// underlying cause, which may contain internal addresses.
type CheckResult struct {
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ready pings every dependency concurrently and answers 503 when any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make([]CheckResult, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ping(ctx, c.pinger)
		}()
	}
	wg.Wait()

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Guards:    h.guards,
	}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]CheckResult, len(h.checks))
	}
	for i, c := range h.checks {
		resp.Checks[c.name] = results[i]
		if results[i].Status != "ok" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSONResponse(w, status, resp)
}

func ping(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	err := p.Ping(ctx)
	res := CheckResult{Status: "ok", Duration: time.Since(start).String()}
	if err != nil {
		res.Status = "error"
		res.Error = "unreachable"
	}
	return res
}
