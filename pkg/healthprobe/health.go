package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker provides health and readiness checks. Readiness is tracked
// per component so a stalled venue connection or recorder shows up by name.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// Register adds a component in the not-ready state.
func (h *HealthChecker) Register(component string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[component] = false
}

// SetReady marks one component's readiness.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[component] = ready
}

// allReady reports whether every registered component is ready. An empty
// component set counts as not ready.
func (h *HealthChecker) allReady() (map[string]bool, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make(map[string]bool, len(h.components))
	ready := len(h.components) > 0
	for name, ok := range h.components {
		snapshot[name] = ok
		if !ok {
			ready = false
		}
	}
	return snapshot, ready
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string          `json:"status"`
	Uptime     string          `json:"uptime"`
	Components map[string]bool `json:"components,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every registered component is ready, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components, ready := h.allReady()

		w.Header().Set("Content-Type", "application/json")

		if !ready {
			resp := HealthResponse{
				Status:     "not_ready",
				Components: components,
				Message:    "one or more components are not ready",
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status:     "ready",
			Uptime:     time.Since(h.startTime).String(),
			Components: components,
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
