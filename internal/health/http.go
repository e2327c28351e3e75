package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// HTTPHandler serves the health endpoints.
type HTTPHandler struct {
	manager *Manager
}

// NewHTTPHandler creates a new HTTP handler for health checks.
func NewHTTPHandler(manager *Manager) *HTTPHandler {
	return &HTTPHandler{manager: manager}
}

// RegisterRoutes registers health check endpoints with an HTTP mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/health/ready", h.handleHealth)
	mux.HandleFunc("/health/live", h.handleLiveness)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	results, ok := h.manager.Check(r.Context())

	status := StatusHealthy
	code := http.StatusOK
	if !ok {
		status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now(),
	})
}

// handleLiveness only confirms the process is serving requests.
func (h *HTTPHandler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": StatusHealthy})
}
