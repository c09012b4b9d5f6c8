package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 3 * time.Second

// Pinger is satisfied by *pgxpool.Pool and both document stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusFunc reports the current state of a non-critical component, such
// as the geocoder circuit or the configured rebuild transport.
type StatusFunc func() string

// HealthHandler serves liveness and readiness checks. Backends gate
// readiness; components are reported but never make the service unready,
// since content writes still succeed when geocoding or rebuilds are down.
type HealthHandler struct {
	backends   map[string]Pinger
	components map[string]StatusFunc
	logger     *slog.Logger
}

func NewHealthHandler(backends map[string]Pinger, components map[string]StatusFunc, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{backends: backends, components: components, logger: logger}
}

type backendStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type readyzResponse struct {
	Status     string                   `json:"status"`
	Backends   map[string]backendStatus `json:"backends,omitempty"`
	Components map[string]string        `json:"components,omitempty"`
}

// Livez reports that the process can serve HTTP.
func (h *HealthHandler) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings the storage backends and snapshots component states.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := readyzResponse{
		Status:     "ok",
		Backends:   h.pingBackends(r.Context()),
		Components: h.componentStates(),
	}

	for _, bs := range resp.Backends {
		if bs.Status != "ok" {
			resp.Status = "unavailable"
		}
	}
	if resp.Status != "ok" {
		h.logger.Warn("store not ready", "backends", resp.Backends)
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) pingBackends(ctx context.Context) map[string]backendStatus {
	if len(h.backends) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]backendStatus, len(h.backends))
	)
	for name, p := range h.backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := p.Ping(ctx)
			bs := backendStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				bs.Status = "error"
				bs.Error = err.Error()
			}
			mu.Lock()
			out[name] = bs
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (h *HealthHandler) componentStates() map[string]string {
	if len(h.components) == 0 {
		return nil
	}
	out := make(map[string]string, len(h.components))
	for name, fn := range h.components {
		out[name] = fn()
	}
	return out
}
