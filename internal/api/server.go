package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/metrics"
)

// ServerOption configures optional parts of the server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	components map[string]StatusFunc
}

// WithStatus adds a component reported by /v1/readyz. Its state is
// informational and never fails the readiness check.
func WithStatus(name string, fn StatusFunc) ServerOption {
	return func(o *serverOptions) {
		if o.components == nil {
			o.components = make(map[string]StatusFunc)
		}
		o.components[name] = fn
	}
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(logger *slog.Logger, svc *collection.Service, backends map[string]Pinger, opts ...ServerOption) http.Handler {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	api := humachi.New(mux, huma.DefaultConfig("rebuilder", "1.0.0"))

	registerDocumentRoutes(api, NewDocumentHandler(svc, logger))
	registerGlobalRoutes(api, NewGlobalHandler(svc, logger))
	registerRebuildRoutes(api, NewRebuildHandler(svc, logger))

	health := NewHealthHandler(backends, o.components, logger)
	mux.Get("/v1/livez", health.Livez)
	mux.Get("/v1/readyz", health.Readyz)
	mux.Get("/v1/health", health.Readyz)

	mux.Handle("/metrics", metrics.Handler())

	return mux
}
