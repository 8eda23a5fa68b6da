// Package server implements the TierStore HTTP API over the storage tier
// manager.
package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tierstore/tierstore/internal/catalog"
	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/media"
	"github.com/tierstore/tierstore/internal/notify"
	"github.com/tierstore/tierstore/internal/permission"
	"github.com/tierstore/tierstore/internal/storage"
)

// Server is the TierStore HTTP server.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	api        huma.API
	manager    *storage.Manager
	grants     *permission.Grants
	media      media.Store
	catalog    catalog.Store
	recorder   *notify.Recorder
	httpServer *http.Server
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithGrants exposes the runtime permission grants under /permissions.
func WithGrants(g *permission.Grants) ServerOption {
	return func(s *Server) {
		s.grants = g
	}
}

// WithMediaStore adds the media store to the health checks.
func WithMediaStore(m media.Store) ServerOption {
	return func(s *Server) {
		s.media = m
	}
}

// WithCatalog adds the catalog to the health checks.
func WithCatalog(c catalog.Store) ServerOption {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithRecorder exposes recent notifications under /notifications.
func WithRecorder(r *notify.Recorder) ServerOption {
	return func(s *Server) {
		s.recorder = r
	}
}

// New creates a Server routing to manager.
func New(cfg *config.Config, manager *storage.Manager, opts ...ServerOption) (*Server, error) {
	router := chi.NewMux()

	humaConfig := huma.DefaultConfig("TierStore API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	s := &Server{
		cfg:     cfg,
		router:  router,
		api:     api,
		manager: manager,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s, nil
}

// Handler returns the router wrapped in the middleware chain:
// metricsMiddleware -> commonHeaders -> router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = commonHeaders(handler)
	if s.cfg.Observability.Metrics {
		handler = metricsMiddleware(handler)
	}
	return handler
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.registerHealth()

	if s.cfg.Observability.Metrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.registerTiers()
	s.registerFiles()
	s.registerPermissions()
}
