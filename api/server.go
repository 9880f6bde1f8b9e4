// Package api exposes the vector store over HTTP REST.
//
// Endpoints:
//
//	GET  /health                                  → liveness probe
//	GET  /ready                                   → readiness probe (pings storage)
//	POST /api/tenants                             → register tenant
//	GET  /api/tenants/{tenantID}                  → fetch tenant
//	POST /api/tenants/{tenantID}/collections      → create collection
//	GET  /api/tenants/{tenantID}/collections      → list collections
//	GET  /api/collections/{collectionID}          → fetch collection (owner only)
//	POST /api/collections/{collectionID}/documents → ingest documents
//	POST /api/collections/{collectionID}/search   → similarity search
//	POST /api/rag/query                           → RAG query (202, async dispatch)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - tenant.go, collection.go, document.go: registry and ingest endpoints
//   - query.go: RAG query endpoint
//   - response.go: JSON response helpers and error mapping
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/corpusd/corpusd/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8090"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the vector store REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health     *HealthHandler
	tenant     *TenantHandler
	collection *CollectionHandler
	document   *DocumentHandler
	query      *QueryHandler
}

// NewServer creates a server with all routes registered.
func NewServer(reg RegistryService, engine SearchService, orchestrator QueryService, pinger Pinger, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:        mux,
		logger:     logger,
		health:     NewHealthHandler(pinger, logger),
		tenant:     NewTenantHandler(reg, logger),
		collection: NewCollectionHandler(reg, logger),
		document:   NewDocumentHandler(reg, engine, logger),
		query:      NewQueryHandler(orchestrator, logger),
	}

	s.health.RegisterRoutes(mux)
	s.tenant.RegisterRoutes(mux)
	s.collection.RegisterRoutes(mux)
	s.document.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
