// Package server exposes the webhook ingestion endpoint and the read-only
// reporting API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/commitflow/internal/ingest"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
	"github.com/Sumatoshi-tech/commitflow/pkg/observability"
)

const (
	// maxPayloadBytes bounds a single webhook delivery body.
	maxPayloadBytes = 10 << 20

	defaultShutdownSeconds = 10
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Pipeline       *ingest.Pipeline
	Store          *store.Store
	Metrics        *observability.IngestMetrics
	MetricsHandler http.Handler
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

// Server is the HTTP front of the ingestion pipeline.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	engine          *gin.Engine
	deps            Deps
}

// New builds the server and its route table.
func New(addr string, shutdownSeconds int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if shutdownSeconds <= 0 {
		shutdownSeconds = defaultShutdownSeconds
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	if deps.Tracer != nil {
		engine.Use(observability.GinMiddleware(deps.Tracer))
	}

	srv := &Server{
		addr:            addr,
		shutdownTimeout: time.Duration(shutdownSeconds) * time.Second,
		engine:          engine,
		deps:            deps,
	}

	srv.routes()

	return srv
}

func (s *Server) routes() {
	s.engine.POST("/webhook/:provider", s.handleWebhook)

	api := s.engine.Group("/api")
	api.GET("/projects/:key/contributors", s.handleContributors)
	api.GET("/projects/:key/tasks", s.handleTasks)
	api.GET("/projects/:key/commits", s.handleCommits)

	s.engine.GET("/healthz", s.handleHealth)

	if s.deps.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.MetricsHandler))
	}
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.deps.Logger.Info("http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
