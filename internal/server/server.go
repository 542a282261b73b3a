// Package server exposes the workflow operations as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/logging"
	"github.com/zulandar/tracewell/internal/metrics"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB      *gorm.DB
	Port    int
	Auth    *identity.Authenticator
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Out     io.Writer
}

// api carries the dependencies shared by handlers.
type api struct {
	db      *gorm.DB
	log     *slog.Logger
	metrics *metrics.Collector
}

// NewRouter builds the gin engine with every route registered. Nil Logger
// and Metrics are replaced with a discarding logger and a fresh collector.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Auth == nil {
		return nil, fmt.Errorf("server: authenticator is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger, opts.Metrics))

	a := &api{db: opts.DB, log: opts.Logger, metrics: opts.Metrics}
	registerRoutes(router, a, opts.Auth)
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "TraceWell API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
