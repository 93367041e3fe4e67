// Package server exposes the prompter over HTTP and WebSocket: script CRUD,
// session lifecycle, audio ingest, and a live position feed, plus the
// operational endpoints (/metrics, /healthz, /readyz).
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cueline/cueline/internal/app"
	"github.com/cueline/cueline/internal/config"
	"github.com/cueline/cueline/internal/health"
	"github.com/cueline/cueline/internal/observe"
	"github.com/cueline/cueline/internal/script/scriptstore"
)

// shutdownTimeout bounds how long Run waits for in-flight requests during
// graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server wires the HTTP surface together. Construct with [New], obtain the
// composed handler via [Server.Handler], or run a listener with [Server.Run].
type Server struct {
	cfg     config.ServerConfig
	manager *app.Manager
	scripts scriptstore.Store
	metrics *observe.Metrics
	handler http.Handler
}

// New creates a Server. The health checkers are evaluated on /readyz.
func New(cfg config.ServerConfig, manager *app.Manager, scripts scriptstore.Store, metrics *observe.Metrics, checkers ...health.Checker) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		scripts: scripts,
		metrics: metrics,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = observe.Middleware(metrics)(mux)
	return s
}

// Handler returns the composed HTTP handler, including observability
// middleware. Useful for tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. TLS is
// used when the config carries a certificate pair.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.cfg.TLS != nil {
			slog.Info("listening", "addr", s.cfg.ListenAddr, "tls", true)
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			slog.Info("listening", "addr", s.cfg.ListenAddr, "tls", false)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	return g.Wait()
}
