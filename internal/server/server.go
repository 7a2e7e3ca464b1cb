// Package server assembles the HTTP router and runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evbot/internal/common/config"
	"evbot/internal/common/logger"
	"evbot/internal/handlers"
	"evbot/internal/prediction"
)

// ReadinessChecker reports whether the model assets are loaded. *prediction.AssetCache satisfies it.
type ReadinessChecker interface {
	Status() prediction.AssetStatus
}

type RouterOptions struct {
	Readiness      ReadinessChecker
	MetricsEnabled bool
	Logger         logger.Logger
	Groups         []handlers.Group
}

// NewRouter mounts the handler groups plus /health, /ready and /metrics behind the
// recover, request id and logging middleware.
func NewRouter(opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	handlers.Register(mux, opts.Groups...)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		status := prediction.AssetStatusNotLoaded
		if opts.Readiness != nil {
			status = opts.Readiness.Status()
		}
		if status != prediction.AssetStatusReady {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "model": string(status)})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready", "model": string(status)})
	})
	if opts.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mw := NewMiddleware()
	mw.Use(Recover(opts.Logger))
	mw.Use(RequestID(opts.Logger))
	mw.Use(Logging(opts.Logger))
	return mw.Apply(mux)
}

// Server wraps http.Server with the configured timeouts.
type Server struct {
	http            *http.Server
	logger          logger.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.ServerConfig, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		},
		logger:          log.WithFields(map[string]interface{}{"system": "http"}),
		shutdownTimeout: config.GetDuration(cfg.ShutdownTimeout),
	}
}

// Start serves in the background. The returned channel receives the error that stopped the
// server, if any, and is closed afterwards.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("server listening", map[string]interface{}{"addr": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("server error", nil)
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown drains in-flight requests within the shutdown timeout.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("server shutdown error", nil)
		return err
	}
	s.logger.Info("server shutdown complete", nil)
	return nil
}
