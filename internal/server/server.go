// Package server exposes conversions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/internal/config"
	"github.com/reoring/jsontab/internal/logging"
)

// Server is the HTTP front end of the converter.
type Server struct {
	cfg     config.ServerConfig
	root    string
	convert config.ConvertConfig
	opt     jsontab.Options
	limiter *Limiter
	router  *chi.Mux
}

// New creates a Server from the loaded configuration.
func New(cfg *config.Config) (*Server, error) {
	opt, err := cfg.Convert.Options()
	if err != nil {
		return nil, err
	}
	root, err := resolveRoot(cfg.Server.Root)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg.Server,
		root:    root,
		convert: cfg.Convert,
		opt:     opt,
		limiter: NewLimiter(cfg.Server.MaxConcurrent, cfg.Server.MaxWait),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Get("/status", s.handleStatus)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Limiter returns the conversion limiter.
func (s *Server) Limiter() *Limiter { return s.limiter }

// converter builds the per-request converter; its logs carry the request ID.
func (s *Server) converter(ctx context.Context) jsontab.Converter {
	opt := s.opt
	opt.Logger = logging.FromContext(ctx)
	return jsontab.New(opt)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully and
// waits for running conversions.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.FromContext(ctx).Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	logging.FromContext(ctx).Info("server shutting down", "active", s.limiter.ActiveCount())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(shutdownCtx)
}
