package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pjecz/carina/internal/infrastructure/config"
	httpx "pjecz/carina/internal/infrastructure/http"
	"pjecz/carina/internal/infrastructure/http/middleware"
)

// Server wraps the HTTP API: health, metrics, exhortos and tareas.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	cfg        config.HTTPSettings
	auth       *middleware.JWTAuthenticator
}

// Options carries the handlers mounted by the server. Nil API handlers are
// answered with 503.
type Options struct {
	Config         config.AppConfig
	Logger         *slog.Logger
	HealthHandler  http.Handler
	MetricsHandler http.Handler
	ExhortoHandler http.Handler
	TareaHandler   http.Handler
	Authenticator  *middleware.JWTAuthenticator
}

func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/health", opts.HealthHandler)
	if opts.MetricsHandler != nil && opts.Config.Metrics.Enabled {
		ruta := opts.Config.Metrics.Path
		if ruta == "" {
			ruta = "/metrics"
		}
		r.Method(http.MethodGet, ruta, opts.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if opts.Authenticator != nil {
			api.Use(opts.Authenticator.Middleware)
		}
		if opts.Config.HTTP.WriteTimeout > 0 {
			api.Use(middleware.RequestTimeout(opts.Config.HTTP.WriteTimeout))
		}
		api.Mount("/exh_exhortos", orUnavailable(opts.ExhortoHandler, opts.Logger))
		api.Mount("/tareas", orUnavailable(opts.TareaHandler, opts.Logger))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Config.HTTP.Port),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{
		log:        opts.Logger,
		httpServer: srv,
		cfg:        opts.Config.HTTP,
		auth:       opts.Authenticator,
	}, nil
}

func orUnavailable(h http.Handler, log *slog.Logger) http.Handler {
	if h != nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusServiceUnavailable, "Servicio No Disponible", []string{"servicio no configurado"}, log)
	})
}

// Run serves until ctx is cancelled, then shuts down within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		s.log.Info("HTTP server shutting down")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the JWKS refresher, if any.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}
