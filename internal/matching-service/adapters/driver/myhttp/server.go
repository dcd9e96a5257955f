package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tujane/internal/auth"
	"tujane/internal/config"
	"tujane/internal/matching-service/adapters/driver/myhttp/handle"
	"tujane/internal/matching-service/adapters/driver/myhttp/middleware"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

const WaitTime = 10

// Routes are the collaborators the HTTP surface needs. Bridge is nil when
// the amqp transport is in use.
type Routes struct {
	Rides  ports.IRidesQueryService
	Bridge http.Handler
	Checks map[string]handle.Check
}

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	routes Routes
	ctx    context.Context
}

func NewServer(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, routes Routes) *Server {
	s := &Server{
		ctx:    ctx,
		cfg:    cfg,
		mylog:  mylog,
		routes: routes,
		mux:    http.NewServeMux(),
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", cfg.Srv.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: WaitTime * time.Second,
	}
	s.Configure()
	return s
}

// Run starts listening. It returns when the server stops, and at once if
// ctx is already done or Stop has been called.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if s.ctx.Err() != nil {
		mylog.Info("context already done, not listening")
		return nil
	}

	mylog.WithGroup("details").With("port", s.cfg.Srv.Port).Info("server is running")
	return s.startHTTPServer()
}

// Stop shuts the listener down. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Configure() {
	healthHandler := handle.NewHealthHandler(s.routes.Checks)
	ridesHandler := handle.NewRidesHandler(s.routes.Rides, s.mylog)

	operatorOnly := middleware.NewAuthMiddleware(s.cfg.Auth.JwtSecret, auth.RoleOperator)

	s.mux.Handle("GET /{$}", healthHandler.Root())
	s.mux.Handle("GET /health", healthHandler.Health())
	s.mux.Handle("GET /rides", operatorOnly.Wrap(ridesHandler.ListRides()))
	s.mux.Handle("GET /rides/{public_id}", operatorOnly.Wrap(ridesHandler.GetRide()))

	if s.routes.Bridge != nil {
		s.mux.Handle("/ws/bridge", s.routes.Bridge)
	}
}
