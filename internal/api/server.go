package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/comsa33/data-collector/internal/engine"
	"github.com/comsa33/data-collector/internal/runner"
	"github.com/comsa33/data-collector/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second

	// writeTimeout must cover the full poll budget of the submission
	// endpoint plus headroom.
	writeTimeout = 30 * time.Second

	defaultPollInterval = time.Second
)

// Server wraps the chi router and application dependencies.
type Server struct {
	router       *chi.Mux
	store        store.Store
	registry     *runner.Registry
	engine       *engine.Engine
	logger       *slog.Logger
	addr         string
	pollInterval time.Duration
}

// NewServer creates and configures a new HTTP server. pollInterval is the
// delay between job poll attempts on the submission endpoint; zero or
// negative selects the default of one second.
func NewServer(addr string, s store.Store, reg *runner.Registry, eng *engine.Engine, logger *slog.Logger, pollInterval time.Duration) *Server {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	srv := &Server{
		router:       chi.NewRouter(),
		store:        s,
		registry:     reg,
		engine:       eng,
		logger:       logger,
		addr:         addr,
		pollInterval: pollInterval,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/queries", s.handleExecuteQuery)
		r.Get("/runners", s.handleListRunners)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Route("/data_sources", func(r chi.Router) {
			r.Post("/", s.handleCreateDataSource)
			r.Get("/", s.handleListDataSources)
			r.Get("/{id}", s.handleGetDataSource)
			r.Delete("/{id}", s.handleDeleteDataSource)
			r.Post("/{id}/test", s.handleTestDataSource)
		})
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let in-flight jobs record their terminal state before closing.
	s.engine.Wait()

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeFail writes the standard failure envelope.
func (s *Server) writeFail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "fail",
		"message": message,
	})
}
