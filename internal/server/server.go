package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"scenarioctl/internal/api"
	"scenarioctl/internal/loader"
	"scenarioctl/internal/metrics"
	"scenarioctl/internal/runner"
	"scenarioctl/internal/state"
	"scenarioctl/pkg/logging"
)

const rootHref = "/api"

// Config configures a Server.
type Config struct {
	Host string
	Port int
	// AllowedOrigins for CORS and websocket connections, "*" allows any
	AllowedOrigins []string
	// Scenarios are the files or directories offered at /api/scenarios
	Scenarios []string
	// Context is the base context of scenarios and submitted items
	Context api.Context
	// SystemUnderTestVersionURL is proxied at /api/system-under-test-version
	SystemUnderTestVersionURL string
	Version                   string
}

// Server serves the REST API.
type Server struct {
	config  Config
	hub     *state.Hub
	loader  *loader.Loader
	engine  *runner.Engine
	metrics *metrics.Metrics

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener

	// jobs run on ctx rather than the context of the request creating them
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// New creates a server. m may be nil, in which case /metrics is not served.
func New(config Config, hub *state.Hub, l *loader.Loader, engine *runner.Engine, m *metrics.Metrics) *Server {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Context == nil {
		config.Context = api.Context{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:  config,
		hub:     hub,
		loader:  l,
		engine:  engine,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the routes of the server wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+rootHref, s.handleEntry)
	mux.HandleFunc("GET "+rootHref+"/version", s.handleVersion)
	mux.HandleFunc("GET "+rootHref+"/context", s.handleContext)
	mux.HandleFunc("GET "+rootHref+"/system-under-test-version", s.handleSystemUnderTestVersion)
	mux.HandleFunc("GET "+rootHref+"/scenarios", s.handleScenarios)
	mux.HandleFunc("GET "+rootHref+"/scenarios/{name}", s.handleScenario)

	mux.HandleFunc("GET "+rootHref+"/jobs", s.handleJobs)
	mux.HandleFunc("POST "+rootHref+"/jobs", s.handleCreateJob)
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}/items", s.handleJobItems)
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}/results", s.handleStream(api.NotifyResult))
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}/progress", s.handleStream(api.NotifyProgress))
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}/metrics", s.handleStream(api.NotifyMetric))
	mux.HandleFunc("POST "+rootHref+"/jobs/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET "+rootHref+"/jobs/{id}/events", s.handleEvents)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Location"},
	})
	return c.Handler(mux)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer

	logging.Info("Server", "Serving scenarios on http://%s%s", listener.Addr(), rootHref)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server", err, "HTTP server error")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop cancels running jobs, waits for them to finish and shuts the HTTP
// server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return fmt.Errorf("server not started")
	}

	logging.Info("Server", "Stopping server")
	s.cancel()
	s.jobs.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server", err, "Error shutting down HTTP server")
		return err
	}

	s.mu.Lock()
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()
	return nil
}

// Wait blocks until every job started by the server has finished.
func (s *Server) Wait() {
	s.jobs.Wait()
}

func (s *Server) startJob(job *state.Job) {
	if s.metrics != nil {
		s.metrics.JobCreated()
	}
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.engine.RunJob(s.ctx, job)
	}()
}
