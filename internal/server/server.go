package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jackzampolin/scribe/internal/api"
	"github.com/jackzampolin/scribe/internal/config"
	"github.com/jackzampolin/scribe/internal/home"
	"github.com/jackzampolin/scribe/internal/llmcall"
	"github.com/jackzampolin/scribe/internal/metrics"
	"github.com/jackzampolin/scribe/internal/prompts"
	"github.com/jackzampolin/scribe/internal/prompts/contacts"
	"github.com/jackzampolin/scribe/internal/providers"
	"github.com/jackzampolin/scribe/internal/server/endpoints"
	"github.com/jackzampolin/scribe/internal/svcctx"
)

// Server is the main Scribe HTTP server. It owns the extractor registry,
// the call history store, and the metrics recorder for its lifetime.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	prompts    *prompts.Registry
	metrics    *metrics.Recorder
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	store    *llmcall.Store
	recorder *llmcall.Recorder

	// fixedExtractor is set when Config.Extractor overrides the config
	fixedExtractor bool

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home resolves the call store path; nil disables call recording
	Home *home.Dir
	// Extractor replaces the configured Anthropic client, e.g. with a mock
	Extractor providers.Extractor
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil && cfg.Extractor == nil {
		return nil, errors.New("server needs a config manager or an extractor")
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promptRegistry := prompts.NewRegistry(cfg.Logger)
	contacts.RegisterPrompts(promptRegistry)

	registry := providers.NewRegistry(cfg.Logger)
	if cfg.Extractor != nil {
		registry.Set(cfg.Extractor)
	}

	s := &Server{
		registry:  registry,
		prompts:   promptRegistry,
		metrics:   metrics.New(promRegistry),
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,

		fixedExtractor: cfg.Extractor != nil,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withServices(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Extractions can spend two retry delays plus three API calls.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Init opens the call store and builds the extractor from config. Start
// calls it; tests that drive Handler directly call it themselves.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services != nil {
		return nil
	}

	observers := providers.MultiObserver{s.metrics}

	if s.home != nil && s.configMgr != nil && s.configMgr.Get().StoreEnabled() {
		path := s.home.StorePath(s.configMgr.Get().Store.Path)
		store, err := llmcall.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to open call store: %w", err)
		}
		s.store = store
		s.recorder = llmcall.NewRecorder(store, s.logger)
		observers = append(observers, s.recorder)
		s.logger.Info("call store opened", "path", path)
	}

	if s.configMgr != nil && !s.fixedExtractor {
		build := func(c *config.Config) providers.AnthropicConfig {
			ac := c.ToAnthropicConfig()
			ac.Logger = s.logger
			ac.Observer = observers
			return ac
		}
		if err := s.registry.Reload(build(s.configMgr.Get())); err != nil {
			// The server still starts; extraction requests fail until the
			// config is fixed.
			s.logger.Warn("extractor not configured", "error", err)
		}

		// Watch for config changes
		s.configMgr.OnChange(func(c *config.Config) {
			if err := s.registry.Reload(build(c)); err != nil {
				s.logger.Warn("keeping previous extractor after config change", "error", err)
			}
		})
	}

	s.services = &svcctx.Services{
		Registry:     s.registry,
		Prompts:      s.prompts,
		ConfigMgr:    s.configMgr,
		Logger:       s.logger,
		Home:         s.home,
		Metrics:      s.metrics,
		LLMCallStore: s.store,
	}
	return nil
}

// Start initializes services and serves HTTP until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, then drains pending call records.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close flushes the call recorder and closes the store. Safe to call
// more than once.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder != nil {
		s.recorder.Close()
		s.recorder = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("call store close error", "error", err)
		}
		s.store = nil
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the extractor registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that returns 503 until Init has run.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ServicesFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
