package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/pii-redactor/internal/audit"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/ingest"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/raaihank/pii-redactor/internal/web"
	"github.com/raaihank/pii-redactor/internal/websocket"
	"go.uber.org/zap"
)

// Version is reported by /info
const Version = "0.1.0"

// Server represents the redaction HTTP service
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	detector  *privacy.Detector
	collector *metrics.Collector
	sink      audit.Sink
	pipeline  *ingest.Pipeline
	limiter   *RateLimiter
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub

	// Scope of the background loops
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance around an existing detector, metrics
// collector and audit sink
func New(cfg *config.Config, log *logger.Logger, detector *privacy.Detector, collector *metrics.Collector, sink audit.Sink) *Server {
	if sink == nil {
		sink = audit.NopSink{}
	}

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		detector:  detector,
		collector: collector,
		sink:      sink,
		pipeline:  ingest.NewPipeline(detector, cfg.Redaction.WorkerCount, log),
		limiter:   NewRateLimiter(cfg.RateLimit),
		router:    mux.NewRouter(),
		wsHub:     websocket.NewHub(cfg.WebSocket, log),
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet)
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet)

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.sessionMiddleware)
	api.HandleFunc("/redact", s.handleRedactText).Methods(http.MethodPost)
	api.HandleFunc("/redact/file", s.handleRedactFile).Methods(http.MethodPost)
	api.HandleFunc("/rules", s.handleRules).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/metrics", s.handleSessionMetrics).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub for broadcasting events
func (s *Server) Hub() *websocket.Hub {
	return s.wsHub
}

// Start runs the background loops and serves HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting PII redactor server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("rules", s.detector.EnabledRules()),
		zap.Bool("rate_limit", s.config.RateLimit.Enabled),
	)

	go s.wsHub.Run(s.ctx)
	go s.limiter.Run(s.ctx, time.Minute)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server and the hub
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PII redactor server")
	s.cancel()
	return s.server.Shutdown(ctx)
}
