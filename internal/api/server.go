package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"p2pquotes/internal/controller"
	"p2pquotes/internal/filters"
	"p2pquotes/internal/metrics"
	"p2pquotes/internal/p2p"
)

// Quotes is the controller surface the API exposes to the popup: the
// view state, the mount sequence, and the four filter mutations.
type Quotes interface {
	Initialize(ctx context.Context)
	View() controller.ViewState
	SetAsset(a filters.Asset)
	SetSide(s filters.Side)
	SetPaymentMethod(m filters.PaymentMethod)
	SetVerifiedOnly(v bool)
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	Version      string
	LogLevel     string
}

// Server serves the popup-facing HTTP and WebSocket API
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
	startTime  time.Time
	quotes     Quotes
	hub        *Hub
	collector  *metrics.Collector

	outcomeMu  sync.Mutex
	lastOffers *p2p.OfferPage
	lastError  bool
}

// NewServer creates the API server around a quote controller
func NewServer(config ServerConfig, quotes Quotes, logger zerolog.Logger) (*Server, error) {
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", config.Port)
	}
	setConfigDefaults(&config)

	if config.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		config:    config,
		router:    router,
		logger:    logger,
		startTime: time.Now(),
		quotes:    quotes,
		hub:       NewHub(logger),
		collector: metrics.NewCollector(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server, nil
}

// BroadcastView pushes a view snapshot to every connected popup.
// Wire this as a controller listener.
func (s *Server) BroadcastView(v controller.ViewState) {
	s.recordOutcome(v)
	s.hub.Broadcast(v)
}

// recordOutcome counts each settled offer fetch once. Snapshots arrive
// for every commit, including rate commits that repeat the offer
// result, so only transitions count.
func (s *Server) recordOutcome(v controller.ViewState) {
	s.outcomeMu.Lock()
	defer s.outcomeMu.Unlock()

	if v.LoadingOffers {
		s.lastOffers = nil
		s.lastError = false
		return
	}

	switch {
	case v.OfferError && !s.lastError:
		s.collector.RecordFetchOutcome("failed")
	case v.Offers != nil && v.Offers != s.lastOffers && v.Offers.IsEmpty():
		s.collector.RecordFetchOutcome("empty")
	case v.Offers != nil && v.Offers != s.lastOffers:
		s.collector.RecordFetchOutcome("committed")
	}
	s.lastOffers = v.Offers
	s.lastError = v.OfferError
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().
		Int("port", s.config.Port).
		Str("version", s.config.Version).
		Msg("Starting API server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// setupMiddleware configures server middleware
func (s *Server) setupMiddleware() {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))

	s.router.Use(metrics.MetricsMiddleware(s.collector))

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.CORSOrigins))
	}
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", s.handleMetrics())

	api := s.router.Group("/api")
	{
		api.GET("/state", s.handleState())
		api.POST("/init", s.handleInit())
		api.GET("/ws", s.handleWS())

		apiFilters := api.Group("/filters")
		{
			apiFilters.PUT("/asset", s.handleSetAsset())
			apiFilters.PUT("/side", s.handleSetSide())
			apiFilters.PUT("/payment-method", s.handleSetPaymentMethod())
			apiFilters.PUT("/verified-only", s.handleSetVerifiedOnly())
		}
	}
}

func setConfigDefaults(config *ServerConfig) {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}
	if config.Version == "" {
		config.Version = "unknown"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}
