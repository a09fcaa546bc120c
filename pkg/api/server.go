package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantfolio/portfolio-analyzer/pkg/metrics"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewServer creates a new API server. recorder may be nil.
func NewServer(config Config, handlers *Handlers, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		recorder: recorder,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	return server
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the underlying router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Use(RecoveryMiddleware())
	s.router.Use(LoggingMiddleware())
	s.router.Use(MetricsMiddleware(s.recorder))
	s.router.Use(CORSMiddleware())

	// Metrics endpoint for Prometheus
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.handlers.HealthCheckHandler)

	// Stress runs against the current portfolio snapshot, so it lives next
	// to the trigger rather than under a stored run.
	v1.POST("/stress", s.handlers.RunStressTestHandler)

	analysis := v1.Group("/analysis")
	analysis.POST("", s.handlers.TriggerAnalysisHandler)
	analysis.GET("", s.handlers.ListRunsHandler)
	analysis.GET("/latest", s.handlers.GetLatestRunHandler)
	analysis.GET("/:id", s.handlers.GetRunHandler)
	analysis.GET("/:id/greeks", s.handlers.GetRunGreeksHandler)
	analysis.GET("/:id/simulation", s.handlers.GetRunSimulationHandler)
	analysis.GET("/:id/advice", s.handlers.GetRunAdviceHandler)
	analysis.GET("/:id/scenarios", s.handlers.GetRunScenariosHandler)
	analysis.GET("/:id/hedge", s.handlers.GetRunHedgeHandler)
}
