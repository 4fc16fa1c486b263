package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/orchestrator"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Server is the REST front end. Handlers stay thin: they translate requests
// into unit tasks, hand them to the orchestrator, and translate results back.
// Read endpoints that need no unit logic query the durable store directly.
type Server struct {
	router   *gin.Engine
	server   *http.Server
	orch     *orchestrator.Orchestrator
	registry *agent.Registry
	records  records.Store
	logger   *zap.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	Orchestrator *orchestrator.Orchestrator
	Registry     *agent.Registry
	Records      records.Store
	Logger       *zap.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestID())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:   router,
		orch:     cfg.Orchestrator,
		registry: cfg.Registry,
		records:  cfg.Records,
		logger:   cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		// Profiles
		v1.POST("/profiles", s.handleCreateProfile)
		v1.GET("/profiles/:id", s.handleGetProfile)
		v1.PUT("/profiles/:id", s.handleUpdateProfile)
		v1.PUT("/profiles/:id/preferences", s.handleUpdatePreferences)
		v1.PUT("/profiles/:id/filters", s.handleUpdateFilters)
		v1.POST("/profiles/:id/resume", s.handleSetResume)
		v1.GET("/profiles/:id/recommendations", s.handleRecommendations)
		v1.GET("/profiles/:id/applications", s.handleListApplications)
		v1.GET("/profiles/:id/digest/:kind", s.handleDigest)
		v1.GET("/profiles/:id/stats", s.handleProfileStats)

		// Postings
		v1.POST("/postings/scrape", s.handleScrape)
		v1.GET("/postings", s.handleSearchPostings)
		v1.GET("/postings/:id", s.handleGetPosting)
		v1.POST("/postings/match", s.handleMatch)

		// Applications
		v1.POST("/applications", s.handleCreateApplication)
		v1.POST("/applications/prepare", s.handlePrepareApplication)
		v1.GET("/applications/:id", s.handleGetApplication)
		v1.GET("/applications/:id/timeline", s.handleTimeline)
		v1.PUT("/applications/:id/status", s.handleUpdateApplicationStatus)
		v1.POST("/applications/:id/notes", s.handleAddNote)

		// Screening questions
		v1.POST("/qa/answer", s.handleAnswer)

		// Orchestration
		v1.GET("/pipelines", s.handleListPipelines)
		v1.POST("/pipelines/:name/run", s.handleRunPipeline)
		v1.POST("/queue", s.handleEnqueue)
		v1.POST("/queue/drain", s.handleDrainQueue)
		v1.GET("/system/status", s.handleSystemStatus)
		v1.GET("/system/units", s.handleListUnits)
	}
}

// SetupWebSocket mounts the invocation event stream.
func (s *Server) SetupWebSocket(handler interface{ Stream(*gin.Context) }) {
	s.router.GET("/ws", handler.Stream)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
