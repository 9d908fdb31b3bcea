// Package server exposes the pipeline over HTTP.
package server

import (
	"log/slog"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/echopost/echopost/internal/config"
	"github.com/echopost/echopost/internal/metrics"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/workflow"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	logger      *slog.Logger
	router      *gin.Engine
	store       *store.Store
	coordinator *workflow.Coordinator
	metrics     *metrics.Metrics
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, st *store.Store, coordinator *workflow.Coordinator) *Server {
	// Set Gin mode based on environment
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Configure proxy trust for production (Fly.io)
	if cfg.Env == "production" {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}
	// Development: no reverse proxy, uses direct client IP

	server := &Server{
		config:      cfg,
		logger:      logger,
		router:      router,
		store:       st,
		coordinator: coordinator,
		metrics:     metrics.Default,
	}

	router.Use(metrics.Middleware(server.metrics))
	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/health/storage", s.handleStorageHealth)
		api.GET("/metrics", metrics.Handler())

		api.POST("/upload", s.handleUpload)
		api.DELETE("/files/:id", s.handleDeleteFile)

		api.POST("/transcribe", s.handleTranscribe)
		api.GET("/transcription/:id", s.handleGetTranscript)
		api.PUT("/transcription/:id", s.handleEditTranscript)
		api.GET("/transcriptions", s.handleListTranscripts)

		api.POST("/generate-posts", s.handleGeneratePosts)
		api.POST("/regenerate-post", s.handleRegeneratePost)
		api.GET("/posts/:id", s.handleGetPostSet)

		api.POST("/export", s.handleExport)

		api.GET("/workflow", s.handleWorkflowStatus)
		api.POST("/workflow/reset", s.handleWorkflowReset)
	}

	// Serve the web frontend as a fallback for non-API paths
	s.router.Use(static.Serve("/", static.LocalFile(s.config.StaticDir, false)))
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
