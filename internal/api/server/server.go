package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/api/middleware"
	"github.com/feral-file/bib-pipeline/internal/api/rest"
	"github.com/feral-file/bib-pipeline/internal/api/shared/executor"
	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/providers/temporal"
	"github.com/feral-file/bib-pipeline/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	AllowOrigins []string
	Auth         middleware.AuthConfig

	OrchestratorTaskQueue string
	RunTimeout            time.Duration
	Pipeline              config.PipelineConfig
}

// Server wraps the HTTP server
type Server struct {
	config       Config
	store        store.Store
	orchestrator temporal.TemporalOrchestrator
	httpServer   *http.Server
}

// New creates a new API server
func New(cfg Config, store store.Store, orchestrator temporal.TemporalOrchestrator) *Server {
	return &Server{
		config:       cfg,
		store:        store,
		orchestrator: orchestrator,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.AllowOrigins))

	exec := executor.NewExecutor(s.store, s.orchestrator, adapter.NewClock(), executor.Config{
		TaskQueue:  s.config.OrchestratorTaskQueue,
		RunTimeout: s.config.RunTimeout,
		Pipeline:   s.config.Pipeline,
	})
	rest.SetupRoutes(router, rest.NewHandler(exec), s.config.Auth)

	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server", zap.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
