package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/podcast-player/api/types"
	"github.com/killallgit/podcast-player/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	settings           config.ServerConfig
	security           config.SecurityConfig
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, settings config.ServerConfig, security config.SecurityConfig) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if settings.ReadTimeout <= 0 {
		settings.ReadTimeout = 30 * time.Second
	}
	if settings.MaxHeaderBytes <= 0 {
		settings.MaxHeaderBytes = 1 << 20
	}

	return &Server{
		engine:       engine,
		settings:     settings,
		security:     security,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:    address,
			Handler: engine,
			// audio proxy responses can run long, so WriteTimeout follows config
			ReadTimeout:    settings.ReadTimeout,
			WriteTimeout:   settings.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: settings.MaxHeaderBytes,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Logger())

	if s.security.EnableCORS {
		s.engine.Use(CORS())
	}

	maxBody := s.security.MaxRequestBody
	if maxBody <= 0 {
		maxBody = DefaultMaxRequestBody
	}
	s.engine.Use(RequestSizeLimitWithSize(maxBody))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.cleanupStop) })
	return s.httpServer.Shutdown(ctx)
}
