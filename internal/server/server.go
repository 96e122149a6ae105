// Package server is the local web console: a gin app that serves every
// console route as JSON behind the route guard and pushes session changes
// to every connected tab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/config"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/session"
	"github.com/khutwa-dev/khutwa/internal/views"
)

// Deps are the shared components the web console serves
type Deps struct {
	Sessions *session.Store
	Table    *guard.Table
	Menu     nav.Menu
	API      *apiclient.Client
	Views    *views.Registry
}

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	sessions  *session.Store
	table     *guard.Table
	menu      nav.Menu
	api       *apiclient.Client
	views     *views.Registry
	hub       *eventHub
	stopWatch func()
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, zlog zerolog.Logger, version string) (*Server, error) {
	if deps.Sessions == nil || deps.API == nil {
		return nil, fmt.Errorf("server needs a session store and an API client")
	}
	if deps.Table == nil {
		deps.Table = guard.DefaultTable()
	}
	if deps.Menu == nil {
		deps.Menu = nav.DefaultMenu()
	}
	if deps.Views == nil {
		deps.Views = views.NewRegistry()
	}

	// A menu entry the guard would bounce is a configuration error
	if err := deps.Menu.Validate(deps.Table); err != nil {
		return nil, fmt.Errorf("menu does not match route table: %w", err)
	}

	server := &Server{
		config:    cfg,
		logger:    zlog,
		validator: validator.New(),
		sessions:  deps.Sessions,
		table:     deps.Table,
		menu:      deps.Menu,
		api:       deps.API,
		views:     deps.Views,
		hub:       newEventHub(zlog),
		version:   version,
	}

	// Writes by other processes (the CLI, another console) reach every tab
	server.stopWatch = deps.Sessions.OnExternalChange(func() {
		server.broadcastSession("external")
	})

	// Setup router
	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware for a UI served from a separate dev server
	if len(s.config.Web.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Web.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, screenURL(guard.HomePath))
	})

	api := s.router.Group("/api")
	{
		api.GET("/session", s.getSession)
		api.POST("/login", s.login)
		api.POST("/logout", s.shellMiddleware(), s.logout)
		api.GET("/events", s.events)
	}

	// Every console route, guarded
	s.router.GET("/screens/*path", s.shellMiddleware(), s.screen)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "khutwa-console",
		"version":   s.version,
		"tabs":      s.hub.count(),
	})
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops watching the session and disconnects every tab
func (s *Server) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.hub.closeAll()
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.Web.ListenAddr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * s.config.API.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", addr).Str("api", s.api.BaseURL()).Msg("Starting web console")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.Close()
		return fmt.Errorf("web console failed: %w", err)
	}

	s.Close()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Web console shutdown complete")
	return nil
}
