package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/khutwa-dev/khutwa/internal/app"
	"github.com/khutwa-dev/khutwa/internal/config"
	"github.com/khutwa-dev/khutwa/internal/logger"
	"github.com/khutwa-dev/khutwa/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load("json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging, os.Stdout)
	log := logger.GetLogger()

	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open console")
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)

	// Create server
	srv, err := server.New(cfg, server.Deps{
		Sessions: a.Sessions,
		Table:    a.Table,
		Menu:     a.Menu,
		API:      a.API,
		Views:    a.Views,
	}, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web console")
	}

	log.Info().
		Str("version", version).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting Khutwa web console...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web console failed to start")
	}
}
