package main

import (
	"context"
	"log"

	"github.com/hrcore/attendance-engine/internal/app"
	"github.com/hrcore/attendance-engine/internal/config"
	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
)

func main() {
	// Load configuration first and validate before any resource initialization
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	// Validate configuration before initializing any resources
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger after config validation
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Failed to sync logger: %v", err)
		}
	}()
	metrics := observability.NewMetrics()
	// Initialize database after config validation
	db, err := database.NewMariaDB(context.Background(), &cfg.Database, metrics, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	container, err := app.NewContainer(cfg, db.DB, logger)
	if err != nil {
		log.Fatalf("Failed to build application container: %v", err)
	}
	server := app.NewServer(container)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
