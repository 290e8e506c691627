package main

import (
	"log"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(db); err != nil {
		zlog.Fatal("failed to run migrations", "error", err)
	}

	redisClient, err := database.NewRedisClient(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to Redis", "error", err)
	}

	srv, err := server.New(cfg, db, redisClient, zlog)
	if err != nil {
		zlog.Fatal("failed to build server", "error", err)
	}

	if err := srv.Start(); err != nil {
		zlog.Fatal("server stopped", "error", err)
	}
}
