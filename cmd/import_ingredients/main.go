package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/service"
)

// Loads the ingredient catalog from a "name,measurement_unit" CSV file.
func main() {
	path := flag.String("file", "data/ingredients.csv", "path to the ingredients CSV file")
	flag.Parse()

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

	f, err := os.Open(*path)
	if err != nil {
		zlog.Fatal("failed to open CSV file", "path", *path, "error", err)
	}
	defer f.Close()

	catalog := service.NewCatalogService(db, zlog)
	imported, err := catalog.ImportIngredientsCSV(context.Background(), f)
	if err != nil {
		zlog.Fatal("import failed", "imported", imported, "error", err)
	}
	zlog.Info("ingredients imported", "count", imported, "path", *path)
}
