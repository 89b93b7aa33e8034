// @title AI Blueprint API
// @version 1.0
// @description Vendor risk intake, readiness and adoption dashboards and policy templates for schools adopting AI.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"ai_blueprint_backend/internal/app"
	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	migrate := flag.Bool("migrate", false, "run database migrations on startup even in release mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application, err := app.NewApp(cfg, *configDir)
	if err != nil {
		logger.Log.Fatal("Failed to start", zap.Error(err))
	}
	defer logger.Log.Sync()

	if *migrateOnly {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Close(ctx)
		logger.Log.Info("Database migration finished")
		return
	}

	if err := application.Run(); err != nil {
		logger.Log.Fatal("Server stopped", zap.Error(err))
	}
}
