// Runs the overdue vendor renewal sweep once.
//
// The server already sweeps on dashboard.sweep_interval. This is for a
// manual run after importing assessments or changing renewal dates.
//
// Usage: go run scripts/renewal_sweep.go [-config configs]

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/pkg/database"
	"ai_blueprint_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		logger.Log.Fatal("Database connection failed", zap.Error(err))
	}

	vendors := service.NewVendorService(
		repository.NewVendorAssessmentRepository(db),
		repository.NewInstitutionRepository(db),
		service.NewSlackNotifier(cfg.Notification.Timeout),
		nil,
		cfg.Notification.SlackWebhookURL,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	notified, err := vendors.SweepOverdue(ctx)
	if err != nil {
		logger.Log.Fatal("Renewal sweep failed", zap.Error(err))
	}
	logger.Log.Info("Done", zap.Int("institutionsNotified", notified))
}
