package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/controller"
	"ai_blueprint_backend/internal/middleware"
	"ai_blueprint_backend/internal/questionnaire"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/pkg/configwatcher"
	"ai_blueprint_backend/pkg/database"
	"ai_blueprint_backend/pkg/logger"
	"ai_blueprint_backend/pkg/monitoring"
	"ai_blueprint_backend/pkg/security"
	"ai_blueprint_backend/pkg/tracing"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	configDir string
	live      atomic.Pointer[config.Config]
	services  *services
	tracer    *sdktrace.TracerProvider
	ctx       context.Context
	cancel    context.CancelFunc
}

type repositories struct {
	drafts       *repository.DraftRepository
	cache        *repository.DashboardCacheRepository
	vendors      *repository.VendorAssessmentRepository
	dashboards   *repository.DashboardRepository
	policies     *repository.PolicyRepository
	institutions *repository.InstitutionRepository
}

type services struct {
	notifier  *service.SlackNotifier
	storage   *service.StorageService
	intake    *service.IntakeService
	vendor    *service.VendorService
	dashboard *service.DashboardService
	report    *service.ReportService
	policy    *service.PolicyService
}

type controllers struct {
	intake    *controller.IntakeController
	vendor    *controller.VendorController
	dashboard *controller.DashboardController
	policy    *controller.PolicyController
	report    *controller.ReportController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		drafts:       repository.NewDraftRepository(rdb),
		cache:        repository.NewDashboardCacheRepository(rdb),
		vendors:      repository.NewVendorAssessmentRepository(db),
		dashboards:   repository.NewDashboardRepository(db),
		policies:     repository.NewPolicyRepository(db),
		institutions: repository.NewInstitutionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	s := &services{}

	s.notifier = service.NewSlackNotifier(cfg.Notification.Timeout)
	s.storage = service.NewStorageService(cfg)

	def, err := questionnaire.LoadOrDefault(cfg.Questionnaire.Path)
	if err != nil {
		return nil, err
	}
	s.intake, err = service.NewIntakeService(
		def,
		repos.drafts,
		repos.vendors,
		repos.institutions,
		s.notifier,
		repos.cache,
		cfg.Intake.DraftTTL,
		cfg.Notification.SlackWebhookURL,
		cfg.Notification.HighRiskLevel,
	)
	if err != nil {
		return nil, err
	}

	s.vendor = service.NewVendorService(repos.vendors, repos.institutions, s.notifier, repos.cache, cfg.Notification.SlackWebhookURL)
	s.dashboard = service.NewDashboardService(
		repos.dashboards,
		repos.vendors,
		repos.dashboards,
		repos.cache,
		cfg.Dashboard.CacheTTL,
		cfg.Dashboard.RenewalWindowDays,
		cfg.Dashboard.TrendWindowDays,
	)
	s.report = service.NewReportService(s.storage, s.dashboard, s.vendor, repos.vendors)
	s.policy = service.NewPolicyService(repos.policies, s.notifier)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		intake:    controller.NewIntakeController(s.intake),
		vendor:    controller.NewVendorController(s.vendor, s.report),
		dashboard: controller.NewDashboardController(s.dashboard, s.report),
		policy:    controller.NewPolicyController(s.policy),
		report:    controller.NewReportController(s.report),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.ConfigMiddleware(a.live.Load))
}

// startBackgroundTasks runs the renewal sweep and the file watcher until the
// app context is cancelled.
func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	go s.vendor.RunRenewalSweep(a.ctx, cfg.Dashboard.SweepInterval)

	configFile := filepath.Join(a.configDir, "config.yaml")
	paths := []string{configFile}
	if cfg.Questionnaire.Path != "" {
		paths = append(paths, cfg.Questionnaire.Path)
	}

	go func() {
		err := configwatcher.Watch(a.ctx, paths, func(path string) {
			if sameFile(path, configFile) {
				a.reloadConfig()
				return
			}
			a.reloadQuestionnaire(path)
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

// reloadConfig applies the settings that are safe to change at runtime: the
// log level and the JWT secret seen by the auth middleware.
func (a *App) reloadConfig() {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		logger.Log.Error("Keeping previous config", zap.Error(err))
		return
	}
	cfg.ForceMigrate = a.Config.ForceMigrate
	cfg.MigrateOnly = a.Config.MigrateOnly
	a.live.Store(cfg)
	logger.ApplyConfig(cfg)
	logger.Log.Info("Config reloaded", zap.String("logLevel", logger.Level()))
}

func (a *App) reloadQuestionnaire(path string) {
	def, err := questionnaire.Load(path)
	if err == nil {
		err = a.services.intake.SetDefinition(def)
	}
	if err != nil {
		logger.Log.Error("Keeping previous questionnaire", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Log.Info("Questionnaire reloaded",
		zap.String("path", path),
		zap.String("version", def.Version))
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// NewApp connects to the database and Redis, migrates when asked and wires
// every layer. configDir is where config.yaml was loaded from.
func NewApp(cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized", zap.String("level", logger.Level()))

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		DB:        db,
		configDir: configDir,
		ctx:       ctx,
		cancel:    cancel,
	}
	app.live.Store(cfg)

	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		cancel()
		return nil, err
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb)
	svcs, err := app.initServices(repos, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Tracing disabled", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	app.startBackgroundTasks(svcs, cfg)

	return app, nil
}

// Run serves until SIGINT or SIGTERM, then drains for up to five seconds.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		a.cancel()
		return err
	}
	logger.Log.Info("Shutting down server")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	a.Close(ctx)

	logger.Log.Info("Server exited")
	return nil
}

// Close releases the tracer, Redis and database connections.
func (a *App) Close(ctx context.Context) {
	a.cancel()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
