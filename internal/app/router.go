package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ai_blueprint_backend/docs"
	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/middleware"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	if cfg.Server.Mode != "release" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	}

	router.GET("/metrics", monitoring.PrometheusHandler())

	// Public
	public := router.Group("/api")
	public.GET("/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		a.registerIntakeRoutes(authGroup, c)
		a.registerVendorRoutes(authGroup, c)
		a.registerDashboardRoutes(authGroup, c)
		a.registerPolicyRoutes(authGroup, c)
		a.registerReportRoutes(authGroup, c)
	}
}

// Any member of the institution can fill in the intake questionnaire.
func (a *App) registerIntakeRoutes(rg *gin.RouterGroup, c *controllers) {
	intake := rg.Group("/intake")
	{
		intake.GET("/questionnaire", c.intake.GetQuestionnaire)
		intake.POST("/evaluate", c.intake.Evaluate)
		intake.POST("/drafts", c.intake.StartDraft)
		intake.GET("/drafts/:id", c.intake.GetDraft)
		intake.PUT("/drafts/:id/fields", c.intake.SetFields)
		intake.POST("/drafts/:id/next", c.intake.Next)
		intake.POST("/drafts/:id/previous", c.intake.Previous)
		intake.POST("/drafts/:id/submit", c.intake.Submit)
	}
}

func (a *App) registerVendorRoutes(rg *gin.RouterGroup, c *controllers) {
	vendors := rg.Group("/vendors/assessments")
	vendors.Use(middleware.RoleMiddleware(model.Reviewer))
	{
		vendors.GET("", c.vendor.List)
		vendors.GET("/:id", c.vendor.Get)
		vendors.PATCH("/:id/status", c.vendor.Review)
		vendors.POST("/:id/report", c.vendor.Report)
	}
}

func (a *App) registerDashboardRoutes(rg *gin.RouterGroup, c *controllers) {
	dashboards := rg.Group("/dashboards")
	dashboards.Use(middleware.RoleMiddleware(model.Reviewer))
	{
		dashboards.GET("/readiness", c.dashboard.Readiness)
		dashboards.GET("/adoption", c.dashboard.Adoption)
		dashboards.GET("/watchlist", c.dashboard.Watchlist)
		dashboards.POST("/:kind/report", c.dashboard.Report)
	}

	// Row ingestion is admin only.
	ingest := rg.Group("/dashboards")
	ingest.Use(middleware.RoleMiddleware(model.Admin))
	{
		ingest.POST("/readiness/assessments", c.dashboard.RecordReadiness)
		ingest.POST("/adoption/snapshots", c.dashboard.RecordAdoption)
	}
}

func (a *App) registerPolicyRoutes(rg *gin.RouterGroup, c *controllers) {
	policies := rg.Group("/policies")
	{
		policies.GET("", c.policy.List)
		policies.GET("/:id/revisions", c.policy.Revisions)
		policies.POST("/:id/subscriptions", middleware.RoleMiddleware(model.Reviewer), c.policy.Subscribe)
	}

	admin := rg.Group("/policies")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("", c.policy.Create)
		admin.PUT("/:id", c.policy.Update)
	}
}

// Reports are read back through the API so the key is checked against the
// caller's institution.
func (a *App) registerReportRoutes(rg *gin.RouterGroup, c *controllers) {
	reports := rg.Group("/reports")
	reports.Use(middleware.RoleMiddleware(model.Reviewer))
	{
		reports.GET("/*key", c.report.Download)
	}
}
