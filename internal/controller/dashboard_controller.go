package controller

import (
	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/internal/util"
)

type DashboardController struct {
	DashboardService *service.DashboardService
	ReportService    *service.ReportService
}

func NewDashboardController(dashboardService *service.DashboardService, reportService *service.ReportService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService, ReportService: reportService}
}

// filterFromQuery scopes the filter to the caller's institution.
func filterFromQuery(ctx *gin.Context, user *util.Claims) (model.DashboardFilter, bool) {
	from, err := util.ParseDate(ctx.Query("from"))
	if err != nil {
		util.BadRequest(ctx, "from must be YYYY-MM-DD")
		return model.DashboardFilter{}, false
	}
	to, err := util.ParseDate(ctx.Query("to"))
	if err != nil {
		util.BadRequest(ctx, "to must be YYYY-MM-DD")
		return model.DashboardFilter{}, false
	}
	return model.DashboardFilter{
		InstitutionID: user.InstitutionID,
		From:          from,
		To:            to,
		Department:    ctx.Query("department"),
	}, true
}

func (c *DashboardController) serve(ctx *gin.Context, kind string) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	filter, ok := filterFromQuery(ctx, user)
	if !ok {
		return
	}
	data, err := c.DashboardService.Dashboard(ctx.Request.Context(), kind, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, data)
}

// @Summary AI readiness dashboard
// @Description Completion rates, average scores and trend of staff readiness assessments
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param department query string false "Department"
// @Success 200 {object} util.Response{data=model.ReadinessDashboard}
// @Router /api/dashboards/readiness [get]
func (c *DashboardController) Readiness(ctx *gin.Context) {
	c.serve(ctx, service.DashboardReadiness)
}

// @Summary AI tool adoption dashboard
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param department query string false "Department"
// @Success 200 {object} util.Response{data=model.AdoptionDashboard}
// @Router /api/dashboards/adoption [get]
func (c *DashboardController) Adoption(ctx *gin.Context) {
	c.serve(ctx, service.DashboardAdoption)
}

// @Summary Vendor watchlist dashboard
// @Description Overdue and upcoming renewals and high-risk vendors
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param department query string false "Department"
// @Success 200 {object} util.Response{data=model.WatchlistDashboard}
// @Router /api/dashboards/watchlist [get]
func (c *DashboardController) Watchlist(ctx *gin.Context) {
	c.serve(ctx, service.DashboardWatchlist)
}

// @Summary Export a dashboard as an HTML report
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param kind path string true "readiness, adoption or watchlist"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param department query string false "Department"
// @Success 201 {object} util.Response{data=service.Report}
// @Router /api/dashboards/{kind}/report [post]
func (c *DashboardController) Report(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	filter, ok := filterFromQuery(ctx, user)
	if !ok {
		return
	}
	report, err := c.ReportService.DashboardReport(ctx.Request.Context(), ctx.Param("kind"), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, report)
}

// @Summary Record a readiness assessment
// @Tags Dashboards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assessment body service.ReadinessInput true "Readiness assessment"
// @Success 201 {object} util.Response{data=model.ReadinessAssessment}
// @Router /api/dashboards/readiness/assessments [post]
func (c *DashboardController) RecordReadiness(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.ReadinessInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	row, err := c.DashboardService.RecordReadiness(ctx.Request.Context(), user.InstitutionID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, row)
}

// @Summary Record an AI tool usage snapshot
// @Tags Dashboards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param snapshot body service.AdoptionInput true "Usage snapshot"
// @Success 201 {object} util.Response{data=model.ToolAdoption}
// @Router /api/dashboards/adoption/snapshots [post]
func (c *DashboardController) RecordAdoption(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.AdoptionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	row, err := c.DashboardService.RecordAdoption(ctx.Request.Context(), user.InstitutionID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, row)
}
