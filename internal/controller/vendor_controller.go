package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/internal/util"
)

type VendorController struct {
	VendorService *service.VendorService
	ReportService *service.ReportService
}

func NewVendorController(vendorService *service.VendorService, reportService *service.ReportService) *VendorController {
	return &VendorController{VendorService: vendorService, ReportService: reportService}
}

// @Summary List vendor assessments
// @Tags Vendors
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param department query string false "Department"
// @Param riskLevel query string false "low, medium or high"
// @Param search query string false "Vendor or product name"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/vendors/assessments [get]
func (c *VendorController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.VendorService.List(ctx.Request.Context(), repository.VendorQuery{
		InstitutionID: user.InstitutionID,
		Status:        model.VendorStatus(ctx.Query("status")),
		Department:    ctx.Query("department"),
		RiskLevel:     ctx.Query("riskLevel"),
		Search:        ctx.Query("search"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Get a vendor assessment
// @Tags Vendors
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response{data=service.VendorDetail}
// @Failure 404 {object} util.Response
// @Router /api/vendors/assessments/{id} [get]
func (c *VendorController) Get(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.VendorService.Get(ctx.Request.Context(), user.InstitutionID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary Review a vendor assessment
// @Description Approving without a renewal date schedules renewal one year out
// @Tags Vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param review body service.ReviewRequest true "Decision"
// @Success 200 {object} util.Response{data=service.VendorDetail}
// @Router /api/vendors/assessments/{id}/status [patch]
func (c *VendorController) Review(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.VendorService.Review(ctx.Request.Context(), user.InstitutionID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary Generate a vendor assessment report
// @Tags Vendors
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 201 {object} util.Response{data=service.Report}
// @Router /api/vendors/assessments/{id}/report [post]
func (c *VendorController) Report(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	report, err := c.ReportService.VendorReport(ctx.Request.Context(), user.InstitutionID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, report)
}
