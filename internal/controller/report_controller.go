package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/internal/util"
)

type ReportController struct {
	ReportService *service.ReportService
}

func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// @Summary Download a generated report
// @Tags Reports
// @Produce html
// @Security BearerAuth
// @Param key path string true "Report key"
// @Success 200 {string} string "HTML document"
// @Failure 404 {object} util.Response
// @Router /api/reports/{key} [get]
func (c *ReportController) Download(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	key := strings.TrimPrefix(ctx.Param("key"), "/")
	doc, err := c.ReportService.Open(ctx.Request.Context(), user.InstitutionID, key)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Header("Cache-Control", "private, no-store")
	ctx.Data(http.StatusOK, util.MimeHTML, doc)
}
