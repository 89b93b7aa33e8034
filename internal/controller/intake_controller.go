package controller

import (
	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/internal/util"
)

type IntakeController struct {
	IntakeService *service.IntakeService
}

func NewIntakeController(intakeService *service.IntakeService) *IntakeController {
	return &IntakeController{IntakeService: intakeService}
}

type StartDraftRequest struct {
	Department string `json:"department" binding:"max=100"`
}

type SetFieldsRequest struct {
	Updates []service.FieldUpdate `json:"updates" binding:"required,min=1,dive"`
}

// @Summary Get the vendor intake questionnaire
// @Description Returns the questionnaire definition currently served to new drafts
// @Tags Intake
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/intake/questionnaire [get]
func (c *IntakeController) GetQuestionnaire(ctx *gin.Context) {
	util.Success(ctx, c.IntakeService.Definition())
}

// @Summary Start an intake draft
// @Tags Intake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param draft body StartDraftRequest false "Department the vendor is requested for"
// @Success 201 {object} util.Response{data=service.DraftView}
// @Router /api/intake/drafts [post]
func (c *IntakeController) StartDraft(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req StartDraftRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	view, err := c.IntakeService.Start(ctx.Request.Context(), service.ActorFromClaims(user), req.Department)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary Get an intake draft
// @Tags Intake
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Failure 404 {object} util.Response
// @Router /api/intake/drafts/{id} [get]
func (c *IntakeController) GetDraft(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := c.IntakeService.Get(ctx.Request.Context(), service.ActorFromClaims(user), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Answer questions
// @Description Applies answers in order. Risk flags are recomputed after each answer.
// @Tags Intake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Param fields body SetFieldsRequest true "Answers"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Failure 400 {object} util.Response
// @Router /api/intake/drafts/{id}/fields [put]
func (c *IntakeController) SetFields(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req SetFieldsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.IntakeService.SetFields(ctx.Request.Context(), service.ActorFromClaims(user), ctx.Param("id"), req.Updates)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Go to the next section
// @Description Validates the current section; the draft only moves when it has no errors
// @Tags Intake
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Router /api/intake/drafts/{id}/next [post]
func (c *IntakeController) Next(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := c.IntakeService.Next(ctx.Request.Context(), service.ActorFromClaims(user), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Go to the previous section
// @Tags Intake
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Router /api/intake/drafts/{id}/previous [post]
func (c *IntakeController) Previous(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := c.IntakeService.Previous(ctx.Request.Context(), service.ActorFromClaims(user), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Submit an intake draft
// @Description Validates every section and stores the assessment. The draft is kept when storing fails.
// @Tags Intake
// @Produce json
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 201 {object} util.Response{data=model.VendorAssessmentRecord}
// @Failure 422 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/intake/drafts/{id}/submit [post]
func (c *IntakeController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	rec, err := c.IntakeService.Submit(ctx.Request.Context(), service.ActorFromClaims(user), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, rec)
}

// @Summary Evaluate risk flags
// @Description Runs the risk rules over an assessment without storing anything
// @Tags Intake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assessment body model.VendorAssessment true "Assessment"
// @Success 200 {object} util.Response{data=service.EvaluateResult}
// @Router /api/intake/evaluate [post]
func (c *IntakeController) Evaluate(ctx *gin.Context) {
	a := model.NewVendorAssessment()
	if err := ctx.ShouldBindJSON(&a); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, c.IntakeService.Evaluate(a))
}
