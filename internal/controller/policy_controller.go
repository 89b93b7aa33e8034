package controller

import (
	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/service"
	"ai_blueprint_backend/internal/util"
)

type PolicyController struct {
	PolicyService *service.PolicyService
}

func NewPolicyController(policyService *service.PolicyService) *PolicyController {
	return &PolicyController{PolicyService: policyService}
}

// @Summary List policy templates
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Success 200 {object} util.Response{data=[]model.PolicyTemplate}
// @Router /api/policies [get]
func (c *PolicyController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	templates, err := c.PolicyService.List(ctx.Request.Context(), user.InstitutionID, ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, templates)
}

// @Summary Create a policy template
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param policy body service.CreatePolicyRequest true "Policy template"
// @Success 201 {object} util.Response{data=model.PolicyTemplate}
// @Router /api/policies [post]
func (c *PolicyController) Create(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.CreatePolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	t, err := c.PolicyService.Create(ctx.Request.Context(), user.InstitutionID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, t)
}

// @Summary Update a policy template
// @Description Stores a new revision with a redline and notifies subscribers. An unchanged body creates no revision.
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param policy body service.UpdatePolicyRequest true "New body"
// @Success 200 {object} util.Response{data=service.UpdatePolicyResult}
// @Router /api/policies/{id} [put]
func (c *PolicyController) Update(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdatePolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.PolicyService.Update(ctx.Request.Context(), user.InstitutionID, id, user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary List policy revisions
// @Tags Policies
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Success 200 {object} util.Response{data=[]model.PolicyRevision}
// @Router /api/policies/{id}/revisions [get]
func (c *PolicyController) Revisions(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	revs, err := c.PolicyService.Revisions(ctx.Request.Context(), user.InstitutionID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, revs)
}

// @Summary Subscribe a Slack webhook to policy changes
// @Tags Policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param subscription body service.SubscribeRequest true "Webhook"
// @Success 201 {object} util.Response{data=model.PolicySubscription}
// @Router /api/policies/{id}/subscriptions [post]
func (c *PolicyController) Subscribe(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubscribeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := c.PolicyService.Subscribe(ctx.Request.Context(), user.InstitutionID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}
