package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai_blueprint_backend/internal/intake"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

// respondError maps service errors onto the response envelope. Anything
// unrecognised is logged and reported as a 500.
func respondError(ctx *gin.Context, err error) {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		util.UnprocessableEntity(ctx, verr.Fields)
	case errors.Is(err, model.ErrUnknownField), errors.Is(err, model.ErrFieldType):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrDraftNotFound),
		errors.Is(err, util.ErrAssessmentNotFound),
		errors.Is(err, util.ErrPolicyNotFound),
		errors.Is(err, util.ErrInstitutionNotFound),
		errors.Is(err, util.ErrReportNotFound):
		util.Error(ctx, http.StatusNotFound, rootMessage(err))
	case errors.Is(err, util.ErrSubmissionFailed):
		util.Error(ctx, http.StatusBadGateway, util.ErrSubmissionFailed.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrInvalidWindow),
		errors.Is(err, util.ErrInvalidStatus),
		errors.Is(err, util.ErrUnknownDashboard):
		util.BadRequest(ctx, rootMessage(err))
	default:
		util.LogInternalError(ctx, err)
	}
}

// rootMessage returns the sentinel text without the wrapping context.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		util.ErrDraftNotFound,
		util.ErrAssessmentNotFound,
		util.ErrPolicyNotFound,
		util.ErrInstitutionNotFound,
		util.ErrReportNotFound,
		util.ErrInvalidWindow,
		util.ErrInvalidStatus,
		util.ErrUnknownDashboard,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// currentUser aborts with 401 when the auth middleware did not run.
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
