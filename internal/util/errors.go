package util

import "errors"

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAssessmentNotFound  = errors.New("vendor assessment not found")
	ErrDraftNotFound       = errors.New("intake draft not found or expired")
	ErrPolicyNotFound      = errors.New("policy template not found")
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrInvalidStatus       = errors.New("invalid assessment status")
	ErrInvalidWindow       = errors.New("invalid date window")
	ErrUnknownDashboard    = errors.New("unknown dashboard")
	ErrSubmissionFailed    = errors.New("submission could not be delivered")
	ErrNotifyFailed        = errors.New("notification rejected by webhook")
)
