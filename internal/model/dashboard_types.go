package model

import "time"

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// DashboardFilter scopes every dashboard query to a tenant, a time window
// and optionally one department.
type DashboardFilter struct {
	InstitutionID uint      `json:"institutionId"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Department    string    `json:"department,omitempty"`
}

type CompletionRates struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type Trend struct {
	Current   float64        `json:"current"`
	Previous  float64        `json:"previous"`
	Delta     float64        `json:"delta"`
	Direction TrendDirection `json:"direction"`
}

type DepartmentReadiness struct {
	Department   string  `json:"department"`
	Assessments  int     `json:"assessments"`
	Completed    int     `json:"completed"`
	AverageScore float64 `json:"averageScore"`
}

type ReadinessDashboard struct {
	TotalAssessments int                   `json:"totalAssessments"`
	CompletionRates  CompletionRates       `json:"completionRates"`
	AverageScore     float64               `json:"averageScore"`
	Trend            Trend                 `json:"trend"`
	ByDepartment     []DepartmentReadiness `json:"byDepartment"`
	GeneratedAt      time.Time             `json:"generatedAt"`
}

type ToolAdoptionSummary struct {
	ToolName      string  `json:"toolName"`
	LicensedUsers int     `json:"licensedUsers"`
	ActiveUsers   int     `json:"activeUsers"`
	AdoptionRate  float64 `json:"adoptionRate"`
}

type DepartmentAdoption struct {
	Department    string  `json:"department"`
	Tools         int     `json:"tools"`
	LicensedUsers int     `json:"licensedUsers"`
	ActiveUsers   int     `json:"activeUsers"`
	AdoptionRate  float64 `json:"adoptionRate"`
}

type AdoptionDashboard struct {
	TotalTools    int                   `json:"totalTools"`
	LicensedUsers int                   `json:"licensedUsers"`
	ActiveUsers   int                   `json:"activeUsers"`
	AdoptionRate  float64               `json:"adoptionRate"`
	ByTool        []ToolAdoptionSummary `json:"byTool"`
	ByDepartment  []DepartmentAdoption  `json:"byDepartment"`
	GeneratedAt   time.Time             `json:"generatedAt"`
}

type RenewalItem struct {
	AssessmentID     uint   `json:"assessmentId"`
	VendorName       string `json:"vendorName"`
	Department       string `json:"department"`
	RenewalDate      string `json:"renewalDate"`
	DaysUntilRenewal int    `json:"daysUntilRenewal"`
	RiskLevel        string `json:"riskLevel"`
	// DueSoon marks upcoming renewals inside the configured window.
	DueSoon bool `json:"dueSoon"`
}

type FlaggedVendor struct {
	AssessmentID uint     `json:"assessmentId"`
	VendorName   string   `json:"vendorName"`
	Department   string   `json:"department"`
	RiskLevel    string   `json:"riskLevel"`
	Flags        []string `json:"flags"`
}

type WatchlistDashboard struct {
	Overdue         []RenewalItem   `json:"overdue"`
	Upcoming        []RenewalItem   `json:"upcoming"`
	HighRiskVendors []FlaggedVendor `json:"highRiskVendors"`
	TotalVendors    int             `json:"totalVendors"`
	FlaggedPercent  float64         `json:"flaggedPercentage"`
	PendingReviews  int             `json:"pendingReviews"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}
