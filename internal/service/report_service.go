package service

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/risk"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
)

type ReportStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type DashboardSource interface {
	Dashboard(ctx context.Context, kind string, f model.DashboardFilter) (interface{}, error)
}

type VendorSource interface {
	Get(ctx context.Context, institutionID, id uint) (*VendorDetail, error)
}

type ReportURLWriter interface {
	SetReportURL(ctx context.Context, id uint, url string) error
}

// Report describes a stored HTML report.
type Report struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ReportService renders dashboards and vendor assessments to markdown,
// converts them to HTML and stores them.
type ReportService struct {
	Storage    ReportStorage
	Dashboards DashboardSource
	Vendors    VendorSource
	URLs       ReportURLWriter

	md  goldmark.Markdown
	now func() time.Time
}

func NewReportService(storage ReportStorage, dashboards DashboardSource, vendors VendorSource, urls ReportURLWriter) *ReportService {
	return &ReportService{
		Storage:    storage,
		Dashboards: dashboards,
		Vendors:    vendors,
		URLs:       urls,
		md:         goldmark.New(goldmark.WithExtensions(extension.Table)),
		now:        time.Now,
	}
}

func (s *ReportService) VendorReport(ctx context.Context, institutionID, id uint) (*Report, error) {
	detail, err := s.Vendors.Get(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Vendor risk assessment: %s", detail.Record.VendorName)
	key := fmt.Sprintf("%svendors/%d-%s.html", reportPrefix(institutionID), id, s.stamp())

	report, err := s.store(ctx, key, title, VendorMarkdown(detail))
	if err != nil {
		return nil, err
	}
	if s.URLs != nil {
		if err := s.URLs.SetReportURL(ctx, id, report.URL); err != nil {
			logger.Log.Warn("Could not record report url", zap.Uint("assessmentId", id), zap.Error(err))
		}
	}
	return report, nil
}

func (s *ReportService) DashboardReport(ctx context.Context, kind string, f model.DashboardFilter) (*Report, error) {
	v, err := s.Dashboards.Dashboard(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	md, err := DashboardMarkdown(v)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s dashboard", capitalize(kind))
	key := fmt.Sprintf("%sdashboards/%s-%s.html", reportPrefix(f.InstitutionID), kind, s.stamp())
	return s.store(ctx, key, title, md)
}

// Open returns a stored report. Keys outside the institution's own prefix
// are reported as missing.
func (s *ReportService) Open(ctx context.Context, institutionID uint, key string) ([]byte, error) {
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if !strings.HasPrefix(clean, reportPrefix(institutionID)) || !strings.HasSuffix(clean, ".html") {
		return nil, util.ErrReportNotFound
	}
	return s.Storage.Get(ctx, clean)
}

func reportPrefix(institutionID uint) string {
	return fmt.Sprintf("institutions/%d/", institutionID)
}

// stamp names a report by generation time plus a random suffix so keys
// cannot be guessed.
func (s *ReportService) stamp() string {
	return s.now().UTC().Format("20060102150405") + "-" + model.GenerateUUID()
}

func (s *ReportService) store(ctx context.Context, key, title, markdown string) (*Report, error) {
	doc, err := s.RenderHTML(title, markdown)
	if err != nil {
		return nil, err
	}
	url, err := s.Storage.Put(ctx, key, doc, util.MimeHTML)
	if err != nil {
		return nil, eris.Wrap(err, "report: store")
	}
	return &Report{Key: key, URL: url, GeneratedAt: s.now().UTC()}, nil
}

// RenderHTML converts markdown to a standalone HTML document.
func (s *ReportService) RenderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &body); err != nil {
		return nil, eris.Wrap(err, "report: render markdown")
	}
	var doc bytes.Buffer
	fmt.Fprintf(&doc, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// VendorMarkdown lists the assessment answers section by section, with the
// risk flags first.
func VendorMarkdown(d *VendorDetail) string {
	var b strings.Builder
	rec := d.Record
	fmt.Fprintf(&b, "# %s: %s\n\n", mdEscape(rec.VendorName), mdEscape(rec.ProductName))
	fmt.Fprintf(&b, "- **Status:** %s\n", rec.Status)
	fmt.Fprintf(&b, "- **Risk level:** %s\n", rec.RiskLevel)
	fmt.Fprintf(&b, "- **Department:** %s\n", mdEscape(departmentOf(rec.Department)))
	fmt.Fprintf(&b, "- **Questionnaire version:** %s\n", rec.QuestionnaireVersion)
	fmt.Fprintf(&b, "- **Submitted:** %s\n", rec.CreatedAt.UTC().Format(util.DateFormat))
	if rec.RenewalDate != nil {
		fmt.Fprintf(&b, "- **Renewal:** %s\n", rec.RenewalDate.UTC().Format(util.DateFormat))
	}

	b.WriteString("\n## Risk flags\n\n")
	if len(d.Flags) == 0 {
		b.WriteString("No risk flags were raised.\n")
	}
	for _, f := range d.Flags {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	a := d.Assessment
	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Vendor information", [][2]string{
			{"Vendor", a.BasicInfo.VendorName},
			{"Product", a.BasicInfo.ProductName},
			{"Website", a.BasicInfo.Website},
			{"Contact", strings.TrimSpace(a.BasicInfo.ContactName + " " + a.BasicInfo.ContactEmail)},
			{"Category", a.BasicInfo.Category},
			{"Intended use", a.BasicInfo.Description},
		}},
		{"Data handling", [][2]string{
			{"Stores PII", yesNo(a.DataHandling.StoresPII)},
			{"PII types", strings.Join(a.DataHandling.PIITypes, ", ")},
			{"Sensitive PII", strings.Join(risk.SensitivePIITypes(a.DataHandling.PIITypes), ", ")},
			{"Encrypted at rest", yesNo(a.DataHandling.EncryptionAtRest)},
			{"Encrypted in transit", yesNo(a.DataHandling.EncryptionInTransit)},
			{"Retention (days)", intText(a.DataHandling.DataRetentionDays)},
			{"Data location", a.DataHandling.DataLocation},
			{"Shared with third parties", yesNo(a.DataHandling.SharesWithThirdParty)},
		}},
		{"AI capabilities", [][2]string{
			{"AI service", yesNo(a.AICapabilities.IsAIService)},
			{"Features", strings.Join(a.AICapabilities.AIFeatures, ", ")},
			{"Model provider", a.AICapabilities.ModelProvider},
			{"Trains on user data", yesNo(a.AICapabilities.TrainsOnUserData)},
			{"Human oversight", yesNo(a.AICapabilities.HumanOversight)},
			{"Opt-out available", yesNo(a.AICapabilities.OptOutAvailable)},
		}},
		{"Student data", [][2]string{
			{"Handles student data", yesNo(a.StudentData.HandlesStudentData)},
			{"Minimum age", intText(a.StudentData.MinimumAge)},
			{"Age gate", yesNo(a.StudentData.AgeGate)},
			{"Parental consent", yesNo(a.StudentData.ParentalConsent)},
			{"Educational purpose only", yesNo(a.StudentData.EducationalPurpose)},
		}},
		{"Compliance", [][2]string{
			{"FERPA", yesNo(a.Compliance.FERPACompliant)},
			{"COPPA", yesNo(a.Compliance.COPPACompliant)},
			{"Data processing agreement", yesNo(a.Compliance.DataProcessingAgreement)},
			{"SOC 2", yesNo(a.Compliance.SOC2Certified)},
			{"State privacy pledge", yesNo(a.Compliance.StatePrivacyPledge)},
			{"Privacy policy", a.Compliance.PrivacyPolicyURL},
		}},
		{"Technical", [][2]string{
			{"SSO", yesNo(a.Technical.SSOSupport)},
			{"SSO providers", strings.Join(a.Technical.SSOProviders, ", ")},
			{"API", yesNo(a.Technical.APIAvailable)},
			{"Uptime SLA (%)", floatText(a.Technical.UptimeSLA)},
			{"Incident response plan", yesNo(a.Technical.IncidentResponsePlan)},
			{"Breach notification (hours)", intText(a.Technical.BreachNotifyHours)},
		}},
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n| Question | Answer |\n| --- | --- |\n", sec.title)
		for _, row := range sec.rows {
			fmt.Fprintf(&b, "| %s | %s |\n", row[0], cell(row[1]))
		}
	}
	return b.String()
}

// DashboardMarkdown renders any of the three dashboard view-models.
func DashboardMarkdown(v interface{}) (string, error) {
	var b strings.Builder
	switch d := v.(type) {
	case *model.ReadinessDashboard:
		b.WriteString("# AI readiness\n\n")
		fmt.Fprintf(&b, "- **Assessments:** %d\n", d.TotalAssessments)
		fmt.Fprintf(&b, "- **Completed:** %d of %d (%.1f%%)\n", d.CompletionRates.Completed, d.CompletionRates.Total, d.CompletionRates.Percentage)
		fmt.Fprintf(&b, "- **Average score:** %.1f\n", d.AverageScore)
		fmt.Fprintf(&b, "- **Trend:** %s (%.1f vs %.1f)\n", d.Trend.Direction, d.Trend.Current, d.Trend.Previous)
		b.WriteString("\n| Department | Assessments | Completed | Average score |\n| --- | --- | --- | --- |\n")
		for _, r := range d.ByDepartment {
			fmt.Fprintf(&b, "| %s | %d | %d | %.1f |\n", cell(r.Department), r.Assessments, r.Completed, r.AverageScore)
		}
	case *model.AdoptionDashboard:
		b.WriteString("# AI tool adoption\n\n")
		fmt.Fprintf(&b, "- **Tools:** %d\n", d.TotalTools)
		fmt.Fprintf(&b, "- **Active / licensed users:** %d / %d (%.1f%%)\n", d.ActiveUsers, d.LicensedUsers, d.AdoptionRate)
		b.WriteString("\n| Tool | Licensed | Active | Adoption |\n| --- | --- | --- | --- |\n")
		for _, t := range d.ByTool {
			fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% |\n", cell(t.ToolName), t.LicensedUsers, t.ActiveUsers, t.AdoptionRate)
		}
		b.WriteString("\n| Department | Tools | Licensed | Active | Adoption |\n| --- | --- | --- | --- | --- |\n")
		for _, dp := range d.ByDepartment {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %.1f%% |\n", cell(dp.Department), dp.Tools, dp.LicensedUsers, dp.ActiveUsers, dp.AdoptionRate)
		}
	case *model.WatchlistDashboard:
		b.WriteString("# Vendor watchlist\n\n")
		fmt.Fprintf(&b, "- **Vendors:** %d (%.1f%% flagged)\n", d.TotalVendors, d.FlaggedPercent)
		fmt.Fprintf(&b, "- **Pending reviews:** %d\n", d.PendingReviews)
		renewals := func(title string, items []model.RenewalItem) {
			fmt.Fprintf(&b, "\n## %s\n\n", title)
			if len(items) == 0 {
				b.WriteString("None.\n")
				return
			}
			b.WriteString("| Vendor | Department | Renewal | Days | Risk |\n| --- | --- | --- | --- | --- |\n")
			for _, it := range items {
				fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n", cell(it.VendorName), cell(it.Department), it.RenewalDate, it.DaysUntilRenewal, it.RiskLevel)
			}
		}
		renewals("Overdue renewals", d.Overdue)
		renewals("Upcoming renewals", d.Upcoming)
		b.WriteString("\n## High-risk vendors\n\n")
		if len(d.HighRiskVendors) == 0 {
			b.WriteString("None.\n")
		}
		for _, v := range d.HighRiskVendors {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", mdEscape(v.VendorName), mdEscape(v.Department), strings.Join(v.Flags, "; "))
		}
	default:
		return "", eris.Wrapf(util.ErrUnknownDashboard, "report: %T", v)
	}
	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func intText(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}

func floatText(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%g", *p)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func mdEscape(s string) string {
	return mdEscaper.Replace(s)
}

// cell escapes a table cell; pipes and newlines would break the row.
func cell(s string) string {
	s = strings.ReplaceAll(mdEscape(s), "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
