package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/repository"
	"ai_blueprint_backend/internal/risk"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
	"ai_blueprint_backend/pkg/monitoring"
)

const (
	DashboardReadiness = "readiness"
	DashboardAdoption  = "adoption"
	DashboardWatchlist = "watchlist"
)

const unassignedDepartment = "Unassigned"

// DashboardRows reads the raw rows behind the readiness and adoption
// dashboards.
type DashboardRows interface {
	ReadinessRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ReadinessAssessment, error)
	CompletedReadinessRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ReadinessAssessment, error)
	AdoptionRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ToolAdoption, error)
}

type WatchlistRows interface {
	FindForWatchlist(ctx context.Context, institutionID uint, department string, to time.Time) ([]model.VendorAssessmentRecord, error)
}

type DashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardWriter stores the rows fed in by the readiness assessment product
// and the license usage import.
type DashboardWriter interface {
	CreateReadiness(ctx context.Context, row *model.ReadinessAssessment) error
	CreateAdoption(ctx context.Context, row *model.ToolAdoption) error
}

type ReadinessInput struct {
	UserID      uint                  `json:"userId"`
	Department  string                `json:"department" binding:"max=100"`
	Status      model.ReadinessStatus `json:"status" binding:"required,oneof=in_progress completed"`
	Score       float64               `json:"score" binding:"min=0,max=100"`
	CompletedAt *time.Time            `json:"completedAt"`
}

type AdoptionInput struct {
	Department    string     `json:"department" binding:"max=100"`
	ToolName      string     `json:"toolName" binding:"required,max=255"`
	LicensedUsers int        `json:"licensedUsers" binding:"min=0"`
	ActiveUsers   int        `json:"activeUsers" binding:"min=0,ltefield=LicensedUsers"`
	RecordedAt    *time.Time `json:"recordedAt"`
}

type DashboardService struct {
	Rows    DashboardRows
	Vendors WatchlistRows
	Cache   DashboardCache
	Writer  DashboardWriter

	CacheTTL          time.Duration
	RenewalWindowDays int
	TrendWindowDays   int

	now func() time.Time
}

func NewDashboardService(rows DashboardRows, vendors WatchlistRows, writer DashboardWriter, cache DashboardCache, cacheTTL time.Duration, renewalWindowDays, trendWindowDays int) *DashboardService {
	if renewalWindowDays <= 0 {
		renewalWindowDays = 90
	}
	if trendWindowDays <= 0 {
		trendWindowDays = 30
	}
	return &DashboardService{
		Rows:              rows,
		Vendors:           vendors,
		Writer:            writer,
		Cache:             cache,
		CacheTTL:          cacheTTL,
		RenewalWindowDays: renewalWindowDays,
		TrendWindowDays:   trendWindowDays,
		now:               time.Now,
	}
}

// NormalizeFilter fills in a missing window: `to` defaults to now and `from`
// to one trend window before `to`.
func (s *DashboardService) NormalizeFilter(f model.DashboardFilter) (model.DashboardFilter, error) {
	if f.To.IsZero() {
		f.To = s.now().UTC()
	} else {
		// A date-only `to` covers the whole day.
		f.To = endOfDay(f.To)
	}
	if f.From.IsZero() {
		f.From = f.To.AddDate(0, 0, -s.TrendWindowDays)
	}
	if f.From.After(f.To) {
		return f, util.ErrInvalidWindow
	}
	return f, nil
}

// RecordReadiness stores one readiness assessment and drops the cached
// dashboards of its institution.
func (s *DashboardService) RecordReadiness(ctx context.Context, institutionID uint, in ReadinessInput) (*model.ReadinessAssessment, error) {
	row := &model.ReadinessAssessment{
		InstitutionID: institutionID,
		UserID:        in.UserID,
		Department:    in.Department,
		Status:        in.Status,
		Score:         in.Score,
		CompletedAt:   in.CompletedAt,
	}
	if row.Status == model.ReadinessCompleted && row.CompletedAt == nil {
		now := s.now().UTC()
		row.CompletedAt = &now
	}
	if err := s.Writer.CreateReadiness(ctx, row); err != nil {
		return nil, eris.Wrap(err, "dashboard: record readiness")
	}
	s.invalidate(ctx, institutionID)
	return row, nil
}

func (s *DashboardService) RecordAdoption(ctx context.Context, institutionID uint, in AdoptionInput) (*model.ToolAdoption, error) {
	row := &model.ToolAdoption{
		InstitutionID: institutionID,
		Department:    in.Department,
		ToolName:      in.ToolName,
		LicensedUsers: in.LicensedUsers,
		ActiveUsers:   in.ActiveUsers,
		RecordedAt:    s.now().UTC(),
	}
	if in.RecordedAt != nil {
		row.RecordedAt = in.RecordedAt.UTC()
	}
	if err := s.Writer.CreateAdoption(ctx, row); err != nil {
		return nil, eris.Wrap(err, "dashboard: record adoption")
	}
	s.invalidate(ctx, institutionID)
	return row, nil
}

func (s *DashboardService) invalidate(ctx context.Context, institutionID uint) {
	inv, ok := s.Cache.(CacheInvalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, institutionID); err != nil {
		logger.Log.Warn("Could not invalidate dashboard cache", zap.Error(err))
	}
}

// Dashboard dispatches by kind; used by the report endpoint.
func (s *DashboardService) Dashboard(ctx context.Context, kind string, f model.DashboardFilter) (interface{}, error) {
	switch kind {
	case DashboardReadiness:
		return s.Readiness(ctx, f)
	case DashboardAdoption:
		return s.Adoption(ctx, f)
	case DashboardWatchlist:
		return s.Watchlist(ctx, f)
	default:
		return nil, util.ErrUnknownDashboard
	}
}

func (s *DashboardService) Readiness(ctx context.Context, f model.DashboardFilter) (*model.ReadinessDashboard, error) {
	f, err := s.NormalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, DashboardReadiness, f, func() (*model.ReadinessDashboard, error) {
		rows, err := s.Rows.ReadinessRows(ctx, f.InstitutionID, f.Department, f.From, f.To)
		if err != nil {
			return nil, eris.Wrap(err, "dashboard: readiness rows")
		}
		window := time.Duration(s.TrendWindowDays) * 24 * time.Hour
		trendRows, err := s.Rows.CompletedReadinessRows(ctx, f.InstitutionID, f.Department, f.To.Add(-2*window), f.To)
		if err != nil {
			return nil, eris.Wrap(err, "dashboard: readiness trend rows")
		}
		d := BuildReadiness(rows, trendRows, f.To, window)
		d.GeneratedAt = s.now().UTC()
		return &d, nil
	})
}

func (s *DashboardService) Adoption(ctx context.Context, f model.DashboardFilter) (*model.AdoptionDashboard, error) {
	f, err := s.NormalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, DashboardAdoption, f, func() (*model.AdoptionDashboard, error) {
		rows, err := s.Rows.AdoptionRows(ctx, f.InstitutionID, f.Department, f.From, f.To)
		if err != nil {
			return nil, eris.Wrap(err, "dashboard: adoption rows")
		}
		d := BuildAdoption(rows)
		d.GeneratedAt = s.now().UTC()
		return &d, nil
	})
}

func (s *DashboardService) Watchlist(ctx context.Context, f model.DashboardFilter) (*model.WatchlistDashboard, error) {
	f, err := s.NormalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, DashboardWatchlist, f, func() (*model.WatchlistDashboard, error) {
		records, err := s.Vendors.FindForWatchlist(ctx, f.InstitutionID, f.Department, f.To)
		if err != nil {
			return nil, eris.Wrap(err, "dashboard: watchlist rows")
		}
		now := s.now().UTC()
		d := BuildWatchlist(records, now, s.RenewalWindowDays)
		d.GeneratedAt = now
		return &d, nil
	})
}

// cached serves a dashboard from the cache when possible. Cache errors are
// logged and fall through to a fresh build.
func cached[T any](ctx context.Context, s *DashboardService, kind string, f model.DashboardFilter, build func() (*T, error)) (*T, error) {
	if s.Cache == nil || s.CacheTTL <= 0 {
		return build()
	}
	key := repository.DashboardCacheKey(kind, f)

	var hit T
	found, err := s.Cache.Get(ctx, key, &hit)
	if err != nil {
		logger.Log.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		monitoring.DashboardCache.WithLabelValues(kind, "hit").Inc()
		return &hit, nil
	}
	monitoring.DashboardCache.WithLabelValues(kind, "miss").Inc()

	v, err := build()
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, key, v, s.CacheTTL); err != nil {
		logger.Log.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// BuildReadiness aggregates readiness rows. Only completed assessments
// contribute to score averages. trendRows must cover the two trend windows
// ending at `to`.
func BuildReadiness(rows, trendRows []model.ReadinessAssessment, to time.Time, window time.Duration) model.ReadinessDashboard {
	d := model.ReadinessDashboard{
		TotalAssessments: len(rows),
		ByDepartment:     []model.DepartmentReadiness{},
	}

	type acc struct {
		total, completed int
		scoreSum         float64
	}
	byDept := make(map[string]*acc)
	var completed int
	var scoreSum float64
	for _, r := range rows {
		dept := departmentOf(r.Department)
		a, ok := byDept[dept]
		if !ok {
			a = &acc{}
			byDept[dept] = a
		}
		a.total++
		if r.Status == model.ReadinessCompleted {
			completed++
			scoreSum += r.Score
			a.completed++
			a.scoreSum += r.Score
		}
	}

	d.CompletionRates = model.CompletionRates{
		Completed:  completed,
		Total:      len(rows),
		Percentage: util.Percent(int64(completed), int64(len(rows))),
	}
	d.AverageScore = average(scoreSum, completed)

	for dept, a := range byDept {
		d.ByDepartment = append(d.ByDepartment, model.DepartmentReadiness{
			Department:   dept,
			Assessments:  a.total,
			Completed:    a.completed,
			AverageScore: average(a.scoreSum, a.completed),
		})
	}
	sort.Slice(d.ByDepartment, func(i, j int) bool {
		return d.ByDepartment[i].Department < d.ByDepartment[j].Department
	})

	d.Trend = readinessTrend(trendRows, to, window)
	return d
}

// readinessTrend compares the average completed score of (to-window, to]
// with that of (to-2*window, to-window].
func readinessTrend(rows []model.ReadinessAssessment, to time.Time, window time.Duration) model.Trend {
	split := to.Add(-window)
	start := to.Add(-2 * window)

	var curSum, prevSum float64
	var curN, prevN int
	for _, r := range rows {
		if r.Status != model.ReadinessCompleted {
			continue
		}
		at := r.CreatedAt
		if r.CompletedAt != nil {
			at = *r.CompletedAt
		}
		switch {
		case at.After(split) && !at.After(to):
			curSum += r.Score
			curN++
		case at.After(start) && !at.After(split):
			prevSum += r.Score
			prevN++
		}
	}
	return ClassifyTrend(average(curSum, curN), average(prevSum, prevN))
}

// ClassifyTrend is stable when the scores differ by less than one point.
func ClassifyTrend(current, previous float64) model.Trend {
	delta := current - previous
	t := model.Trend{
		Current:   util.Round1(current),
		Previous:  util.Round1(previous),
		Delta:     util.Round1(delta),
		Direction: model.TrendStable,
	}
	switch {
	case math.Abs(delta) < 1:
	case delta > 0:
		t.Direction = model.TrendUp
	default:
		t.Direction = model.TrendDown
	}
	return t
}

// BuildAdoption uses the latest snapshot of each (department, tool) pair in
// the window.
func BuildAdoption(rows []model.ToolAdoption) model.AdoptionDashboard {
	type key struct{ dept, tool string }
	latest := make(map[key]model.ToolAdoption)
	for _, r := range rows {
		k := key{departmentOf(r.Department), r.ToolName}
		if prev, ok := latest[k]; !ok || r.RecordedAt.After(prev.RecordedAt) {
			latest[k] = r
		}
	}

	byTool := make(map[string]*model.ToolAdoptionSummary)
	byDept := make(map[string]*model.DepartmentAdoption)
	d := model.AdoptionDashboard{
		ByTool:       []model.ToolAdoptionSummary{},
		ByDepartment: []model.DepartmentAdoption{},
	}
	for k, r := range latest {
		t, ok := byTool[k.tool]
		if !ok {
			t = &model.ToolAdoptionSummary{ToolName: k.tool}
			byTool[k.tool] = t
		}
		t.LicensedUsers += r.LicensedUsers
		t.ActiveUsers += r.ActiveUsers

		dp, ok := byDept[k.dept]
		if !ok {
			dp = &model.DepartmentAdoption{Department: k.dept}
			byDept[k.dept] = dp
		}
		dp.Tools++
		dp.LicensedUsers += r.LicensedUsers
		dp.ActiveUsers += r.ActiveUsers

		d.LicensedUsers += r.LicensedUsers
		d.ActiveUsers += r.ActiveUsers
	}

	for _, t := range byTool {
		t.AdoptionRate = util.Percent(int64(t.ActiveUsers), int64(t.LicensedUsers))
		d.ByTool = append(d.ByTool, *t)
	}
	for _, dp := range byDept {
		dp.AdoptionRate = util.Percent(int64(dp.ActiveUsers), int64(dp.LicensedUsers))
		d.ByDepartment = append(d.ByDepartment, *dp)
	}
	sort.Slice(d.ByTool, func(i, j int) bool { return d.ByTool[i].ToolName < d.ByTool[j].ToolName })
	sort.Slice(d.ByDepartment, func(i, j int) bool { return d.ByDepartment[i].Department < d.ByDepartment[j].Department })

	d.TotalTools = len(byTool)
	d.AdoptionRate = util.Percent(int64(d.ActiveUsers), int64(d.LicensedUsers))
	return d
}

// BuildWatchlist buckets renewals strictly by sign: a negative number of
// days is overdue, everything else is upcoming. Upcoming renewals within
// windowDays are marked DueSoon.
// Rejected vendors are ignored for renewals and high-risk listing.
func BuildWatchlist(records []model.VendorAssessmentRecord, now time.Time, windowDays int) model.WatchlistDashboard {
	d := model.WatchlistDashboard{
		Overdue:         []model.RenewalItem{},
		Upcoming:        []model.RenewalItem{},
		HighRiskVendors: []model.FlaggedVendor{},
		TotalVendors:    len(records),
	}

	var flagged int
	for _, r := range records {
		if r.FlagCount > 0 {
			flagged++
		}
		if r.Status == model.VendorPending {
			d.PendingReviews++
		}
		if r.Status == model.VendorRejected {
			continue
		}

		if r.RenewalDate != nil {
			item := model.RenewalItem{
				AssessmentID:     r.ID,
				VendorName:       r.VendorName,
				Department:       departmentOf(r.Department),
				RenewalDate:      r.RenewalDate.UTC().Format(util.DateFormat),
				DaysUntilRenewal: DaysUntil(now, *r.RenewalDate),
				RiskLevel:        r.RiskLevel,
			}
			if item.DaysUntilRenewal < 0 {
				d.Overdue = append(d.Overdue, item)
			} else {
				item.DueSoon = item.DaysUntilRenewal <= windowDays
				d.Upcoming = append(d.Upcoming, item)
			}
		}

		if risk.Level(r.RiskLevel) == risk.LevelHigh {
			var flags []string
			if len(r.RiskFlags) > 0 {
				if err := json.Unmarshal(r.RiskFlags, &flags); err != nil {
					logger.Log.Warn("Unreadable risk flags", zap.Uint("assessmentId", r.ID), zap.Error(err))
				}
			}
			if flags == nil {
				flags = []string{}
			}
			d.HighRiskVendors = append(d.HighRiskVendors, model.FlaggedVendor{
				AssessmentID: r.ID,
				VendorName:   r.VendorName,
				Department:   departmentOf(r.Department),
				RiskLevel:    r.RiskLevel,
				Flags:        flags,
			})
		}
	}

	byDays := func(items []model.RenewalItem) {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].DaysUntilRenewal < items[j].DaysUntilRenewal
		})
	}
	byDays(d.Overdue)
	byDays(d.Upcoming)

	d.FlaggedPercent = util.Percent(int64(flagged), int64(len(records)))
	return d
}

// DaysUntil counts whole calendar days (UTC) from now to date.
func DaysUntil(now, date time.Time) int {
	a := truncateDay(now)
	b := truncateDay(date)
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return util.Round1(sum / float64(n))
}

func departmentOf(d string) string {
	if d == "" {
		return unassignedDepartment
	}
	return d
}
