package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection would get its own in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestVendorAssessmentRepository_CreateFindScoped(t *testing.T) {
	repo := NewVendorAssessmentRepository(newTestDB(t))
	ctx := context.Background()

	rec := &model.VendorAssessmentRecord{
		InstitutionID: 1,
		VendorName:    "Acme",
		Assessment:    []byte(`{"basicInfo":{"vendorName":"Acme"}}`),
		RiskFlags:     []byte(`["a"]`),
		FlagCount:     1,
		Status:        model.VendorPending,
	}
	require.NoError(t, repo.Create(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := repo.FindByID(ctx, 1, rec.ID)
	require.NoError(t, err)
	a, flags, err := got.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.BasicInfo.VendorName)
	assert.Equal(t, []string{"a"}, flags)

	_, err = repo.FindByID(ctx, 2, rec.ID)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestVendorAssessmentRepository_ListFilters(t *testing.T) {
	repo := NewVendorAssessmentRepository(newTestDB(t))
	ctx := context.Background()
	for _, r := range []model.VendorAssessmentRecord{
		{InstitutionID: 1, VendorName: "Acme", Department: "Math", Status: model.VendorPending, RiskLevel: "low"},
		{InstitutionID: 1, VendorName: "Beta Labs", ProductName: "Tutor", Department: "Science", Status: model.VendorApproved, RiskLevel: "high"},
		{InstitutionID: 1, VendorName: "Gamma", Department: "Math", Status: model.VendorApproved, RiskLevel: "medium"},
		{InstitutionID: 2, VendorName: "Other", Status: model.VendorApproved},
	} {
		r := r
		require.NoError(t, repo.Create(ctx, &r))
	}

	all, total, err := repo.List(ctx, VendorQuery{InstitutionID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	approved, total, err := repo.List(ctx, VendorQuery{InstitutionID: 1, Status: model.VendorApproved, Department: "Math"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Gamma", approved[0].VendorName)

	found, _, err := repo.List(ctx, VendorQuery{InstitutionID: 1, Search: "Tutor"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Beta Labs", found[0].VendorName)

	page, total, err := repo.List(ctx, VendorQuery{InstitutionID: 1, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)
}

func TestVendorAssessmentRepository_ReviewAndOverdue(t *testing.T) {
	repo := NewVendorAssessmentRepository(newTestDB(t))
	ctx := context.Background()

	past := &model.VendorAssessmentRecord{InstitutionID: 1, VendorName: "Old", Status: model.VendorPending}
	future := &model.VendorAssessmentRecord{InstitutionID: 1, VendorName: "New", Status: model.VendorPending}
	require.NoError(t, repo.Create(ctx, past))
	require.NoError(t, repo.Create(ctx, future))

	lastMonth := date(2026, 2, 1)
	nextYear := date(2027, 3, 1)
	require.NoError(t, repo.UpdateReview(ctx, 1, past.ID, model.VendorApproved, "fine", &lastMonth))
	require.NoError(t, repo.UpdateReview(ctx, 1, future.ID, model.VendorApproved, "", &nextYear))
	assert.ErrorIs(t, repo.UpdateReview(ctx, 2, past.ID, model.VendorRejected, "", nil), util.ErrAssessmentNotFound)

	overdue, err := repo.FindOverdue(ctx, date(2026, 3, 15))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Old", overdue[0].VendorName)
	assert.Equal(t, "fine", overdue[0].ReviewNotes)

	require.NoError(t, repo.SetReportURL(ctx, past.ID, "https://files.example.com/r.html"))
	got, err := repo.FindByID(ctx, 1, past.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/r.html", got.ReportURL)

	watch, err := repo.FindForWatchlist(ctx, 1, "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, watch, 2)
}

func TestDashboardRepository_Windows(t *testing.T) {
	repo := NewDashboardRepository(newTestDB(t))
	ctx := context.Background()

	for _, r := range []model.ReadinessAssessment{
		{BaseModel: model.BaseModel{CreatedAt: date(2026, 3, 1)}, InstitutionID: 1, Department: "Math", Status: model.ReadinessCompleted, Score: 70},
		{BaseModel: model.BaseModel{CreatedAt: date(2026, 1, 1)}, InstitutionID: 1, Department: "Math", Status: model.ReadinessCompleted, Score: 40},
		{BaseModel: model.BaseModel{CreatedAt: date(2026, 3, 2)}, InstitutionID: 1, Department: "Art"},
		{BaseModel: model.BaseModel{CreatedAt: date(2026, 3, 2)}, InstitutionID: 2, Department: "Math"},
	} {
		r := r
		require.NoError(t, repo.CreateReadiness(ctx, &r))
	}
	rows, err := repo.ReadinessRows(ctx, 1, "", date(2026, 2, 1), date(2026, 3, 31))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.ReadinessRows(ctx, 1, "Math", date(2026, 2, 1), date(2026, 3, 31))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 70.0, rows[0].Score)

	lateDone := date(2026, 3, 20)
	late := model.ReadinessAssessment{BaseModel: model.BaseModel{CreatedAt: date(2025, 11, 1)}, InstitutionID: 1, Department: "Math", Status: model.ReadinessCompleted, Score: 90, CompletedAt: &lateDone}
	require.NoError(t, repo.CreateReadiness(ctx, &late))

	completed, err := repo.CompletedReadinessRows(ctx, 1, "", date(2026, 2, 1), date(2026, 3, 31))
	require.NoError(t, err)
	require.Len(t, completed, 2, "filtered by completion time, not creation time")
	assert.ElementsMatch(t, []float64{70, 90}, []float64{completed[0].Score, completed[1].Score})

	require.NoError(t, repo.CreateAdoption(ctx, &model.ToolAdoption{InstitutionID: 1, Department: "Math", ToolName: "Solver", LicensedUsers: 5, ActiveUsers: 2, RecordedAt: date(2026, 3, 10)}))
	adoption, err := repo.AdoptionRows(ctx, 1, "", date(2026, 3, 1), date(2026, 3, 31))
	require.NoError(t, err)
	require.Len(t, adoption, 1)
	assert.Equal(t, "Solver", adoption[0].ToolName)
}

func TestPolicyRepository_RevisionsAndSubscriptions(t *testing.T) {
	repo := NewPolicyRepository(newTestDB(t))
	ctx := context.Background()

	tpl := &model.PolicyTemplate{InstitutionID: 1, Title: "AI Use", Body: "v1", Version: 1}
	require.NoError(t, repo.Create(ctx, tpl))

	tpl.Body, tpl.Version = "v2", 2
	require.NoError(t, repo.SaveRevision(ctx, tpl, &model.PolicyRevision{TemplateID: tpl.ID, Version: 2, Body: "v2", Redline: "-v1\n+v2\n", Added: 1, Removed: 1}))

	got, err := repo.FindByID(ctx, 1, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
	assert.Equal(t, 2, got.Version)

	_, err = repo.FindByID(ctx, 2, tpl.ID)
	assert.ErrorIs(t, err, util.ErrPolicyNotFound)

	revs, err := repo.ListRevisions(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].Added)

	sub := model.PolicySubscription{TemplateID: tpl.ID, WebhookURL: "https://hooks.example.com/a"}
	require.NoError(t, repo.Subscribe(ctx, &sub))
	dup := model.PolicySubscription{TemplateID: tpl.ID, WebhookURL: "https://hooks.example.com/a"}
	require.NoError(t, repo.Subscribe(ctx, &dup))

	subs, err := repo.Subscriptions(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	list, err := repo.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInstitutionRepository(t *testing.T) {
	repo := NewInstitutionRepository(newTestDB(t))
	ctx := context.Background()

	inst := &model.Institution{Name: "Lakeside ISD", Kind: model.InstitutionK12}
	require.NoError(t, repo.Create(ctx, inst))

	got, err := repo.FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lakeside ISD", got.Name)

	_, err = repo.FindByID(ctx, inst.ID+1)
	assert.ErrorIs(t, err, util.ErrInstitutionNotFound)
}

func TestDashboardCacheKey(t *testing.T) {
	f := model.DashboardFilter{InstitutionID: 3, From: date(2026, 1, 1), To: date(2026, 3, 31), Department: "Math"}
	a := DashboardCacheKey("readiness", f)
	assert.Contains(t, a, "dashboard:3:readiness")
	assert.NotEqual(t, a, DashboardCacheKey("adoption", f))
	f.Department = ""
	assert.NotEqual(t, a, DashboardCacheKey("readiness", f))
}
