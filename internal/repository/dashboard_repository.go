package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ai_blueprint_backend/internal/model"
)

// DashboardRepository reads the raw rows the dashboards aggregate. It never
// groups in SQL; aggregation happens in the service.
type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

func (r *DashboardRepository) scoped(ctx context.Context, institutionID uint, department string) *gorm.DB {
	db := r.DB.WithContext(ctx).Where("institution_id = ?", institutionID)
	if department != "" {
		db = db.Where("department = ?", department)
	}
	return db
}

// ReadinessRows returns readiness assessments created in [from, to].
func (r *DashboardRepository) ReadinessRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ReadinessAssessment, error) {
	var rows []model.ReadinessAssessment
	err := r.scoped(ctx, institutionID, department).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// CompletedReadinessRows returns completed readiness assessments whose
// completion time, or creation time when unset, falls in [from, to].
func (r *DashboardRepository) CompletedReadinessRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ReadinessAssessment, error) {
	var rows []model.ReadinessAssessment
	err := r.scoped(ctx, institutionID, department).
		Where("status = ?", model.ReadinessCompleted).
		Where("COALESCE(completed_at, created_at) >= ? AND COALESCE(completed_at, created_at) <= ?", from, to).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// AdoptionRows returns tool usage snapshots recorded in [from, to].
func (r *DashboardRepository) AdoptionRows(ctx context.Context, institutionID uint, department string, from, to time.Time) ([]model.ToolAdoption, error) {
	var rows []model.ToolAdoption
	err := r.scoped(ctx, institutionID, department).
		Where("recorded_at >= ? AND recorded_at <= ?", from, to).
		Order("recorded_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *DashboardRepository) CreateReadiness(ctx context.Context, row *model.ReadinessAssessment) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

func (r *DashboardRepository) CreateAdoption(ctx context.Context, row *model.ToolAdoption) error {
	return r.DB.WithContext(ctx).Create(row).Error
}
