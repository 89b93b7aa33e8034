package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

type VendorAssessmentRepository struct {
	DB *gorm.DB
}

func NewVendorAssessmentRepository(db *gorm.DB) *VendorAssessmentRepository {
	return &VendorAssessmentRepository{DB: db}
}

// VendorQuery filters the assessment list. Zero values mean "any".
type VendorQuery struct {
	InstitutionID uint
	Status        model.VendorStatus
	Department    string
	RiskLevel     string
	Search        string
	Page          int
	Limit         int
}

func (r *VendorAssessmentRepository) Create(ctx context.Context, rec *model.VendorAssessmentRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

// FindByID returns util.ErrAssessmentNotFound when the record does not exist
// or belongs to another institution.
func (r *VendorAssessmentRepository) FindByID(ctx context.Context, institutionID, id uint) (*model.VendorAssessmentRecord, error) {
	var rec model.VendorAssessmentRecord
	err := r.DB.WithContext(ctx).
		Where("institution_id = ?", institutionID).
		First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *VendorAssessmentRepository) List(ctx context.Context, q VendorQuery) ([]model.VendorAssessmentRecord, int64, error) {
	db := r.DB.WithContext(ctx).Model(&model.VendorAssessmentRecord{}).
		Where("institution_id = ?", q.InstitutionID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Department != "" {
		db = db.Where("department = ?", q.Department)
	}
	if q.RiskLevel != "" {
		db = db.Where("risk_level = ?", q.RiskLevel)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		db = db.Where("vendor_name LIKE ? OR product_name LIKE ?", like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var records []model.VendorAssessmentRecord
	err := db.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// UpdateReview stores a reviewer decision.
func (r *VendorAssessmentRepository) UpdateReview(ctx context.Context, institutionID, id uint, status model.VendorStatus, notes string, renewal *time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.VendorAssessmentRecord{}).
		Where("id = ? AND institution_id = ?", id, institutionID).
		Updates(map[string]interface{}{
			"status":       status,
			"review_notes": notes,
			"renewal_date": renewal,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAssessmentNotFound
	}
	return nil
}

func (r *VendorAssessmentRepository) SetReportURL(ctx context.Context, id uint, url string) error {
	return r.DB.WithContext(ctx).Model(&model.VendorAssessmentRecord{}).
		Where("id = ?", id).
		Update("report_url", url).Error
}

// FindForWatchlist returns every assessment of an institution created up to
// `to`, optionally limited to one department.
func (r *VendorAssessmentRepository) FindForWatchlist(ctx context.Context, institutionID uint, department string, to time.Time) ([]model.VendorAssessmentRecord, error) {
	db := r.DB.WithContext(ctx).
		Where("institution_id = ?", institutionID)
	if !to.IsZero() {
		db = db.Where("created_at <= ?", to)
	}
	if department != "" {
		db = db.Where("department = ?", department)
	}
	var records []model.VendorAssessmentRecord
	err := db.Order("renewal_date ASC, id ASC").Find(&records).Error
	return records, err
}

// FindOverdue returns approved assessments, across institutions, whose
// renewal date is before now.
func (r *VendorAssessmentRepository) FindOverdue(ctx context.Context, now time.Time) ([]model.VendorAssessmentRecord, error) {
	var records []model.VendorAssessmentRecord
	err := r.DB.WithContext(ctx).
		Where("status = ? AND renewal_date IS NOT NULL AND renewal_date < ?", model.VendorApproved, now).
		Order("institution_id ASC, renewal_date ASC").
		Find(&records).Error
	return records, err
}
