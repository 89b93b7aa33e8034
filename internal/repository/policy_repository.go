package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

type PolicyRepository struct {
	DB *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{DB: db}
}

func (r *PolicyRepository) Create(ctx context.Context, t *model.PolicyTemplate) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *PolicyRepository) FindByID(ctx context.Context, institutionID, id uint) (*model.PolicyTemplate, error) {
	var t model.PolicyTemplate
	err := r.DB.WithContext(ctx).
		Where("institution_id = ?", institutionID).
		First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PolicyRepository) List(ctx context.Context, institutionID uint, category string) ([]model.PolicyTemplate, error) {
	db := r.DB.WithContext(ctx).Where("institution_id = ?", institutionID)
	if category != "" {
		db = db.Where("category = ?", category)
	}
	var templates []model.PolicyTemplate
	err := db.Order("title ASC").Find(&templates).Error
	return templates, err
}

// SaveRevision updates the template body and version and appends the
// revision in one transaction.
func (r *PolicyRepository) SaveRevision(ctx context.Context, t *model.PolicyTemplate, rev *model.PolicyRevision) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Updates(map[string]interface{}{
			"body":    t.Body,
			"version": t.Version,
			"title":   t.Title,
		}).Error; err != nil {
			return err
		}
		return tx.Create(rev).Error
	})
}

func (r *PolicyRepository) ListRevisions(ctx context.Context, templateID uint) ([]model.PolicyRevision, error) {
	var revs []model.PolicyRevision
	err := r.DB.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("version DESC").
		Find(&revs).Error
	return revs, err
}

// Subscribe is idempotent per (template, webhook).
func (r *PolicyRepository) Subscribe(ctx context.Context, sub *model.PolicySubscription) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub).Error
}

func (r *PolicyRepository) Subscriptions(ctx context.Context, templateID uint) ([]model.PolicySubscription, error) {
	var subs []model.PolicySubscription
	err := r.DB.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}
