package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

type InstitutionRepository struct {
	DB *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) *InstitutionRepository {
	return &InstitutionRepository{DB: db}
}

func (r *InstitutionRepository) FindByID(ctx context.Context, id uint) (*model.Institution, error) {
	var inst model.Institution
	err := r.DB.WithContext(ctx).First(&inst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInstitutionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *InstitutionRepository) Create(ctx context.Context, inst *model.Institution) error {
	return r.DB.WithContext(ctx).Create(inst).Error
}
