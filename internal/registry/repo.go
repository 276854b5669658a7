package registry

import (
	"context"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/pkg/db/models"
)

// Repository manages persistence for stakeholder records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, stakeholder *models.Stakeholder) error
	FindByAddress(ctx context.Context, address string) (*models.Stakeholder, error)
	List(ctx context.Context) ([]models.Stakeholder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stakeholder repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, stakeholder *models.Stakeholder) error {
	return r.db.WithContext(ctx).Create(stakeholder).Error
}

func (r *repository) FindByAddress(ctx context.Context, address string) (*models.Stakeholder, error) {
	var stakeholder models.Stakeholder
	if err := r.db.WithContext(ctx).
		Where("address = ?", address).
		First(&stakeholder).Error; err != nil {
		return nil, err
	}
	return &stakeholder, nil
}

func (r *repository) List(ctx context.Context) ([]models.Stakeholder, error) {
	var stakeholders []models.Stakeholder
	if err := r.db.WithContext(ctx).
		Order("registered_at ASC").
		Find(&stakeholders).Error; err != nil {
		return nil, err
	}
	return stakeholders, nil
}
