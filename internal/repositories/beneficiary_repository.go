package repositories

import (
	"context"
	"errors"
	"fmt"

	"paycore/internal/models"

	"gorm.io/gorm"
)

var ErrBeneficiaryNotFound = errors.New("beneficiary not found")

type BeneficiaryRepository interface {
	Create(ctx context.Context, b *models.Beneficiary) error
	GetByID(ctx context.Context, id string) (*models.Beneficiary, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Beneficiary, error)
	Update(ctx context.Context, b *models.Beneficiary) error
	Delete(ctx context.Context, id string) error
}

type beneficiaryRepository struct {
	db *gorm.DB
}

func NewBeneficiaryRepository(db *gorm.DB) BeneficiaryRepository {
	return &beneficiaryRepository{db: db}
}

func (r *beneficiaryRepository) Create(ctx context.Context, b *models.Beneficiary) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}
	return nil
}

func (r *beneficiaryRepository) GetByID(ctx context.Context, id string) (*models.Beneficiary, error) {
	var b models.Beneficiary
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	return &b, nil
}

func (r *beneficiaryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Beneficiary, error) {
	var list []*models.Beneficiary
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	return list, nil
}

func (r *beneficiaryRepository) Update(ctx context.Context, b *models.Beneficiary) error {
	result := r.db.WithContext(ctx).Save(b)
	if result.Error != nil {
		return fmt.Errorf("failed to update beneficiary: %w", result.Error)
	}
	return nil
}

func (r *beneficiaryRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Beneficiary{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}
