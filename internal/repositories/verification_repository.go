package repositories

import (
	"context"
	"errors"
	"fmt"

	"paycore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrVerificationNotFound = errors.New("verification record not found")

type VerificationRepository interface {
	Get(ctx context.Context, userID string) (*models.VerificationRecord, error)
	Upsert(ctx context.Context, record *models.VerificationRecord) error
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Get(ctx context.Context, userID string) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to get verification record: %w", err)
	}
	return &rec, nil
}

func (r *verificationRepository) Upsert(ctx context.Context, record *models.VerificationRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "document_id", "reviewed_by", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save verification record: %w", err)
	}
	return nil
}
