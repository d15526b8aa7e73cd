package repositories

import (
	"context"
	"fmt"

	"paycore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LimitRepository reads limit overrides.
type LimitRepository interface {
	// Find returns the rows for currency that apply to accountID: the
	// currency-wide rows (empty account id) and the account's own rows.
	Find(ctx context.Context, accountID, currency string) ([]*models.TransferLimit, error)
	Upsert(ctx context.Context, limit *models.TransferLimit) error
}

type limitRepository struct {
	db *gorm.DB
}

func NewLimitRepository(db *gorm.DB) LimitRepository {
	return &limitRepository{db: db}
}

func (r *limitRepository) Find(ctx context.Context, accountID, currency string) ([]*models.TransferLimit, error) {
	var limits []*models.TransferLimit
	err := r.db.WithContext(ctx).
		Where("currency = ? AND (account_id = '' OR account_id = ?)", currency, accountID).
		Find(&limits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer limits: %w", err)
	}
	return limits, nil
}

func (r *limitRepository) Upsert(ctx context.Context, limit *models.TransferLimit) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "currency"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(limit).Error
	if err != nil {
		return fmt.Errorf("failed to save transfer limit: %w", err)
	}
	return nil
}
