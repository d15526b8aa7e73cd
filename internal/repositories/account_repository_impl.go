package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, ErrAccountNotFound
	}
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) CompareAndSetBalance(ctx context.Context, id string, expected, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND balance = ?", id, expected).
		Updates(map[string]interface{}{
			"balance":    balance,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBalanceConflict
	}
	return nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id, status, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"status_reason": reason,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update account status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
