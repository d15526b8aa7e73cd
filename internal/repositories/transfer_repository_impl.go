package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type transferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{
		db: db,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *transferRepository) Create(ctx context.Context, t *models.Transfer) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (r *transferRepository) UpdateFrom(ctx context.Context, t *models.Transfer, from models.TransferStatus) error {
	t.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ? AND status = ?", t.ID, from).
		Select("*").
		Omit("id", "created_at").
		Updates(t)
	if result.Error != nil {
		return fmt.Errorf("failed to update transfer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleTransfer
	}
	return nil
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	var t models.Transfer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return &t, nil
}

func (r *transferRepository) GetByReference(ctx context.Context, fromAccountID, reference string) (*models.Transfer, error) {
	var t models.Transfer
	err := r.db.WithContext(ctx).
		Where("from_account_id = ? AND reference = ?", fromAccountID, reference).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to get transfer by reference: %w", err)
	}
	return &t, nil
}

func (r *transferRepository) List(ctx context.Context, filter TransferFilter) ([]*models.Transfer, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transfer{})
	if len(filter.AccountIDs) > 0 {
		query = query.Where("from_account_id IN ? OR to_account_id IN ?", filter.AccountIDs, filter.AccountIDs)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AdminStatus != "" {
		query = query.Where("admin_status = ?", filter.AdminStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	var transfers []*models.Transfer
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := query.Order("created_at DESC").Find(&transfers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, total, nil
}

func (r *transferRepository) SumOutgoing(ctx context.Context, accountID, currency string, from, to time.Time, statuses []models.TransferStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("from_account_id = ? AND currency = ? AND status IN ?", accountID, currency, statuses).
		Where("settled_at >= ? AND settled_at < ?", from, to).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outgoing transfers: %w", err)
	}
	return total, nil
}

func (r *transferRepository) SumScheduled(ctx context.Context, accountID, currency string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("from_account_id = ? AND currency = ? AND type = ? AND status = ?",
			accountID, currency, models.TransferTypeScheduled, models.TransferStatusPending).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum scheduled transfers: %w", err)
	}
	return total, nil
}

func (r *transferRepository) ListDueScheduled(ctx context.Context, now time.Time, after *ScheduledCursor, limit int) ([]*models.Transfer, error) {
	query := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND scheduled_at <= ?",
			models.TransferTypeScheduled, models.TransferStatusPending, now)
	if after != nil {
		query = query.Where("(scheduled_at > ? OR (scheduled_at = ? AND id > ?))",
			after.ScheduledAt, after.ScheduledAt, after.ID)
	}

	var transfers []*models.Transfer
	err := query.
		Order("scheduled_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due scheduled transfers: %w", err)
	}
	return transfers, nil
}

func (r *transferRepository) CountByBeneficiary(ctx context.Context, beneficiaryID string, status models.TransferStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("beneficiary_id = ? AND status = ?", beneficiaryID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count beneficiary transfers: %w", err)
	}
	return count, nil
}
