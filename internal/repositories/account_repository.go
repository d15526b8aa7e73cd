package repositories

import (
	"context"
	"errors"

	"paycore/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrBalanceConflict = errors.New("account balance changed concurrently")
)

// AccountRepository persists accounts. Balance writes go through
// CompareAndSetBalance, which only succeeds if the stored balance still
// equals the value the caller read.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Account, error)
	CompareAndSetBalance(ctx context.Context, id string, expected, balance decimal.Decimal) error
	UpdateStatus(ctx context.Context, id, status, reason string) error
}
