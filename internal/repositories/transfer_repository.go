package repositories

import (
	"context"
	"errors"
	"time"

	"paycore/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrDuplicateReference = errors.New("transfer reference already used for this account")
	ErrStaleTransfer      = errors.New("transfer status changed concurrently")
)

// TransferFilter narrows List. Zero values are ignored. AccountIDs matches
// transfers where any of the accounts is the source or the destination.
type TransferFilter struct {
	AccountIDs  []string
	Type        models.TransferType
	Status      models.TransferStatus
	AdminStatus models.AdminStatus
	Limit       int
	Offset      int
}

// ScheduledCursor marks the last scheduled transfer seen by a scan.
// Pages are ordered by (scheduled_at, id).
type ScheduledCursor struct {
	ScheduledAt time.Time
	ID          string
}

// TransferRepository persists transfers.
type TransferRepository interface {
	// Create inserts t. It returns ErrDuplicateReference when the source
	// account already has a transfer with t.Reference.
	Create(ctx context.Context, t *models.Transfer) error
	// UpdateFrom saves t only if the stored status still equals from.
	UpdateFrom(ctx context.Context, t *models.Transfer, from models.TransferStatus) error
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	GetByReference(ctx context.Context, fromAccountID, reference string) (*models.Transfer, error)
	List(ctx context.Context, filter TransferFilter) ([]*models.Transfer, int64, error)

	// SumOutgoing totals transfers leaving accountID in currency whose
	// settled_at lies in [from, to) and whose status is one of statuses.
	SumOutgoing(ctx context.Context, accountID, currency string, from, to time.Time, statuses []models.TransferStatus) (decimal.Decimal, error)
	// SumScheduled totals pending scheduled transfers leaving accountID in
	// currency that fall due in [from, to).
	SumScheduled(ctx context.Context, accountID, currency string, from, to time.Time) (decimal.Decimal, error)
	// ListDueScheduled returns pending scheduled transfers with
	// scheduled_at <= now, ordered by (scheduled_at, id) and starting
	// after the cursor when one is given.
	ListDueScheduled(ctx context.Context, now time.Time, after *ScheduledCursor, limit int) ([]*models.Transfer, error)
	CountByBeneficiary(ctx context.Context, beneficiaryID string, status models.TransferStatus) (int64, error)
}
