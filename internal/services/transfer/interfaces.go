package transfer

import (
	"context"
	"time"

	"paycore/internal/models"
	"paycore/internal/services/beneficiary"

	"github.com/shopspring/decimal"
)

// Service is the only mutation surface for transfers.
type Service interface {
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*models.Transfer, error)
	CancelTransfer(ctx context.Context, transferID string, actor Actor) (*models.Transfer, error)
	ResolveExternalTransfer(ctx context.Context, transferID string, req ResolveRequest) (*models.Transfer, error)
	ExecuteScheduled(ctx context.Context, transferID string) (*models.Transfer, error)

	GetTransfer(ctx context.Context, transferID string, actor Actor) (*models.Transfer, error)
	ListTransfers(ctx context.Context, filter TransferFilter) (*TransferPage, error)
}

// VerificationGate is the identity-verification oracle.
type VerificationGate interface {
	Require(ctx context.Context, userID string) error
}

// LimitPolicy checks outgoing limits.
type LimitPolicy interface {
	CheckLimits(ctx context.Context, accountID, currency string, amount decimal.Decimal, asOf time.Time) error
	CheckScheduled(ctx context.Context, accountID, currency string, amount decimal.Decimal, dueAt time.Time) error
}

// BeneficiaryResolver looks up or builds the payee of an external transfer.
type BeneficiaryResolver interface {
	Resolve(ctx context.Context, ownerID, id string, inline *beneficiary.Input) (*models.Beneficiary, error)
	Save(ctx context.Context, b *models.Beneficiary) error
}

// EventEmitter receives transfer events. Emit must not block.
type EventEmitter interface {
	Emit(ctx context.Context, event models.TransferEvent)
}
