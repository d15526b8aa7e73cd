package transfer

import (
	"time"

	"paycore/internal/models"
	"paycore/internal/services/beneficiary"

	"github.com/shopspring/decimal"
)

// Review decisions
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

const transferLockPrefix = "transfer:"

// CreateTransferRequest is a request to move money out of FromAccountID.
// Exactly one destination form is set: ToAccountID, BeneficiaryID or
// Beneficiary.
type CreateTransferRequest struct {
	InitiatedBy   string              `json:"-"`
	Type          models.TransferType `json:"type"`
	FromAccountID string              `json:"from_account_id"`
	ToAccountID   string              `json:"to_account_id,omitempty"`
	BeneficiaryID string              `json:"beneficiary_id,omitempty"`
	Beneficiary   *beneficiary.Input  `json:"beneficiary,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Description   string              `json:"description"`
	Reference     string              `json:"reference,omitempty"`
	ScheduledAt   *time.Time          `json:"scheduled_at,omitempty"`
}

// ResolveRequest carries an admin review decision.
type ResolveRequest struct {
	Decision   string `json:"decision"`
	ReviewerID string `json:"-"`
	Note       string `json:"note"`
}

// Actor identifies who is reading or cancelling a transfer. Admins see
// every transfer.
type Actor struct {
	UserID string
	Admin  bool
}

// TransferFilter selects transfers for ListTransfers. With OwnerID set only
// transfers touching that user's accounts are returned, and the owner must
// be verified.
type TransferFilter struct {
	OwnerID     string
	AccountID   string
	Type        models.TransferType
	Status      models.TransferStatus
	AdminStatus models.AdminStatus
	Limit       int
	Offset      int
}

type TransferPage struct {
	Transfers []*models.Transfer `json:"transfers"`
	Total     int64              `json:"total"`
}

// Config holds engine settings.
type Config struct {
	// Now is the engine clock. Defaults to time.Now in UTC.
	Now func() time.Time
}
