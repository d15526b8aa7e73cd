package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferType identifies how a transfer settles.
type TransferType string

const (
	TransferTypeInternal  TransferType = "internal"
	TransferTypeExternal  TransferType = "external"
	TransferTypeScheduled TransferType = "scheduled"
)

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
	TransferStatusCancelled  TransferStatus = "cancelled"
)

// AdminStatus tracks manual review of transfers leaving the system.
type AdminStatus string

const (
	AdminStatusNone          AdminStatus = "none"
	AdminStatusPendingReview AdminStatus = "pending_review"
	AdminStatusApproved      AdminStatus = "approved"
	AdminStatusRejected      AdminStatus = "rejected"
)

// Transfer moves Amount out of FromAccountID into either ToAccountID
// (internal settlement) or BeneficiaryID (external settlement).
type Transfer struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type          TransferType    `gorm:"type:varchar(16);not null;index" json:"type"`
	Status        TransferStatus  `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	AdminStatus   AdminStatus     `gorm:"type:varchar(16);not null;default:'none';index" json:"admin_status"`
	FromAccountID string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_transfer_source_reference;index:idx_transfer_source_created;index:idx_transfer_source_settled" json:"from_account_id"`
	ToAccountID   string          `gorm:"type:varchar(36)" json:"to_account_id,omitempty"`
	BeneficiaryID string          `gorm:"type:varchar(36);index" json:"beneficiary_id,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency      string          `gorm:"type:char(3);not null" json:"currency"`
	Description   string          `json:"description"`
	Reference     string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_transfer_source_reference" json:"reference"`
	InitiatedBy   string          `gorm:"type:varchar(64)" json:"initiated_by"`
	FailureCode   string          `gorm:"type:varchar(32)" json:"failure_code,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ReviewedBy    string          `gorm:"type:varchar(64)" json:"reviewed_by,omitempty"`
	ReviewNote    string          `json:"review_note,omitempty"`
	ScheduledAt   *time.Time      `gorm:"index" json:"scheduled_at,omitempty"`
	// SettledAt is when money left the source account. Spend windows use it.
	SettledAt  *time.Time `gorm:"index:idx_transfer_source_settled" json:"settled_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index:idx_transfer_source_created" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the transfer can no longer change state.
func (t *Transfer) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// SettlesExternally reports whether the transfer pays a beneficiary rather
// than another account in this ledger.
func (t *Transfer) SettlesExternally() bool {
	return t.BeneficiaryID != ""
}

// IsTerminal reports whether s is completed, failed or cancelled.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether t is a known transfer type.
func (t TransferType) Valid() bool {
	switch t {
	case TransferTypeInternal, TransferTypeExternal, TransferTypeScheduled:
		return true
	}
	return false
}
