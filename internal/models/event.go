package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer event types, also used as AMQP routing keys.
const (
	EventTransferCreated  = "transfer.created"
	EventTransferResolved = "transfer.resolved"
)

// TransferEvent is published after a transfer is stored or changes state.
type TransferEvent struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	TransferID    string          `json:"transfer_id"`
	TransferType  TransferType    `json:"transfer_type"`
	Status        TransferStatus  `json:"status"`
	AdminStatus   AdminStatus     `json:"admin_status"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	BeneficiaryID string          `json:"beneficiary_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
	FailureCode   string          `json:"failure_code,omitempty"`
	InitiatedBy   string          `json:"initiated_by,omitempty"`
	ReviewedBy    string          `json:"reviewed_by,omitempty"`
}

// NewTransferEvent snapshots t.
func NewTransferEvent(eventType string, t *Transfer, at time.Time) TransferEvent {
	return TransferEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		OccurredAt:    at,
		TransferID:    t.ID,
		TransferType:  t.Type,
		Status:        t.Status,
		AdminStatus:   t.AdminStatus,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		BeneficiaryID: t.BeneficiaryID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Reference:     t.Reference,
		FailureCode:   t.FailureCode,
		InitiatedBy:   t.InitiatedBy,
		ReviewedBy:    t.ReviewedBy,
	}
}
