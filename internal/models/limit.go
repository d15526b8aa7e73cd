package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Limit types
const (
	LimitTypeDaily   = "daily"
	LimitTypeMonthly = "monthly"
	LimitTypeMinimum = "minimum"
)

// TransferLimit is one limit rule for a currency. A row with an empty
// AccountID overrides the configured default for every account; a row with
// AccountID set overrides it for that account only.
type TransferLimit struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AccountID string          `gorm:"type:varchar(36);uniqueIndex:idx_limit_scope" json:"account_id,omitempty"`
	Currency  string          `gorm:"type:char(3);not null;uniqueIndex:idx_limit_scope" json:"currency"`
	Type      string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_limit_scope" json:"type"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}
