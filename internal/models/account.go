package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account statuses
const (
	AccountStatusActive  = "active"
	AccountStatusBlocked = "blocked"
	AccountStatusPending = "pending"
)

// Account holds a balance in a single currency. Balance is only written by the
// ledger store while the account lock is held.
type Account struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID      string          `gorm:"type:varchar(64);index;not null" json:"owner_id"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	Currency     string          `gorm:"type:char(3);not null" json:"currency"`
	Status       string          `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	StatusReason string          `gorm:"default:''" json:"status_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
	return nil
}

// IsActive reports whether the account may be debited or credited.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidAccountStatus reports whether s is a known account status.
func ValidAccountStatus(s string) bool {
	switch s {
	case AccountStatusActive, AccountStatusBlocked, AccountStatusPending:
		return true
	}
	return false
}
