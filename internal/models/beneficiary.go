package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Beneficiary is an external payee owned by a single user.
type Beneficiary struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);index;not null" json:"owner_id"`
	Name      string    `gorm:"type:varchar(140);not null" json:"name"`
	IBAN      string    `gorm:"type:varchar(34);not null" json:"iban"`
	BIC       string    `gorm:"type:varchar(11)" json:"bic,omitempty"`
	Currency  string    `gorm:"type:char(3)" json:"currency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Beneficiary) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
