package models

import "time"

// Verification statuses
const (
	VerificationStatusVerified   = "verified"
	VerificationStatusPending    = "pending"
	VerificationStatusUnverified = "unverified"
)

// VerificationRecord is the identity-verification state of a user. A user
// with no record is unverified.
type VerificationRecord struct {
	UserID     string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	Status     string    `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	DocumentID string    `json:"document_id,omitempty"`
	ReviewedBy string    `gorm:"type:varchar(64)" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidVerificationStatus reports whether s is a known verification status.
func ValidVerificationStatus(s string) bool {
	switch s {
	case VerificationStatusVerified, VerificationStatusPending, VerificationStatusUnverified:
		return true
	}
	return false
}
