package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	Name                string     `gorm:"not null" json:"name"`
	Role                string     `gorm:"default:'user'" json:"role"`
	Status              string     `gorm:"default:'active'" json:"status"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	AccountLockoutUntil *time.Time `json:"-"`
	TokenVersion        int        `gorm:"default:1" json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
