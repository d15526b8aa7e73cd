package repositories

import (
	"context"
	"errors"
	"time"

	"paycore/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user in the database
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// RecordLogin resets the failure counter and stamps the login time
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	// RecordFailedLogin bumps the failure counter and sets a lockout when
	// lockUntil is non-nil
	RecordFailedLogin(ctx context.Context, userID string, lockUntil *time.Time) error
}
