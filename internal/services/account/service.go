// Package account provisions accounts and serves owner-scoped reads.
// Balances are never written here; they only move through the ledger store.
package account

import (
	"context"
	"errors"
	"strings"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/services/ledger"
	"paycore/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CreateInput describes an account to provision.
type CreateInput struct {
	OwnerID        string          `json:"owner_id"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.Account, error)
	// Get returns the account when userID owns it. Admins read any account.
	Get(ctx context.Context, accountID, userID string, admin bool) (*models.Account, error)
	List(ctx context.Context, ownerID string) ([]*models.Account, error)
	SetStatus(ctx context.Context, accountID, status, reason string) (*models.Account, error)
}

type service struct {
	store ledger.Store
	users repositories.UserRepository
	log   zerolog.Logger
}

func NewService(store ledger.Store, users repositories.UserRepository, log zerolog.Logger) Service {
	if store == nil {
		panic("store is required")
	}
	if users == nil {
		panic("users is required")
	}
	return &service{
		store: store,
		users: users,
		log:   log.With().Str("component", "accounts").Logger(),
	}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*models.Account, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Status == "" {
		in.Status = models.AccountStatusActive
	}

	v := validation.New()
	v.Required("owner_id", in.OwnerID)
	v.Currency("currency", in.Currency)
	v.Check(models.ValidAccountStatus(in.Status), "status", "must be active, blocked or pending")
	v.Check(!in.OpeningBalance.IsNegative(), "opening_balance", "must not be negative")
	v.Check(in.OpeningBalance.Equal(in.OpeningBalance.Truncate(validation.MaxAmountScale)),
		"opening_balance", "must have at most two decimal places")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("user %s", in.OwnerID)
		}
		return nil, apperrors.Internal(err)
	}

	acc := &models.Account{
		ID:       uuid.NewString(),
		OwnerID:  in.OwnerID,
		Balance:  in.OpeningBalance,
		Currency: in.Currency,
		Status:   in.Status,
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", acc.ID).
		Str("owner_id", acc.OwnerID).
		Str("currency", acc.Currency).
		Str("opening_balance", acc.Balance.StringFixed(2)).
		Msg("account provisioned")
	return acc, nil
}

func (s *service) Get(ctx context.Context, accountID, userID string, admin bool) (*models.Account, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// Foreign accounts look missing.
	if !admin && acc.OwnerID != userID {
		return nil, apperrors.ErrNotFound.WithDetail("account %s", accountID)
	}
	return acc, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]*models.Account, error) {
	return s.store.ListAccounts(ctx, ownerID)
}

func (s *service) SetStatus(ctx context.Context, accountID, status, reason string) (*models.Account, error) {
	if !models.ValidAccountStatus(status) {
		return nil, apperrors.ErrInvalidRequest.WithDetail("unknown account status %q", status)
	}
	if len(reason) > validation.MaxDescriptionLength {
		return nil, apperrors.ErrInvalidRequest.WithDetail("reason must be at most %d characters", validation.MaxDescriptionLength)
	}

	h, err := s.store.Lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer s.store.Release(h)

	return s.store.SetStatus(ctx, h, accountID, status, reason)
}
