package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errNotHeld = errors.New("lock handle does not hold account")

type store struct {
	repo    repositories.AccountRepository
	locker  Locker
	cache   AccountCache
	config  Config
	metrics MetricsCollector
	log     zerolog.Logger
}

// NewStore creates the account store. cache may be nil.
func NewStore(
	repo repositories.AccountRepository,
	locker Locker,
	cache AccountCache,
	config Config,
	metrics MetricsCollector,
	log zerolog.Logger,
) Store {
	if repo == nil {
		panic("repo is required")
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if config.LockWait <= 0 {
		config.LockWait = DefaultLockWait
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &store{
		repo:    repo,
		locker:  locker,
		cache:   cache,
		config:  config,
		metrics: metrics,
		log:     log.With().Str("component", "ledger").Logger(),
	}
}

func (s *store) Lock(ctx context.Context, accountID string) (*LockHandle, error) {
	h := &LockHandle{}
	if err := s.acquire(ctx, h, accountKey(accountID)); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *store) LockPair(ctx context.Context, a, b string) (*LockHandle, error) {
	if a == b {
		return s.Lock(ctx, a)
	}
	ids := []string{a, b}
	sort.Strings(ids)

	h := &LockHandle{}
	for _, id := range ids {
		if err := s.acquire(ctx, h, accountKey(id)); err != nil {
			s.Release(h)
			return nil, err
		}
	}
	return h, nil
}

func (s *store) LockKey(ctx context.Context, key string) (*LockHandle, error) {
	h := &LockHandle{}
	if err := s.acquire(ctx, h, key); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *store) acquire(ctx context.Context, h *LockHandle, key string) error {
	start := time.Now()
	u, err := s.locker.Acquire(ctx, key, s.config.LockWait)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			s.metrics.RecordLockTimeout(key)
			s.log.Warn().Str("key", key).Dur("waited", time.Since(start)).Msg("lock wait expired")
			return apperrors.ErrLockTimeout.WithDetail("resource %s is busy", key)
		}
		return apperrors.Internal(err)
	}
	s.metrics.RecordLockWait(key, time.Since(start))
	h.add(key, u)
	return nil
}

func (s *store) Release(h *LockHandle) {
	if h == nil {
		return
	}
	// Release must succeed even when the caller's context is already done.
	for _, err := range h.release(context.Background()) {
		s.log.Error().Err(err).Strs("keys", h.keys).Msg("failed to release lock")
	}
}

func (s *store) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Amount: acc.Balance, Currency: acc.Currency, Status: acc.Status, OwnerID: acc.OwnerID}, nil
}

func (s *store) ApplyDelta(ctx context.Context, h *LockHandle, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if !h.Holds(accountID) {
		return decimal.Zero, apperrors.Internal(fmt.Errorf("%w: %s", errNotHeld, accountID))
	}

	acc, err := s.load(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if !acc.IsActive() {
		return decimal.Zero, apperrors.ErrAccountBlocked.WithDetail("account %s is %s", accountID, acc.Status)
	}

	newBalance := acc.Balance.Add(delta)
	if delta.IsNegative() && newBalance.IsNegative() {
		return decimal.Zero, apperrors.ErrInsufficientFunds.WithDetail(
			"account %s has %s %s, needs %s", accountID, acc.Balance.StringFixed(2), acc.Currency, delta.Neg().StringFixed(2))
	}

	if err := s.repo.CompareAndSetBalance(ctx, accountID, acc.Balance, newBalance); err != nil {
		return decimal.Zero, apperrors.Internal(err)
	}

	s.invalidate(ctx, accountID)
	s.metrics.RecordBalanceChange(accountID, acc.Balance, newBalance)
	s.log.Debug().
		Str("account_id", accountID).
		Str("delta", delta.StringFixed(2)).
		Str("balance", newBalance.StringFixed(2)).
		Msg("balance updated")

	return newBalance, nil
}

func (s *store) SetStatus(ctx context.Context, h *LockHandle, accountID, status, reason string) (*models.Account, error) {
	if !models.ValidAccountStatus(status) {
		return nil, apperrors.ErrInvalidRequest.WithDetail("unknown account status %q", status)
	}
	if !h.Holds(accountID) {
		return nil, apperrors.Internal(fmt.Errorf("%w: %s", errNotHeld, accountID))
	}

	if err := s.repo.UpdateStatus(ctx, accountID, status, reason); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("account %s", accountID)
		}
		return nil, apperrors.Internal(err)
	}
	s.invalidate(ctx, accountID)
	s.log.Info().Str("account_id", accountID).Str("status", status).Msg("account status changed")

	return s.load(ctx, accountID)
}

func (s *store) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := s.repo.Create(ctx, account); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// GetAccount serves reads, from the cache when one is configured. A fill
// is re-read after it lands and dropped if a write slipped in between, so a
// writer's invalidation can never be overtaken by an older snapshot.
func (s *store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if s.cache != nil {
		acc, found, err := s.cache.GetAccount(ctx, accountID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache read failed")
		case found:
			s.metrics.RecordCacheHit(accountKey(accountID))
			return acc, nil
		default:
			s.metrics.RecordCacheMiss(accountKey(accountID))
		}
	}

	acc, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return acc, nil
	}
	if err := s.cache.SetAccount(ctx, acc); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache write failed")
		return acc, nil
	}

	current, err := s.load(ctx, accountID)
	if err != nil {
		s.invalidate(ctx, accountID)
		return acc, nil
	}
	if !sameSnapshot(acc, current) {
		s.invalidate(ctx, accountID)
	}
	return current, nil
}

func sameSnapshot(a, b *models.Account) bool {
	return a.Balance.Equal(b.Balance) && a.Status == b.Status && a.UpdatedAt.Equal(b.UpdatedAt)
}

func (s *store) ListAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	accounts, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return accounts, nil
}

func (s *store) load(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("account %s", accountID)
		}
		return nil, apperrors.Internal(err)
	}
	return acc, nil
}

func (s *store) invalidate(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAccount(ctx, accountID); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache invalidation failed")
	}
}
