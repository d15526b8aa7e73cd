package ledger

import (
	"context"
	"time"

	"paycore/internal/models"

	"github.com/shopspring/decimal"
)

// Store is the account store.
type Store interface {
	// Lock acquires exclusive mutation rights on one account.
	Lock(ctx context.Context, accountID string) (*LockHandle, error)
	// LockPair acquires two accounts in canonical order. a may equal b.
	LockPair(ctx context.Context, a, b string) (*LockHandle, error)
	// LockKey acquires an arbitrary named lock, used for transfer-level
	// serialization.
	LockKey(ctx context.Context, key string) (*LockHandle, error)
	Release(h *LockHandle)

	GetBalance(ctx context.Context, accountID string) (Balance, error)
	ApplyDelta(ctx context.Context, h *LockHandle, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
	SetStatus(ctx context.Context, h *LockHandle, accountID, status, reason string) (*models.Account, error)

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*models.Account, error)
}

// Locker hands out named exclusive locks with a bounded wait.
type Locker interface {
	// Acquire returns ErrLockNotAcquired when wait elapses first.
	Acquire(ctx context.Context, key string, wait time.Duration) (Unlocker, error)
}

type Unlocker interface {
	Unlock(ctx context.Context) error
}

// AccountCache caches account snapshots for read paths.
type AccountCache interface {
	GetAccount(ctx context.Context, id string) (*models.Account, bool, error)
	SetAccount(ctx context.Context, account *models.Account) error
	InvalidateAccount(ctx context.Context, id string) error
}

// MetricsCollector receives store instrumentation.
type MetricsCollector interface {
	RecordLockWait(key string, d time.Duration)
	RecordLockTimeout(key string)
	RecordBalanceChange(accountID string, oldBalance, newBalance decimal.Decimal)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}
