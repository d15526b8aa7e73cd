package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultLockWait = 5 * time.Second

	accountKeyPrefix = "account:"
)

// ErrLockNotAcquired is returned by a Locker whose wait expired.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Config holds store settings.
type Config struct {
	LockWait time.Duration
}

// Balance is a point-in-time view of an account.
type Balance struct {
	Amount   decimal.Decimal
	Currency string
	Status   string
	OwnerID  string
}

// LockHandle proves that the caller holds one or more locks. Release is
// idempotent.
type LockHandle struct {
	keys      []string
	unlockers []Unlocker
	once      sync.Once
}

// Holds reports whether the handle holds the lock for accountID.
func (h *LockHandle) Holds(accountID string) bool {
	if h == nil {
		return false
	}
	key := accountKeyPrefix + accountID
	for _, k := range h.keys {
		if k == key {
			return true
		}
	}
	return false
}

func (h *LockHandle) add(key string, u Unlocker) {
	h.keys = append(h.keys, key)
	h.unlockers = append(h.unlockers, u)
}

// release unlocks in reverse acquisition order.
func (h *LockHandle) release(ctx context.Context) []error {
	var errs []error
	h.once.Do(func() {
		for i := len(h.unlockers) - 1; i >= 0; i-- {
			if err := h.unlockers[i].Unlock(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errs
}

func accountKey(id string) string {
	return accountKeyPrefix + id
}
