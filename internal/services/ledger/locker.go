package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLocker is an in-process Locker. Each key owns a one-slot channel;
// holding the lock means having filled the slot.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, wait time.Duration) (Unlocker, error) {
	s := l.ref(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return &memoryUnlocker{locker: l, key: key, slot: s}, nil
	case <-timer.C:
		l.unref(key, s)
		return nil, ErrLockNotAcquired
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
	}
}

func (l *MemoryLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

// unref drops the slot once nobody holds or waits on it.
func (l *MemoryLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

type memoryUnlocker struct {
	locker *MemoryLocker
	key    string
	slot   *slot
}

func (u *memoryUnlocker) Unlock(context.Context) error {
	<-u.slot.ch
	u.locker.unref(u.key, u.slot)
	return nil
}
