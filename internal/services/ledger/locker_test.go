package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := l.Acquire(ctx, "k", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, u.Unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots, "idle keys must be dropped")
}

func TestMemoryLocker_WaitExpires(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	u, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, err = l.Acquire(ctx, "k", 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// Other keys are independent.
	u2, err := l.Acquire(ctx, "other", 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, u2.Unlock(ctx))

	require.NoError(t, u.Unlock(ctx))
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker()
	u, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	defer u.Unlock(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.Canceled)
}
