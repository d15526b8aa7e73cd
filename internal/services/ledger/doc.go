/*
Package ledger implements the account store: the only component allowed to
change an account balance.

Every balance mutation happens under an exclusive per-account lock:

	h, err := store.LockPair(ctx, fromID, toID)
	if err != nil {
	    return err // LOCK_TIMEOUT, nothing was applied
	}
	defer store.Release(h)

	if _, err := store.ApplyDelta(ctx, h, fromID, amount.Neg()); err != nil {
	    return err
	}
	if _, err := store.ApplyDelta(ctx, h, toID, amount); err != nil {
	    // compensate the debit before the deferred release
	}

Lock ordering:

LockPair acquires the two account locks in ascending id order, so two
transfers touching the same pair in opposite directions cannot deadlock.
Callers never take two account locks any other way. Keys taken with LockKey
(transfer locks) must be acquired before any account lock.

Lock backends:

  - MemoryLocker: channel-per-key, for a single process.
  - RedisLocker: SET NX PX lease with a token-checked release, for several
    instances sharing one database.

Both bound the wait; an expired wait surfaces as LOCK_TIMEOUT.

Caching:

GetAccount serves account snapshots from the optional AccountCache.
GetBalance and ApplyDelta always read the repository. Every ApplyDelta and
SetStatus invalidates the cached snapshot.
*/
package ledger
