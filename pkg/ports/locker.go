package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards a session against concurrent owners across
// processes. Within a process each conversation is single-threaded, so this
// only matters when multiple shells could resume the same session.
type DistributedLocker interface {
	// Lock acquires the lock for key, expiring after ttl if never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
