package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshLockKey = "borrow:refresh:lock"

// RefreshLock throttles refreshes: at most one per window across all
// processes sharing the redis instance.
type RefreshLock struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRefreshLock(rdb *redis.Client, window time.Duration) *RefreshLock {
	return &RefreshLock{rdb: rdb, window: window}
}

// Acquire reports whether the caller may refresh now.
func (l *RefreshLock) Acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, refreshLockKey, time.Now().UTC().Format(time.RFC3339), l.window).Result()
}

// Release ends the window early, e.g. after a failed refresh.
func (l *RefreshLock) Release(ctx context.Context) error {
	return l.rdb.Del(ctx, refreshLockKey).Err()
}
