package util

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCounterDegraded means Redis was unreachable and the count came from the
// in-process fallback, which only sees this worker's retries.
var ErrCounterDegraded = errors.New("retry counter degraded to local memory")

// RetryCounter 记录同一条通知被 requeue 的次数，窗口从第一次失败开始计算
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local map[string]int64
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl, local: make(map[string]int64)}
}

// IncrementAndGet bumps the counter and starts its TTL on the first failure
// only, in a single round trip. When Redis is down the returned count is
// still usable for capping retries.
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		r.mu.Lock()
		r.local[key]++
		n := r.local[key]
		r.mu.Unlock()
		return n, fmt.Errorf("%w: %s: %w", ErrCounterDegraded, key, err)
	}
	return incr.Val(), nil
}

func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.local, key)
	r.mu.Unlock()
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey scopes a retry counter to one handler.
func FormatRetryKey(handler, key string) string {
	return fmt.Sprintf("retry:%s:%s", handler, key)
}
