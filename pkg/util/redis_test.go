package util

import (
	"context"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 指向一个没有监听的端口，模拟 Redis 不可用
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestDeduperAllowsProcessingWhenRedisDown(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	d := NewDeduper(rdb, time.Hour, zap.NewNop())
	be.True(t, d.AcquireOnce(context.Background(), "pipeline", "18f2a"))
	d.Release(context.Background(), "pipeline", "18f2a")
}

func TestRetryCounterFallsBackWhenRedisDown(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	ctx := context.Background()
	c := NewRetryCounter(rdb, time.Hour)

	n, err := c.IncrementAndGet(ctx, "retry:pipeline:x")
	be.Err(t, err, ErrCounterDegraded)
	be.Equal(t, n, int64(1))

	n, _ = c.IncrementAndGet(ctx, "retry:pipeline:x")
	be.Equal(t, n, int64(2))

	// Reset 清掉本地计数，即使 Redis 删除失败
	be.True(t, c.Reset(ctx, "retry:pipeline:x") != nil)
	n, _ = c.IncrementAndGet(ctx, "retry:pipeline:x")
	be.Equal(t, n, int64(1))
}
