package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
)

// kvStore pkg/cache.RedisCache 的子集
type kvStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type redisRunCache struct {
	store  kvStore
	prefix string
	ttl    time.Duration
}

// NewRunCache 基于 Redis 的查询结果缓存。
// 键包含序列 epoch 与版本号，调整后旧条目自然失效，只等待过期。
func NewRunCache(store kvStore, prefix string, ttl time.Duration) domain.RunCache {
	return &redisRunCache{store: store, prefix: prefix, ttl: ttl}
}

func (c *redisRunCache) key(k domain.RunKey) string {
	return fmt.Sprintf("%s:run:%s:%s:%d:%d:%d", c.prefix, k.SeriesID, k.Epoch, k.Version, k.A, k.B)
}

func (c *redisRunCache) Get(ctx context.Context, k domain.RunKey) (int, bool, error) {
	val, ok, err := c.store.Get(ctx, c.key(k))
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, errors.Wrapf(err, "corrupt cache entry %q", val)
	}
	return n, true, nil
}

func (c *redisRunCache) Put(ctx context.Context, k domain.RunKey, length int) error {
	return c.store.Set(ctx, c.key(k), strconv.Itoa(length), c.ttl)
}
