// Package redis 定价结果的 Redis 缓存
package redis

import (
	"context"
	"time"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
)

const resultPrefix = "lsm:pricing_result:"

// jsonStore 由 pkg/cache.RedisCache 实现
type jsonStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
}

// ResultCache 以请求指纹为键缓存定价结果
type ResultCache struct {
	store jsonStore
	ttl   time.Duration
}

// NewResultCache ttl <= 0 时使用 15 分钟
func NewResultCache(store jsonStore, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{store: store, ttl: ttl}
}

func (c *ResultCache) Get(ctx context.Context, key string) (*domain.PricingResult, error) {
	var result domain.PricingResult
	ok, err := c.store.GetJSON(ctx, resultPrefix+key, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, result *domain.PricingResult) error {
	if result == nil {
		return nil
	}
	return c.store.SetJSON(ctx, resultPrefix+key, result, c.ttl)
}
