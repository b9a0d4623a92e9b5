package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/ratelimit"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 基于 Redis 的按客户端 IP 限流，限流器故障时放行
func RateLimitMiddleware(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	limit := ratelimit.Limit{Rate: cfg.QPS, Period: time.Second, Burst: cfg.Burst}
	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), fmt.Sprintf("ratelimit:pricing:%s", c.ClientIP()), limit)
		if err != nil {
			logger.Warn(c.Request.Context(), "Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second)+1, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        http.StatusTooManyRequests,
				"message":     "Too Many Requests",
				"retry_after": res.RetryAfter.String(),
			})
			return
		}
		c.Next()
	}
}

// NewHTTPRateLimiter 按配置选择 HTTP 限流后端，client 为 nil 时使用进程内限流
func NewHTTPRateLimiter(cfg config.RateLimitConfig, client *redis.Client) ratelimit.RateLimiter {
	if client == nil || cfg.Backend == config.RateLimitBackendLocal {
		return NewLocalLimiter(cfg)
	}
	return ratelimit.NewRedisRateLimiter(client)
}

// LocalLimiter 进程内按 key 限流，实现 ratelimit.RateLimiter
// Redis 不可用或 rate_limit.backend = "local" 时替代 Redis 限流器。
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	qps      float64
	burst    int
}

// NewLocalLimiter 创建进程内限流器，每个 key 独立一个令牌桶
func NewLocalLimiter(cfg config.RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		qps:      float64(cfg.QPS),
		burst:    cfg.Burst,
	}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.qps), l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow limit 参数忽略，使用构造时的 qps/burst
func (l *LocalLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	lim := l.get(key)
	now := time.Now()
	res := &ratelimit.Result{Allowed: lim.AllowN(now, 1)}
	res.Remaining = max(int(lim.TokensAt(now)), 0)
	if !res.Allowed && l.qps > 0 {
		res.RetryAfter = time.Duration(float64(time.Second) / l.qps)
	}
	return res, nil
}
