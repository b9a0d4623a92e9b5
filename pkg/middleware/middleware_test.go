package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLimiter struct {
	res *ratelimit.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string, ratelimit.Limit) (*ratelimit.Result, error) {
	return s.res, s.err
}

func TestGinLoggingPropagatesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(nil))
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
}

func TestGinRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(nil), GinRecoveryMiddleware())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	tests := []struct {
		name    string
		limiter ratelimit.RateLimiter
		want    int
	}{
		{"allowed", stubLimiter{res: &ratelimit.Result{Allowed: true, Remaining: 0}}, http.StatusOK},
		{"denied", stubLimiter{res: &ratelimit.Result{Allowed: false}}, http.StatusTooManyRequests},
		{"fail open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tt.limiter, cfg))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLocalLimiterExhaustsBurst(t *testing.T) {
	l := NewLocalLimiter(config.RateLimitConfig{QPS: 1, Burst: 2})
	var allowed int
	for i := 0; i < 5; i++ {
		res, err := l.Allow(context.Background(), "k", ratelimit.Limit{})
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)

	res, err := l.Allow(context.Background(), "other", ratelimit.Limit{})
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys have separate buckets")
	assert.Equal(t, 1, res.Remaining)
}

func TestNewHTTPRateLimiterSelectsBackend(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	assert.IsType(t, &LocalLimiter{}, NewHTTPRateLimiter(config.RateLimitConfig{QPS: 1, Burst: 1}, nil))
	assert.IsType(t, &LocalLimiter{}, NewHTTPRateLimiter(config.RateLimitConfig{Backend: config.RateLimitBackendLocal, QPS: 1, Burst: 1}, client))
	assert.IsType(t, &ratelimit.RedisRateLimiter{}, NewHTTPRateLimiter(config.RateLimitConfig{Backend: config.RateLimitBackendRedis}, client))
}

func TestLocalLimiterBehindMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	r := gin.New()
	r.Use(RateLimitMiddleware(NewLocalLimiter(cfg), cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	got := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		got = append(got, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, got)
}

func TestGRPCInterceptors(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/lsmpricing.v1.PricingService/PriceAmericanOption"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "grpc-req"))

	var seen string
	_, err := GRPCLoggingInterceptor(nil)(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = logger.RequestID(ctx)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "grpc-req", seen)

	_, err = GRPCRecoveryInterceptor()(ctx, nil, info, func(context.Context, any) (any, error) { panic("x") })
	assert.Equal(t, codes.Internal, status.Code(err))

	limiter := NewRateLimiter(0, 1)
	handler := func(context.Context, any) (any, error) { return nil, nil }
	_, err = GRPCRateLimitInterceptor(limiter)(ctx, nil, info, handler)
	require.NoError(t, err)
	_, err = GRPCRateLimitInterceptor(limiter)(ctx, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}
