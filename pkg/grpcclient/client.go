// Package grpcclient 提供 gRPC 客户端工厂，内置重试、超时与 trace/request id 透传
package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/cenkalti/backoff/v5"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ClientConfig gRPC 客户端配置
type ClientConfig struct {
	Target string
	// 连接超时（秒）
	ConnTimeout int
	// 单次请求超时（秒），0 表示沿用调用方 ctx
	RequestTimeout int
	MaxRetries     int
	// 重试间隔（毫秒）
	RetryDelay        int
	EnableKeepalive   bool
	KeepaliveInterval int
	EnableTracing     bool
}

// NewClient 创建 gRPC 客户端连接，连接在首次调用时建立
func NewClient(cfg ClientConfig) (*grpc.ClientConn, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("grpcclient: empty target")
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(16 * 1024 * 1024)),
		grpc.WithChainUnaryInterceptor(unaryClientInterceptor(cfg)),
	}
	if cfg.ConnTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  100 * time.Millisecond,
				MaxDelay:   time.Duration(cfg.ConnTimeout) * time.Second,
				Multiplier: 1.6,
				Jitter:     0.2,
			},
			MinConnectTimeout: time.Duration(cfg.ConnTimeout) * time.Second,
		}))
	}
	if cfg.EnableKeepalive {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(cfg.KeepaliveInterval) * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}))
	}
	if cfg.EnableTracing {
		opts = append(opts, grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	}

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		logger.Error(context.Background(), "Failed to create gRPC client", "target", cfg.Target, "error", err)
		return nil, err
	}
	logger.Debug(context.Background(), "gRPC client created", "target", cfg.Target)
	return conn, nil
}

// unaryClientInterceptor 透传 request id，Unavailable/ResourceExhausted 按固定间隔重试
func unaryClientInterceptor(cfg ClientConfig) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.RequestTimeout)*time.Second)
			defer cancel()
		}
		if id := logger.RequestID(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", id)
		}

		start := time.Now()
		attempts := 0
		_, err := retry.Retry(ctx, func() (struct{}, error) {
			attempts++
			err := invoker(ctx, method, req, reply, cc, opts...)
			if err != nil && !shouldRetry(status.Code(err)) {
				return struct{}{}, retry.Permanent(err)
			}
			return struct{}{}, err
		},
			retry.WithBackOff(retry.NewConstantBackOff(time.Duration(cfg.RetryDelay)*time.Millisecond)),
			retry.WithMaxTries(uint(max(cfg.MaxRetries, 0)+1)),
		)
		var permanent *retry.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		if err != nil {
			logger.Error(ctx, "gRPC request failed", "method", method, "attempts", attempts, "duration", time.Since(start), "error", err)
			return err
		}
		logger.Debug(ctx, "gRPC request succeeded", "method", method, "attempts", attempts, "duration", time.Since(start))
		return nil
	}
}

func shouldRetry(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
