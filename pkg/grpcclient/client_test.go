package grpcclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func countingInvoker(calls *int, errs ...error) grpc.UnaryInvoker {
	return func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		i := *calls
		*calls++
		if i < len(errs) {
			return errs[i]
		}
		return nil
	}
}

func TestUnaryClientInterceptorRetriesUnavailable(t *testing.T) {
	intercept := unaryClientInterceptor(ClientConfig{MaxRetries: 3, RetryDelay: 1})

	calls := 0
	err := intercept(context.Background(), "/svc/M", nil, nil, nil,
		countingInvoker(&calls, status.Error(codes.Unavailable, "down"), status.Error(codes.ResourceExhausted, "busy")))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUnaryClientInterceptorStopsOnPermanentCode(t *testing.T) {
	intercept := unaryClientInterceptor(ClientConfig{MaxRetries: 3, RetryDelay: 1})

	calls := 0
	err := intercept(context.Background(), "/svc/M", nil, nil, nil,
		countingInvoker(&calls, status.Error(codes.InvalidArgument, "bad strike")))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, calls)
}

func TestUnaryClientInterceptorGivesUpAfterMaxRetries(t *testing.T) {
	intercept := unaryClientInterceptor(ClientConfig{MaxRetries: 1, RetryDelay: 1})

	down := status.Error(codes.Unavailable, "down")
	calls := 0
	err := intercept(context.Background(), "/svc/M", nil, nil, nil, countingInvoker(&calls, down, down, down))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, 2, calls)
}

func TestNewClientRejectsEmptyTarget(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}
