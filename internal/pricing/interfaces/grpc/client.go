package grpc

import (
	"context"

	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client 定价服务客户端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 基于已建立的连接创建客户端
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) PriceAmericanOption(ctx context.Context, cmd application.PriceAmericanOptionCommand, opts ...grpc.CallOption) (*domain.PricingResult, error) {
	var out domain.PricingResult
	if err := c.invoke(ctx, methodPriceAmericanOption, cmd, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BatchPriceOptions(ctx context.Context, cmd application.BatchPriceOptionsCommand, opts ...grpc.CallOption) (*application.BatchPricingResult, error) {
	var out application.BatchPricingResult
	if err := c.invoke(ctx, methodBatchPriceOptions, cmd, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RunConvergenceAnalysis(ctx context.Context, cmd application.RunConvergenceCommand, opts ...grpc.CallOption) (*domain.ConvergenceReport, error) {
	var out domain.ConvergenceReport
	if err := c.invoke(ctx, methodRunConvergenceAnalysis, cmd, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLatestResult(ctx context.Context, symbol string, opts ...grpc.CallOption) (*domain.PricingResult, error) {
	var out domain.PricingResult
	if err := c.invoke(ctx, methodGetLatestResult, map[string]any{"symbol": symbol}, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, dest any, opts ...grpc.CallOption) error {
	in, err := encode(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return err
	}
	return decode(out, dest)
}
