package grpc

import (
	"context"

	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler gRPC 处理器
type Handler struct {
	app *application.PricingService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(app *application.PricingService) *Handler {
	return &Handler{app: app}
}

// PriceAmericanOption 请求体字段同 HTTP 定价接口
func (h *Handler) PriceAmericanOption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var cmd application.PriceAmericanOptionCommand
	if err := decode(req, &cmd); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := h.app.PriceAmericanOption(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (h *Handler) BatchPriceOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var cmd application.BatchPriceOptionsCommand
	if err := decode(req, &cmd); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := h.app.BatchPriceOptions(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (h *Handler) RunConvergenceAnalysis(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var cmd application.RunConvergenceCommand
	if err := decode(req, &cmd); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := h.app.RunConvergenceAnalysis(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(report)
}

// GetLatestResult 请求体 {"symbol": "..."}
func (h *Handler) GetLatestResult(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	symbol := req.GetFields()["symbol"].GetStringValue()
	result, err := h.app.GetLatestResult(ctx, symbol)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}
