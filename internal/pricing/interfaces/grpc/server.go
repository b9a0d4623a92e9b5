// Package grpc 定价服务的 gRPC 接口
// 请求与响应统一使用 google.protobuf.Struct 承载 JSON 形态的负载。
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName 全限定服务名
const ServiceName = "lsmpricing.v1.PricingService"

const (
	methodPriceAmericanOption    = "PriceAmericanOption"
	methodBatchPriceOptions      = "BatchPriceOptions"
	methodRunConvergenceAnalysis = "RunConvergenceAnalysis"
	methodGetLatestResult        = "GetLatestResult"
)

// PricingServiceServer 服务端接口
type PricingServiceServer interface {
	PriceAmericanOption(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BatchPriceOptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunConvergenceAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLatestResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc 服务描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodPriceAmericanOption, Handler: unaryHandler(methodPriceAmericanOption, PricingServiceServer.PriceAmericanOption)},
		{MethodName: methodBatchPriceOptions, Handler: unaryHandler(methodBatchPriceOptions, PricingServiceServer.BatchPriceOptions)},
		{MethodName: methodRunConvergenceAnalysis, Handler: unaryHandler(methodRunConvergenceAnalysis, PricingServiceServer.RunConvergenceAnalysis)},
		{MethodName: methodGetLatestResult, Handler: unaryHandler(methodGetLatestResult, PricingServiceServer.GetLatestResult)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lsmpricing/v1/pricing.proto",
}

// RegisterPricingServiceServer 注册服务
func RegisterPricingServiceServer(s grpc.ServiceRegistrar, srv PricingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NewServer 创建处理器并注册到 s
func NewServer(s grpc.ServiceRegistrar, app *application.PricingService) *Handler {
	h := NewHandler(app)
	RegisterPricingServiceServer(s, h)
	return h
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryHandler(name string, call func(PricingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PricingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PricingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// decode 经 JSON 把 Struct 转为目标结构
func decode(in *structpb.Struct, dest any) error {
	if in == nil {
		return nil
	}
	if err := checkSeeds(in.GetFields()); err != nil {
		return err
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// encode 经 JSON 把结构转为 Struct
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	if err := checkSeeds(out.GetFields()); err != nil {
		return nil, err
	}
	return out, nil
}

// maxExactSeed Struct 数值为 float64，超过 2^53-1 的整数无法精确承载
const maxExactSeed = 1<<53 - 1

// checkSeeds 拒绝超出 ±maxExactSeed 的 seed 字段，包括嵌套对象与数组中的
func checkSeeds(fields map[string]*structpb.Value) error {
	for name, v := range fields {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			if name == "seed" && math.Abs(kind.NumberValue) > maxExactSeed {
				return fmt.Errorf("seed %.0f outside ±%d cannot be carried exactly over gRPC", kind.NumberValue, int64(maxExactSeed))
			}
		case *structpb.Value_StructValue:
			if err := checkSeeds(kind.StructValue.GetFields()); err != nil {
				return err
			}
		case *structpb.Value_ListValue:
			for _, item := range kind.ListValue.GetValues() {
				if err := checkSeeds(item.GetStructValue().GetFields()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// toStatus 领域错误映射为 gRPC 状态码
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case application.IsValidationError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
