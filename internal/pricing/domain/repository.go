package domain

import "context"

// PricingRepository 定价结果、收敛报告与标的报价仓储接口
type PricingRepository interface {
	// WithTx 在事务中执行 fn，事务经由 ctx 传递
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error

	SavePricingResult(ctx context.Context, result *PricingResult) error
	GetLatestPricingResult(ctx context.Context, symbol string) (*PricingResult, error)
	GetPricingResultHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)

	SaveConvergenceReport(ctx context.Context, report *ConvergenceReport) error
	GetConvergenceReport(ctx context.Context, id string) (*ConvergenceReport, error)

	SaveQuote(ctx context.Context, quote *SpotQuote) error
	GetLatestQuote(ctx context.Context, symbol string) (*SpotQuote, error)
}

// ResultCache 定价结果缓存，未命中时返回 nil, nil
type ResultCache interface {
	Get(ctx context.Context, key string) (*PricingResult, error)
	Set(ctx context.Context, key string, result *PricingResult) error
}
