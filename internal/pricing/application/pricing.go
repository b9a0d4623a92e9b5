// Package application 编排定价命令与查询，连接领域模型与仓储、缓存、事件
package application

import (
	"context"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/metrics"
)

// PricingService 定价门面服务。
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造函数。
func NewPricingService(repo domain.PricingRepository, cache domain.ResultCache, publisher domain.EventPublisher, m *metrics.Metrics, defaults config.PricingConfig) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(repo, cache, publisher, m, defaults),
		Query:   NewPricingQueryService(repo),
	}
}

// --- Command Facade ---

func (s *PricingService) PriceAmericanOption(ctx context.Context, cmd PriceAmericanOptionCommand) (*domain.PricingResult, error) {
	return s.Command.PriceAmericanOption(ctx, cmd)
}

func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	return s.Command.BatchPriceOptions(ctx, cmd)
}

func (s *PricingService) RunConvergenceAnalysis(ctx context.Context, cmd RunConvergenceCommand) (*domain.ConvergenceReport, error) {
	return s.Command.RunConvergenceAnalysis(ctx, cmd)
}

func (s *PricingService) RecordQuote(ctx context.Context, cmd RecordQuoteCommand) (*domain.SpotQuote, error) {
	return s.Command.RecordQuote(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	return s.Query.GetLatestResult(ctx, symbol)
}

func (s *PricingService) GetResultHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	return s.Query.GetResultHistory(ctx, symbol, limit)
}

func (s *PricingService) GetConvergenceReport(ctx context.Context, id string) (*domain.ConvergenceReport, error) {
	return s.Query.GetConvergenceReport(ctx, id)
}

func (s *PricingService) GetLatestQuote(ctx context.Context, symbol string) (*domain.SpotQuote, error) {
	return s.Query.GetLatestQuote(ctx, symbol)
}
