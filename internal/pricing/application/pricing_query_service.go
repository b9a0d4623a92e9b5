package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/utils"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// PricingQueryService 处理所有定价相关的查询操作（Queries）。
type PricingQueryService struct {
	repo domain.PricingRepository
}

// NewPricingQueryService 构造函数。
func NewPricingQueryService(repo domain.PricingRepository) *PricingQueryService {
	return &PricingQueryService{repo: repo}
}

// GetLatestResult 获取最新定价结果
func (s *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLatestPricingResult(ctx, symbol)
}

// GetResultHistory 按计算时间倒序返回最近 limit 条结果
func (s *PricingQueryService) GetResultHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.repo.GetPricingResultHistory(ctx, symbol, utils.ClampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
}

// GetConvergenceReport 获取收敛报告
func (s *PricingQueryService) GetConvergenceReport(ctx context.Context, id string) (*domain.ConvergenceReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("report id is required: %w", domain.ErrInvalidParameter)
	}
	return s.repo.GetConvergenceReport(ctx, id)
}

// GetLatestQuote 获取最新标的报价
func (s *PricingQueryService) GetLatestQuote(ctx context.Context, symbol string) (*domain.SpotQuote, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLatestQuote(ctx, symbol)
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required: %w", domain.ErrInvalidParameter)
	}
	return symbol, nil
}
