// Package mysql 定价仓储的 MySQL 实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/db"
	"gorm.io/gorm"
)

type pricingRepository struct {
	db *db.DB
}

// NewPricingRepository 创建并返回一个新的 pricingRepository 实例。
func NewPricingRepository(database *db.DB) domain.PricingRepository {
	return &pricingRepository{db: database}
}

func (r *pricingRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// --- PricingResult ---

func (r *pricingRepository) SavePricingResult(ctx context.Context, result *domain.PricingResult) error {
	model := toPricingResultModel(result)
	if err := r.db.Conn(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("save pricing result: %w", err)
	}
	result.ID = model.ID
	result.CreatedAt = model.CreatedAt
	result.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *pricingRepository) GetLatestPricingResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	var model PricingResultModel
	err := r.db.Conn(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		return nil, notFound(err, "pricing result")
	}
	return toPricingResult(&model), nil
}

func (r *pricingRepository) GetPricingResultHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	err := r.db.Conn(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list pricing results: %w", err)
	}
	out := make([]*domain.PricingResult, len(models))
	for i := range models {
		out[i] = toPricingResult(&models[i])
	}
	return out, nil
}

// --- ConvergenceReport ---

func (r *pricingRepository) SaveConvergenceReport(ctx context.Context, report *domain.ConvergenceReport) error {
	if err := r.db.Conn(ctx).Create(toConvergenceReportModel(report)).Error; err != nil {
		return fmt.Errorf("save convergence report: %w", err)
	}
	return nil
}

func (r *pricingRepository) GetConvergenceReport(ctx context.Context, id string) (*domain.ConvergenceReport, error) {
	var model ConvergenceReportModel
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err, "convergence report")
	}
	return toConvergenceReport(&model), nil
}

// --- SpotQuote ---

func (r *pricingRepository) SaveQuote(ctx context.Context, quote *domain.SpotQuote) error {
	model := toSpotQuoteModel(quote)
	if err := r.db.Conn(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("save quote: %w", err)
	}
	quote.ID = model.ID
	return nil
}

func (r *pricingRepository) GetLatestQuote(ctx context.Context, symbol string) (*domain.SpotQuote, error) {
	var model SpotQuoteModel
	err := r.db.Conn(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC, id DESC").
		First(&model).Error
	if err != nil {
		return nil, notFound(err, "quote")
	}
	return toSpotQuote(&model), nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
