package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/metrics"
	"github.com/wyfcoding/lsmpricing/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxBasisSize      = domain.MaxPolynomialOrder
	defaultOutOfSampleTrials = 5
	defaultOutOfSamplePaths  = 5000
)

var defaultPathCounts = []int{500, 1000, 2000, 5000, 10000, 20000}

// PricingCommandService 处理定价相关的命令操作
// 结果与领域事件在同一事务中写入，事件经 Outbox 异步投递
type PricingCommandService struct {
	repo      domain.PricingRepository
	cache     domain.ResultCache
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	defaults  config.PricingConfig
}

// NewPricingCommandService 创建命令服务，cache、publisher、m 均可为 nil
func NewPricingCommandService(repo domain.PricingRepository, cache domain.ResultCache, publisher domain.EventPublisher, m *metrics.Metrics, defaults config.PricingConfig) *PricingCommandService {
	if defaults.Parallelism <= 0 {
		defaults.Parallelism = 1
	}
	return &PricingCommandService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		defaults:  defaults,
	}
}

// PriceAmericanOption 美式期权定价
func (c *PricingCommandService) PriceAmericanOption(ctx context.Context, cmd PriceAmericanOptionCommand) (*domain.PricingResult, error) {
	requestID := cmd.RequestID
	if requestID == "" {
		requestID = logger.RequestID(ctx)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result, err := c.priceAmericanOption(ctx, requestID, cmd)
	if err != nil {
		c.publishError(ctx, requestID, cmd, err)
		return nil, err
	}
	return result, nil
}

func (c *PricingCommandService) priceAmericanOption(ctx context.Context, requestID string, cmd PriceAmericanOptionCommand) (*domain.PricingResult, error) {
	spec, err := c.buildSpec(ctx, cmd)
	if err != nil {
		return nil, err
	}
	pricer, err := spec.NewPricer()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := utils.SHA256Hash(spec.CacheKey())
	if c.cache != nil && !cmd.SkipCache {
		cached, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			logger.Warn(ctx, "Pricing cache lookup failed", "error", err)
		}
		c.metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			return c.replayCached(ctx, requestID, cached)
		}
	}

	start := time.Now()
	done := logger.LogDuration(ctx, "LSM pricing finished",
		"symbol", spec.Symbol, "process", spec.Process, "paths", spec.NumPaths, "dates", spec.ExerciseDates)
	res, policy, err := pricer.Fit(spec.Spot)
	done()
	if err != nil {
		c.metrics.RecordPricing(string(spec.Process), string(spec.OptionType), err, 0, 0, time.Since(start))
		return nil, err
	}

	var analytic *domain.BlackScholesResult
	if spec.Process == domain.ProcessGBM {
		analytic, err = domain.CalculateBlackScholes(spec.OptionType, domain.BlackScholesInput{
			S: spec.Spot, K: spec.Strike, T: spec.Maturity, R: spec.RiskFreeRate, V: spec.Volatility,
		})
		if err != nil {
			logger.Warn(ctx, "Analytic reference unavailable", "error", err)
		}
	}

	result := domain.NewPricingResult(requestID, spec, res, policy, analytic)
	err = c.record(ctx, result)
	c.metrics.RecordPricing(string(spec.Process), string(spec.OptionType), err, spec.NumPaths, result.DegenerateDates, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("persist pricing result: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, result); err != nil {
			logger.Warn(ctx, "Pricing cache store failed", "error", err)
		}
	}
	logger.Info(ctx, "American option priced",
		"symbol", spec.Symbol,
		"option_price", res.OptionValue,
		"standard_error", res.StandardError,
		"degenerate_dates", result.DegenerateDates,
	)
	return result, nil
}

// replayCached 命中缓存时复制结果并记在本次请求名下，仍写入历史与 OptionPriced 事件
func (c *PricingCommandService) replayCached(ctx context.Context, requestID string, cached *domain.PricingResult) (*domain.PricingResult, error) {
	result := *cached
	result.ID = 0
	result.RequestID = requestID
	result.CreatedAt = time.Time{}
	result.UpdatedAt = time.Time{}
	result.CalculatedAt = time.Now().UnixMilli()
	if err := c.record(ctx, &result); err != nil {
		return nil, fmt.Errorf("persist pricing result: %w", err)
	}
	logger.Info(ctx, "American option priced from cache",
		"symbol", result.Spec.Symbol,
		"option_price", result.OptionPrice,
		"standard_error", result.StandardError,
	)
	return &result, nil
}

// record 在同一事务中保存结果并写入 OptionPriced 事件
func (c *PricingCommandService) record(ctx context.Context, result *domain.PricingResult) error {
	spec := result.Spec
	return c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SavePricingResult(txCtx, result); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.PublishInTx(txCtx, domain.OptionPricedEventType, spec.Symbol, domain.OptionPricedEvent{
			RequestID:            result.RequestID,
			Symbol:               spec.Symbol,
			OptionType:           spec.OptionType,
			Process:              spec.Process,
			Spot:                 spec.Spot,
			Strike:               spec.Strike,
			Maturity:             spec.Maturity,
			OptionPrice:          result.OptionPrice.InexactFloat64(),
			EuropeanPrice:        result.EuropeanPrice.InexactFloat64(),
			EarlyExercisePremium: result.EarlyExercisePremium.InexactFloat64(),
			StandardError:        result.StandardError.InexactFloat64(),
			NumPaths:             spec.NumPaths,
			PricingModel:         result.PricingModel,
			CalculatedAt:         result.CalculatedAt,
			OccurredOn:           time.Now(),
		})
	})
}

// buildSpec 合并请求与默认配置，现价缺省时回退到最新报价
func (c *PricingCommandService) buildSpec(ctx context.Context, cmd PriceAmericanOptionCommand) (domain.AmericanOptionSpec, error) {
	optionType, err := domain.ParseOptionType(cmd.OptionType)
	if err != nil {
		return domain.AmericanOptionSpec{}, err
	}
	process, err := domain.ParseProcessType(cmd.Process)
	if err != nil {
		return domain.AmericanOptionSpec{}, err
	}
	basisName := cmd.Basis
	if basisName == "" {
		basisName = c.defaults.DefaultBasis
	}
	basis, err := domain.ParseBasisFamily(basisName)
	if err != nil {
		return domain.AmericanOptionSpec{}, err
	}

	spec := domain.AmericanOptionSpec{
		Symbol:        strings.ToUpper(strings.TrimSpace(cmd.Symbol)),
		OptionType:    optionType,
		Spot:          cmd.Spot,
		Strike:        cmd.Strike,
		Maturity:      cmd.Maturity,
		RiskFreeRate:  cmd.RiskFreeRate,
		Volatility:    cmd.Volatility,
		Process:       process,
		JumpIntensity: cmd.JumpIntensity,
		Basis:         basis,
		BasisSize:     orDefault(cmd.BasisSize, c.defaults.DefaultBasisSize),
		NumPaths:      orDefault(cmd.NumPaths, c.defaults.DefaultPaths),
		ExerciseDates: orDefault(cmd.ExerciseDates, c.defaults.DefaultExerciseDates),
		Antithetic:    c.defaults.Antithetic,
		Seed:          c.defaults.DefaultSeed,
	}
	if cmd.Antithetic != nil {
		spec.Antithetic = *cmd.Antithetic
	}
	if cmd.Seed != nil {
		spec.Seed = *cmd.Seed
	}
	if spec.Symbol == "" {
		return domain.AmericanOptionSpec{}, fmt.Errorf("symbol is required: %w", domain.ErrInvalidParameter)
	}
	if c.defaults.MaxPaths > 0 && spec.NumPaths > c.defaults.MaxPaths {
		return domain.AmericanOptionSpec{}, fmt.Errorf("%w: num_paths %d exceeds limit %d", domain.ErrInvalidConfig, spec.NumPaths, c.defaults.MaxPaths)
	}

	if spec.Spot == 0 {
		quote, err := c.repo.GetLatestQuote(ctx, spec.Symbol)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AmericanOptionSpec{}, fmt.Errorf("no spot given and no quote for %s: %w", spec.Symbol, domain.ErrInvalidSpot)
		}
		if err != nil {
			return domain.AmericanOptionSpec{}, fmt.Errorf("load quote: %w", err)
		}
		spec.Spot = quote.Mid.InexactFloat64()
	}
	return spec, nil
}

// BatchPriceOptions 批量定价，单个合约失败不影响其余合约
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if len(cmd.Contracts) == 0 {
		return nil, fmt.Errorf("empty batch: %w", domain.ErrInvalidParameter)
	}
	if c.defaults.MaxBatch > 0 && len(cmd.Contracts) > c.defaults.MaxBatch {
		return nil, fmt.Errorf("batch of %d exceeds limit %d: %w", len(cmd.Contracts), c.defaults.MaxBatch, domain.ErrInvalidParameter)
	}
	if cmd.BatchID == "" {
		cmd.BatchID = uuid.NewString()
	}

	results := make([]*domain.PricingResult, len(cmd.Contracts))
	errs := make([]error, len(cmd.Contracts))
	elapsed := make([]time.Duration, len(cmd.Contracts))

	var g errgroup.Group
	g.SetLimit(c.defaults.Parallelism)
	for i := range cmd.Contracts {
		g.Go(func() error {
			item := cmd.Contracts[i]
			if item.RequestID == "" {
				item.RequestID = fmt.Sprintf("%s-%d", cmd.BatchID, i)
			}
			start := time.Now()
			results[i], errs[i] = c.PriceAmericanOption(ctx, item)
			elapsed[i] = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchPricingResult{BatchID: cmd.BatchID, Results: results}
	var total time.Duration
	for i, err := range errs {
		total += elapsed[i]
		if err != nil {
			out.FailureCount++
			out.Errors = append(out.Errors, BatchItemError{Index: i, Symbol: cmd.Contracts[i].Symbol, Error: err.Error()})
			continue
		}
		out.SuccessCount++
	}
	out.AverageTime = total.Seconds() / float64(len(cmd.Contracts))

	if c.publisher != nil {
		err := c.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, cmd.BatchID, domain.BatchPricingCompletedEvent{
			BatchID:        cmd.BatchID,
			Symbols:        extractSymbols(cmd.Contracts),
			TotalContracts: len(cmd.Contracts),
			SuccessCount:   out.SuccessCount,
			FailureCount:   out.FailureCount,
			AverageTime:    out.AverageTime,
			CompletedAt:    time.Now().Unix(),
			OccurredOn:     time.Now(),
		})
		if err != nil {
			logger.Warn(ctx, "Failed to publish batch event", "batch_id", cmd.BatchID, "error", err)
		}
	}
	return out, nil
}

// RunConvergenceAnalysis 运行收敛分析并保存报告
func (c *PricingCommandService) RunConvergenceAnalysis(ctx context.Context, cmd RunConvergenceCommand) (*domain.ConvergenceReport, error) {
	kind, err := domain.ParseConvergenceKind(cmd.Kind)
	if err != nil {
		return nil, err
	}
	report, err := c.runConvergence(ctx, kind, cmd)
	c.metrics.RecordConvergence(string(kind), err)
	if err != nil {
		return nil, err
	}

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SaveConvergenceReport(txCtx, report); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.PublishInTx(txCtx, domain.ConvergenceAnalyzedEventType, report.ID, domain.ConvergenceAnalyzedEvent{
			ReportID:   report.ID,
			Kind:       kind,
			Rows:       len(report.Rows) + len(report.Trials),
			OccurredOn: time.Now(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("persist convergence report: %w", err)
	}
	logger.Info(ctx, "Convergence analysis stored", "report_id", report.ID, "kind", kind)
	return report, nil
}

func (c *PricingCommandService) runConvergence(ctx context.Context, kind domain.ConvergenceKind, cmd RunConvergenceCommand) (*domain.ConvergenceReport, error) {
	cfg := domain.LSMConfig{
		NumPaths:         orDefault(cmd.NumPaths, c.defaults.DefaultPaths),
		UseAntithetic:    cmd.Antithetic,
		NumExerciseDates: orDefault(cmd.ExerciseDates, c.defaults.DefaultExerciseDates),
		Maturity:         cmd.Maturity,
		RiskFreeRate:     cmd.RiskFreeRate,
		RNGSeed:          c.defaults.DefaultSeed,
	}
	if cmd.Seed != nil {
		cfg.RNGSeed = *cmd.Seed
	}
	if !(cmd.Spot > 0) {
		return nil, fmt.Errorf("RunConvergenceAnalysis: spot %g: %w", cmd.Spot, domain.ErrInvalidSpot)
	}

	report := &domain.ConvergenceReport{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Kind:       kind,
		Spot:       cmd.Spot,
		Strike:     cmd.Strike,
		Volatility: cmd.Volatility,
	}
	analyzer := domain.NewConvergenceAnalyzer(c.defaults.Parallelism)

	var err error
	switch kind {
	case domain.ConvergenceByBasis:
		report.Rows, err = analyzer.AnalyzeByBasisFunctions(ctx, cfg, cmd.Spot, cmd.Strike, cmd.Volatility, orDefault(cmd.MaxBasisSize, defaultMaxBasisSize))
	case domain.ConvergenceByPaths:
		counts := cmd.PathCounts
		if len(counts) == 0 {
			counts = defaultPathCounts
		}
		for _, n := range counts {
			if c.defaults.MaxPaths > 0 && n > c.defaults.MaxPaths {
				return nil, fmt.Errorf("%w: path count %d exceeds limit %d", domain.ErrInvalidConfig, n, c.defaults.MaxPaths)
			}
		}
		report.Rows, err = analyzer.AnalyzeByPathCount(ctx, cfg, cmd.Spot, cmd.Strike, cmd.Volatility, counts)
	case domain.ConvergenceOutOfSample:
		cfg.NumPaths = orDefault(cmd.NumPaths, defaultOutOfSamplePaths)
		report.Trials, err = analyzer.OutOfSampleTest(ctx, cfg, cmd.Spot, cmd.Strike, cmd.Volatility, orDefault(cmd.Trials, defaultOutOfSampleTrials))
	}
	if err != nil {
		return nil, err
	}
	report.Config = cfg
	return report, nil
}

// RecordQuote 记录标的报价，之后未给现价的定价请求以其中间价为准
func (c *PricingCommandService) RecordQuote(ctx context.Context, cmd RecordQuoteCommand) (*domain.SpotQuote, error) {
	quote, err := domain.NewSpotQuote(strings.ToUpper(strings.TrimSpace(cmd.Symbol)), cmd.Bid, cmd.Ask, cmd.Source)
	if err != nil {
		return nil, err
	}
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SaveQuote(txCtx, quote); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.PublishInTx(txCtx, domain.QuoteReceivedEventType, quote.Symbol, domain.QuoteReceivedEvent{
			Symbol:     quote.Symbol,
			Mid:        quote.Mid.String(),
			Source:     quote.Source,
			OccurredOn: quote.Timestamp,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("persist quote: %w", err)
	}
	return quote, nil
}

func (c *PricingCommandService) publishError(ctx context.Context, requestID string, cmd PriceAmericanOptionCommand, cause error) {
	logger.Warn(ctx, "American option pricing failed", "symbol", cmd.Symbol, "error", cause)
	if c.publisher == nil {
		return
	}
	now := time.Now()
	err := c.publisher.Publish(ctx, domain.PricingErrorEventType, cmd.Symbol, domain.PricingErrorEvent{
		RequestID:  requestID,
		Symbol:     cmd.Symbol,
		OptionType: domain.OptionType(strings.ToUpper(cmd.OptionType)),
		Strike:     cmd.Strike,
		Error:      cause.Error(),
		ErrorCode:  ErrorCode(cause),
		OccurredAt: now.UnixMilli(),
		OccurredOn: now,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to publish pricing error event", "error", err)
	}
}

// ErrorCode 把领域错误映射为稳定的错误码
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		return "INVALID_CONFIG"
	case errors.Is(err, domain.ErrInvalidSpot):
		return "INVALID_SPOT"
	case errors.Is(err, domain.ErrInvalidParameter):
		return "INVALID_PARAMETER"
	case errors.Is(err, domain.ErrNilComponent):
		return "NIL_COMPONENT"
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	default:
		return "INTERNAL"
	}
}

// IsValidationError 请求本身非法（而非服务故障）
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidConfig) ||
		errors.Is(err, domain.ErrInvalidParameter) ||
		errors.Is(err, domain.ErrInvalidSpot)
}

// 辅助函数：提取合约符号
func extractSymbols(contracts []PriceAmericanOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)
	for _, contract := range contracts {
		if !seen[contract.Symbol] {
			symbols = append(symbols, contract.Symbol)
			seen[contract.Symbol] = true
		}
	}
	return symbols
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
