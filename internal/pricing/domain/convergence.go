package domain

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultAnalysisBasisSize 收敛分析默认使用的 Laguerre 项数
const DefaultAnalysisBasisSize = 3

// ConvergenceAnalyzer 收敛与稳定性诊断
// 每一行是一次完整、独立的定价调用；Parallelism > 1 时按行并发，
// 每个任务写入各自的结果槽位，输出与并发度无关。
type ConvergenceAnalyzer struct {
	Parallelism int
}

// NewConvergenceAnalyzer 创建分析器，parallelism <= 0 时按 1 处理
func NewConvergenceAnalyzer(parallelism int) *ConvergenceAnalyzer {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ConvergenceAnalyzer{Parallelism: parallelism}
}

// AnalyzeByBasisFunctions 固定路径数与种子，Laguerre 项数从 1 增至 maxBasisSize
func (a *ConvergenceAnalyzer) AnalyzeByBasisFunctions(ctx context.Context, cfg LSMConfig, spot, strike, vol float64, maxBasisSize int) ([]ConvergenceRow, error) {
	if maxBasisSize < 1 || maxBasisSize > MaxPolynomialOrder+1 {
		return nil, fmt.Errorf("AnalyzeByBasisFunctions: max basis size %d outside 1..%d: %w", maxBasisSize, MaxPolynomialOrder+1, ErrInvalidParameter)
	}
	process, payoff, err := analysisModel(cfg, strike, vol)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeByBasisFunctions: %w", err)
	}

	rows := make([]ConvergenceRow, maxBasisSize)
	err = a.run(ctx, maxBasisSize, func(i int) error {
		m := i + 1
		basis, err := NewLaguerreSet(m)
		if err != nil {
			return err
		}
		pricer, err := NewLSMPricer(cfg, process, payoff, basis)
		if err != nil {
			return err
		}
		res, err := pricer.Price(spot)
		if err != nil {
			return err
		}
		rows[i] = ConvergenceRow{Parameter: float64(m), Value: res.OptionValue, StandardError: res.StandardError}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AnalyzeByBasisFunctions: %w", err)
	}
	return rows, nil
}

// AnalyzeByPathCount 固定种子，逐个路径数重新定价
func (a *ConvergenceAnalyzer) AnalyzeByPathCount(ctx context.Context, cfg LSMConfig, spot, strike, vol float64, pathCounts []int) ([]ConvergenceRow, error) {
	process, payoff, err := analysisModel(cfg, strike, vol)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeByPathCount: %w", err)
	}
	basis, err := NewLaguerreSet(DefaultAnalysisBasisSize)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeByPathCount: %w", err)
	}
	for _, n := range pathCounts {
		c := cfg
		c.NumPaths = n
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("AnalyzeByPathCount: path count %d: %w", n, err)
		}
	}

	rows := make([]ConvergenceRow, len(pathCounts))
	err = a.run(ctx, len(pathCounts), func(i int) error {
		c := cfg
		c.NumPaths = pathCounts[i]
		pricer, err := NewLSMPricer(c, process, payoff, basis)
		if err != nil {
			return err
		}
		res, err := pricer.Price(spot)
		if err != nil {
			return err
		}
		rows[i] = ConvergenceRow{Parameter: float64(c.NumPaths), Value: res.OptionValue, StandardError: res.StandardError}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AnalyzeByPathCount: %w", err)
	}
	return rows, nil
}

// OutOfSampleTest 第 i 次试验在种子 seed+2i 上拟合，再把拟合系数原样应用到种子 seed+2i+1 的独立路径
func (a *ConvergenceAnalyzer) OutOfSampleTest(ctx context.Context, cfg LSMConfig, spot, strike, vol float64, trials int) ([]OutOfSampleTrial, error) {
	if trials < 1 {
		return nil, fmt.Errorf("OutOfSampleTest: trials %d: %w", trials, ErrInvalidParameter)
	}
	process, payoff, err := analysisModel(cfg, strike, vol)
	if err != nil {
		return nil, fmt.Errorf("OutOfSampleTest: %w", err)
	}
	basis, err := NewLaguerreSet(DefaultAnalysisBasisSize)
	if err != nil {
		return nil, fmt.Errorf("OutOfSampleTest: %w", err)
	}

	out := make([]OutOfSampleTrial, trials)
	err = a.run(ctx, trials, func(i int) error {
		c := cfg
		c.RNGSeed = cfg.RNGSeed + 2*int64(i)
		pricer, err := NewLSMPricer(c, process, payoff, basis)
		if err != nil {
			return err
		}
		in, policy, err := pricer.Fit(spot)
		if err != nil {
			return err
		}
		oos, err := pricer.PriceWithPolicy(spot, policy, c.RNGSeed+1)
		if err != nil {
			return err
		}
		out[i] = OutOfSampleTrial{InSample: in, OutOfSample: oos}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("OutOfSampleTest: %w", err)
	}
	return out, nil
}

func (a *ConvergenceAnalyzer) run(ctx context.Context, n int, task func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := a.Parallelism
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(i)
		})
	}
	return g.Wait()
}

// analysisModel 诊断统一使用 GBM(r, σ) 与看跌收益
func analysisModel(cfg LSMConfig, strike, vol float64) (StochasticProcess, Payoff, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	process, err := NewGeometricBrownianMotion(cfg.RiskFreeRate, vol)
	if err != nil {
		return nil, nil, err
	}
	payoff, err := NewPayoff(OptionTypePut, strike)
	if err != nil {
		return nil, nil, err
	}
	return process, payoff, nil
}
