package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig 模拟配置非法
	ErrInvalidConfig = errors.New("invalid lsm config")
	// ErrInvalidParameter 过程、收益或基函数参数非法
	ErrInvalidParameter = errors.New("invalid model parameter")
	// ErrInvalidSpot 标的现价非法
	ErrInvalidSpot = errors.New("invalid spot price")
	// ErrNilComponent 定价组件缺失
	ErrNilComponent = errors.New("nil pricing component")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
)

// LSMConfig Longstaff-Schwartz 模拟配置
type LSMConfig struct {
	NumPaths         int     `json:"num_paths"`
	UseAntithetic    bool    `json:"use_antithetic"`
	NumExerciseDates int     `json:"num_exercise_dates"`
	Maturity         float64 `json:"maturity"`
	RiskFreeRate     float64 `json:"risk_free_rate"`
	RNGSeed          int64   `json:"rng_seed"`
}

// Validate 校验配置
func (c LSMConfig) Validate() error {
	if c.NumPaths <= 0 {
		return fmt.Errorf("%w: num_paths must be positive, got %d", ErrInvalidConfig, c.NumPaths)
	}
	if c.UseAntithetic && c.NumPaths%2 != 0 {
		return fmt.Errorf("%w: num_paths must be even with antithetic pairing, got %d", ErrInvalidConfig, c.NumPaths)
	}
	if c.NumExerciseDates < 1 {
		return fmt.Errorf("%w: num_exercise_dates must be at least 1, got %d", ErrInvalidConfig, c.NumExerciseDates)
	}
	if !(c.Maturity > 0) {
		return fmt.Errorf("%w: maturity must be positive, got %g", ErrInvalidConfig, c.Maturity)
	}
	return nil
}

// TimeStep 相邻行权日间隔（年）
func (c LSMConfig) TimeStep() float64 {
	return c.Maturity / float64(c.NumExerciseDates)
}

// SimulationResult 单次定价结果
type SimulationResult struct {
	OptionValue          float64 `json:"option_value"`
	EuropeanValue        float64 `json:"european_value"`
	EarlyExercisePremium float64 `json:"early_exercise_premium"`
	StandardError        float64 `json:"standard_error"`
}

// ConvergenceRow 收敛分析的一行
type ConvergenceRow struct {
	Parameter     float64 `json:"parameter"`
	Value         float64 `json:"value"`
	StandardError float64 `json:"standard_error"`
}

// OutOfSampleTrial 样本内拟合与样本外重定价的一组结果
type OutOfSampleTrial struct {
	InSample    SimulationResult `json:"in_sample"`
	OutOfSample SimulationResult `json:"out_of_sample"`
}
