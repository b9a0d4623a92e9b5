// Package domain 美式期权 LSM 定价服务的领域模型与数值核心
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PricingModelLSM 定价模型名称
const PricingModelLSM = "LongstaffSchwartz"

// ProcessType 标的过程类型
type ProcessType string

const (
	ProcessGBM           ProcessType = "GBM"
	ProcessJumpDiffusion ProcessType = "JUMP_DIFFUSION"
)

// ParseProcessType 解析过程类型，空串视为 GBM
func ParseProcessType(s string) (ProcessType, error) {
	switch ProcessType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ProcessGBM:
		return ProcessGBM, nil
	case ProcessJumpDiffusion:
		return ProcessJumpDiffusion, nil
	default:
		return "", fmt.Errorf("ParseProcessType: unknown process %q: %w", s, ErrInvalidParameter)
	}
}

// AmericanOptionSpec 一次美式期权定价的完整输入
type AmericanOptionSpec struct {
	Symbol        string      `json:"symbol"`
	OptionType    OptionType  `json:"option_type"`
	Spot          float64     `json:"spot"`
	Strike        float64     `json:"strike"`
	Maturity      float64     `json:"maturity"`
	RiskFreeRate  float64     `json:"risk_free_rate"`
	Volatility    float64     `json:"volatility"`
	Process       ProcessType `json:"process"`
	JumpIntensity float64     `json:"jump_intensity"`
	Basis         BasisFamily `json:"basis"`
	BasisSize     int         `json:"basis_size"`
	NumPaths      int         `json:"num_paths"`
	ExerciseDates int         `json:"exercise_dates"`
	Antithetic    bool        `json:"antithetic"`
	Seed          int64       `json:"seed"`
}

// Config 转换为模拟配置
func (s AmericanOptionSpec) Config() LSMConfig {
	return LSMConfig{
		NumPaths:         s.NumPaths,
		UseAntithetic:    s.Antithetic,
		NumExerciseDates: s.ExerciseDates,
		Maturity:         s.Maturity,
		RiskFreeRate:     s.RiskFreeRate,
		RNGSeed:          s.Seed,
	}
}

// NewProcess 构造标的过程
func (s AmericanOptionSpec) NewProcess() (StochasticProcess, error) {
	switch s.Process {
	case ProcessGBM, "":
		return NewGeometricBrownianMotion(s.RiskFreeRate, s.Volatility)
	case ProcessJumpDiffusion:
		return NewJumpDiffusionProcess(s.RiskFreeRate, s.Volatility, s.JumpIntensity)
	default:
		return nil, fmt.Errorf("AmericanOptionSpec: process %q: %w", s.Process, ErrInvalidParameter)
	}
}

// NewPricer 按输入组装 LSM 定价器
func (s AmericanOptionSpec) NewPricer() (*LSMPricer, error) {
	if !(s.Spot > 0) || math.IsInf(s.Spot, 0) {
		return nil, fmt.Errorf("AmericanOptionSpec: spot %g: %w", s.Spot, ErrInvalidSpot)
	}
	process, err := s.NewProcess()
	if err != nil {
		return nil, err
	}
	payoff, err := NewPayoff(s.OptionType, s.Strike)
	if err != nil {
		return nil, err
	}
	basis, err := NewBasisSet(s.Basis, s.BasisSize)
	if err != nil {
		return nil, err
	}
	return NewLSMPricer(s.Config(), process, payoff, basis)
}

// CacheKey 同一输入在固定种子下结果确定，可直接作为缓存键
func (s AmericanOptionSpec) CacheKey() string {
	return fmt.Sprintf("%s|%s|%g|%g|%g|%g|%g|%s|%g|%s|%d|%d|%d|%t|%d",
		s.Symbol, s.OptionType, s.Spot, s.Strike, s.Maturity, s.RiskFreeRate, s.Volatility,
		s.Process, s.JumpIntensity, s.Basis, s.BasisSize, s.NumPaths, s.ExerciseDates, s.Antithetic, s.Seed)
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID                   uint               `json:"id"`
	RequestID            string             `json:"request_id"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	Spec                 AmericanOptionSpec `json:"spec"`
	OptionPrice          decimal.Decimal    `json:"option_price"`
	EuropeanPrice        decimal.Decimal    `json:"european_price"`
	EarlyExercisePremium decimal.Decimal    `json:"early_exercise_premium"`
	StandardError        decimal.Decimal    `json:"standard_error"`
	AnalyticEuropean     decimal.Decimal    `json:"analytic_european"`
	DegenerateDates      int                `json:"degenerate_dates"`
	EarlyExercises       int                `json:"early_exercises"`
	CalculatedAt         int64              `json:"calculated_at"`
	PricingModel         string             `json:"pricing_model"`
}

// NewPricingResult 由模拟结果构建实体
func NewPricingResult(requestID string, spec AmericanOptionSpec, res SimulationResult, policy *ExercisePolicy, analytic *BlackScholesResult) *PricingResult {
	r := &PricingResult{
		RequestID:            requestID,
		Spec:                 spec,
		OptionPrice:          decimal.NewFromFloat(res.OptionValue),
		EuropeanPrice:        decimal.NewFromFloat(res.EuropeanValue),
		EarlyExercisePremium: decimal.NewFromFloat(res.EarlyExercisePremium),
		StandardError:        decimal.NewFromFloat(res.StandardError),
		CalculatedAt:         time.Now().UnixMilli(),
		PricingModel:         PricingModelLSM,
	}
	if policy != nil {
		r.DegenerateDates = policy.DegenerateDates
		r.EarlyExercises = policy.EarlyExercises
	}
	if analytic != nil {
		r.AnalyticEuropean = analytic.Price
	}
	return r
}

// ConvergenceKind 收敛分析类型
type ConvergenceKind string

const (
	ConvergenceByBasis     ConvergenceKind = "BASIS"
	ConvergenceByPaths     ConvergenceKind = "PATHS"
	ConvergenceOutOfSample ConvergenceKind = "OUT_OF_SAMPLE"
)

// ParseConvergenceKind 解析分析类型
func ParseConvergenceKind(s string) (ConvergenceKind, error) {
	switch k := ConvergenceKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case ConvergenceByBasis, ConvergenceByPaths, ConvergenceOutOfSample:
		return k, nil
	default:
		return "", fmt.Errorf("ParseConvergenceKind: unknown kind %q: %w", s, ErrInvalidParameter)
	}
}

// ConvergenceReport 一次收敛分析的结果
type ConvergenceReport struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Kind       ConvergenceKind    `json:"kind"`
	Spot       float64            `json:"spot"`
	Strike     float64            `json:"strike"`
	Volatility float64            `json:"volatility"`
	Config     LSMConfig          `json:"config"`
	Rows       []ConvergenceRow   `json:"rows,omitempty"`
	Trials     []OutOfSampleTrial `json:"trials,omitempty"`
}

// SpotQuote 标的报价，定价请求未给出现价时取最新报价中间价
type SpotQuote struct {
	ID        uint            `json:"id"`
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Mid       decimal.Decimal `json:"mid"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSpotQuote 创建报价，要求 0 < bid <= ask
func NewSpotQuote(symbol string, bid, ask decimal.Decimal, source string) (*SpotQuote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("NewSpotQuote: empty symbol: %w", ErrInvalidParameter)
	}
	if !bid.IsPositive() || ask.LessThan(bid) {
		return nil, fmt.Errorf("NewSpotQuote: bid %s ask %s: %w", bid, ask, ErrInvalidSpot)
	}
	return &SpotQuote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Mid:       bid.Add(ask).Div(decimal.NewFromInt(2)),
		Source:    source,
		Timestamp: time.Now(),
	}, nil
}
