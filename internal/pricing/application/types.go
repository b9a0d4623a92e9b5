package application

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
)

// PriceAmericanOptionCommand 美式期权定价命令，零值字段取服务默认配置
type PriceAmericanOptionCommand struct {
	RequestID  string `json:"request_id"`
	Symbol     string `json:"symbol"`
	OptionType string `json:"option_type"`
	// Spot 为 0 时使用 Symbol 的最新报价中间价
	Spot          float64 `json:"spot"`
	Strike        float64 `json:"strike"`
	Maturity      float64 `json:"maturity"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	Volatility    float64 `json:"volatility"`
	Process       string  `json:"process"`
	JumpIntensity float64 `json:"jump_intensity"`
	Basis         string  `json:"basis"`
	BasisSize     int     `json:"basis_size"`
	NumPaths      int     `json:"num_paths"`
	ExerciseDates int     `json:"exercise_dates"`
	Antithetic    *bool   `json:"antithetic"`
	Seed          *int64  `json:"seed"`
	SkipCache     bool    `json:"skip_cache"`
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string                       `json:"batch_id"`
	Contracts []PriceAmericanOptionCommand `json:"contracts"`
}

// BatchItemError 批量中单个合约的失败原因
type BatchItemError struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BatchPricingResult 批量定价结果，Results 与请求顺序一致，失败位置为 nil
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	Errors       []BatchItemError        `json:"errors,omitempty"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time"`
}

// RunConvergenceCommand 收敛分析命令
type RunConvergenceCommand struct {
	Kind          string  `json:"kind"`
	Spot          float64 `json:"spot"`
	Strike        float64 `json:"strike"`
	Volatility    float64 `json:"volatility"`
	Maturity      float64 `json:"maturity"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	NumPaths      int     `json:"num_paths"`
	ExerciseDates int     `json:"exercise_dates"`
	Antithetic    bool    `json:"antithetic"`
	Seed          *int64  `json:"seed"`
	// 各分析类型的专属参数
	MaxBasisSize int   `json:"max_basis_size"`
	PathCounts   []int `json:"path_counts"`
	Trials       int   `json:"trials"`
}

// RecordQuoteCommand 记录标的报价命令
type RecordQuoteCommand struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Source string          `json:"source"`
}
