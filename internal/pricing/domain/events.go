package domain

import "time"

const (
	OptionPricedEventType          = "OptionPriced"
	ConvergenceAnalyzedEventType   = "ConvergenceAnalyzed"
	QuoteReceivedEventType         = "QuoteReceived"
	PricingErrorEventType          = "PricingError"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	RequestID            string      `json:"request_id"`
	Symbol               string      `json:"symbol"`
	OptionType           OptionType  `json:"option_type"`
	Process              ProcessType `json:"process"`
	Spot                 float64     `json:"spot"`
	Strike               float64     `json:"strike"`
	Maturity             float64     `json:"maturity"`
	OptionPrice          float64     `json:"option_price"`
	EuropeanPrice        float64     `json:"european_price"`
	EarlyExercisePremium float64     `json:"early_exercise_premium"`
	StandardError        float64     `json:"standard_error"`
	NumPaths             int         `json:"num_paths"`
	PricingModel         string      `json:"pricing_model"`
	CalculatedAt         int64       `json:"calculated_at"`
	OccurredOn           time.Time   `json:"occurred_on"`
}

// ConvergenceAnalyzedEvent 收敛分析完成事件
type ConvergenceAnalyzedEvent struct {
	ReportID   string          `json:"report_id"`
	Kind       ConvergenceKind `json:"kind"`
	Rows       int             `json:"rows"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// QuoteReceivedEvent 标的报价更新事件
type QuoteReceivedEvent struct {
	Symbol     string    `json:"symbol"`
	Mid        string    `json:"mid"`
	Source     string    `json:"source"`
	OccurredOn time.Time `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	RequestID  string     `json:"request_id"`
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Strike     float64    `json:"strike"`
	Error      string     `json:"error"`
	ErrorCode  string     `json:"error_code"`
	OccurredAt int64      `json:"occurred_at"`
	OccurredOn time.Time  `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	Symbols        []string  `json:"symbols"`
	TotalContracts int       `json:"total_contracts"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	AverageTime    float64   `json:"average_time"`
	CompletedAt    int64     `json:"completed_at"`
	OccurredOn     time.Time `json:"occurred_on"`
}
