package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型，输入参数平铺为列便于检索
type PricingResultModel struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
	RequestID            string    `gorm:"column:request_id;type:varchar(64);index"`
	Symbol               string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_calculated,priority:1;not null"`
	OptionType           string    `gorm:"column:option_type;type:varchar(8);not null"`
	Process              string    `gorm:"column:process;type:varchar(16);not null"`
	Spot                 float64   `gorm:"column:spot;not null"`
	Strike               float64   `gorm:"column:strike;not null"`
	Maturity             float64   `gorm:"column:maturity;not null"`
	RiskFreeRate         float64   `gorm:"column:risk_free_rate"`
	Volatility           float64   `gorm:"column:volatility"`
	JumpIntensity        float64   `gorm:"column:jump_intensity"`
	Basis                string    `gorm:"column:basis;type:varchar(16)"`
	BasisSize            int       `gorm:"column:basis_size"`
	NumPaths             int       `gorm:"column:num_paths"`
	ExerciseDates        int       `gorm:"column:exercise_dates"`
	Antithetic           bool      `gorm:"column:antithetic"`
	Seed                 int64     `gorm:"column:seed"`
	OptionPrice          string    `gorm:"column:option_price;type:decimal(32,18);not null"`
	EuropeanPrice        string    `gorm:"column:european_price;type:decimal(32,18)"`
	EarlyExercisePremium string    `gorm:"column:early_exercise_premium;type:decimal(32,18)"`
	StandardError        string    `gorm:"column:standard_error;type:decimal(32,18)"`
	AnalyticEuropean     string    `gorm:"column:analytic_european;type:decimal(32,18)"`
	DegenerateDates      int       `gorm:"column:degenerate_dates"`
	EarlyExercises       int       `gorm:"column:early_exercises"`
	CalculatedAt         int64     `gorm:"column:calculated_at;type:bigint;index:idx_symbol_calculated,priority:2;not null"`
	PricingModel         string    `gorm:"column:pricing_model;type:varchar(32)"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

// ConvergenceReportModel 收敛报告，行数据以 JSON 存储
type ConvergenceReportModel struct {
	ID         string                    `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt  time.Time                 `gorm:"column:created_at;index"`
	Kind       string                    `gorm:"column:kind;type:varchar(16);not null"`
	Spot       float64                   `gorm:"column:spot"`
	Strike     float64                   `gorm:"column:strike"`
	Volatility float64                   `gorm:"column:volatility"`
	Config     domain.LSMConfig          `gorm:"column:config;type:text;serializer:json"`
	Rows       []domain.ConvergenceRow   `gorm:"column:row_data;type:text;serializer:json"`
	Trials     []domain.OutOfSampleTrial `gorm:"column:trial_data;type:text;serializer:json"`
}

func (ConvergenceReportModel) TableName() string { return "convergence_reports" }

// SpotQuoteModel 标的报价
type SpotQuoteModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Symbol    string    `gorm:"column:symbol;type:varchar(32);index:idx_quote_symbol_ts,priority:1;not null"`
	Bid       string    `gorm:"column:bid;type:decimal(32,18)"`
	Ask       string    `gorm:"column:ask;type:decimal(32,18)"`
	Mid       string    `gorm:"column:mid;type:decimal(32,18)"`
	Source    string    `gorm:"column:source;type:varchar(50)"`
	Timestamp time.Time `gorm:"column:timestamp;index:idx_quote_symbol_ts,priority:2"`
}

func (SpotQuoteModel) TableName() string { return "spot_quotes" }

// Models 需要迁移的表
func Models() []any {
	return []any{&PricingResultModel{}, &ConvergenceReportModel{}, &SpotQuoteModel{}}
}

// mapping helpers

func toPricingResultModel(r *domain.PricingResult) *PricingResultModel {
	s := r.Spec
	return &PricingResultModel{
		ID:                   r.ID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		RequestID:            r.RequestID,
		Symbol:               s.Symbol,
		OptionType:           string(s.OptionType),
		Process:              string(s.Process),
		Spot:                 s.Spot,
		Strike:               s.Strike,
		Maturity:             s.Maturity,
		RiskFreeRate:         s.RiskFreeRate,
		Volatility:           s.Volatility,
		JumpIntensity:        s.JumpIntensity,
		Basis:                string(s.Basis),
		BasisSize:            s.BasisSize,
		NumPaths:             s.NumPaths,
		ExerciseDates:        s.ExerciseDates,
		Antithetic:           s.Antithetic,
		Seed:                 s.Seed,
		OptionPrice:          r.OptionPrice.String(),
		EuropeanPrice:        r.EuropeanPrice.String(),
		EarlyExercisePremium: r.EarlyExercisePremium.String(),
		StandardError:        r.StandardError.String(),
		AnalyticEuropean:     r.AnalyticEuropean.String(),
		DegenerateDates:      r.DegenerateDates,
		EarlyExercises:       r.EarlyExercises,
		CalculatedAt:         r.CalculatedAt,
		PricingModel:         r.PricingModel,
	}
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	return &domain.PricingResult{
		ID:        m.ID,
		RequestID: m.RequestID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Spec: domain.AmericanOptionSpec{
			Symbol:        m.Symbol,
			OptionType:    domain.OptionType(m.OptionType),
			Spot:          m.Spot,
			Strike:        m.Strike,
			Maturity:      m.Maturity,
			RiskFreeRate:  m.RiskFreeRate,
			Volatility:    m.Volatility,
			Process:       domain.ProcessType(m.Process),
			JumpIntensity: m.JumpIntensity,
			Basis:         domain.BasisFamily(m.Basis),
			BasisSize:     m.BasisSize,
			NumPaths:      m.NumPaths,
			ExerciseDates: m.ExerciseDates,
			Antithetic:    m.Antithetic,
			Seed:          m.Seed,
		},
		OptionPrice:          parseDecimal(m.OptionPrice),
		EuropeanPrice:        parseDecimal(m.EuropeanPrice),
		EarlyExercisePremium: parseDecimal(m.EarlyExercisePremium),
		StandardError:        parseDecimal(m.StandardError),
		AnalyticEuropean:     parseDecimal(m.AnalyticEuropean),
		DegenerateDates:      m.DegenerateDates,
		EarlyExercises:       m.EarlyExercises,
		CalculatedAt:         m.CalculatedAt,
		PricingModel:         m.PricingModel,
	}
}

func toConvergenceReportModel(r *domain.ConvergenceReport) *ConvergenceReportModel {
	return &ConvergenceReportModel{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Kind:       string(r.Kind),
		Spot:       r.Spot,
		Strike:     r.Strike,
		Volatility: r.Volatility,
		Config:     r.Config,
		Rows:       r.Rows,
		Trials:     r.Trials,
	}
}

func toConvergenceReport(m *ConvergenceReportModel) *domain.ConvergenceReport {
	return &domain.ConvergenceReport{
		ID:         m.ID,
		CreatedAt:  m.CreatedAt,
		Kind:       domain.ConvergenceKind(m.Kind),
		Spot:       m.Spot,
		Strike:     m.Strike,
		Volatility: m.Volatility,
		Config:     m.Config,
		Rows:       m.Rows,
		Trials:     m.Trials,
	}
}

func toSpotQuoteModel(q *domain.SpotQuote) *SpotQuoteModel {
	return &SpotQuoteModel{
		ID:        q.ID,
		Symbol:    q.Symbol,
		Bid:       q.Bid.String(),
		Ask:       q.Ask.String(),
		Mid:       q.Mid.String(),
		Source:    q.Source,
		Timestamp: q.Timestamp,
	}
}

func toSpotQuote(m *SpotQuoteModel) *domain.SpotQuote {
	return &domain.SpotQuote{
		ID:        m.ID,
		Symbol:    m.Symbol,
		Bid:       parseDecimal(m.Bid),
		Ask:       parseDecimal(m.Ask),
		Mid:       parseDecimal(m.Mid),
		Source:    m.Source,
		Timestamp: m.Timestamp,
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
