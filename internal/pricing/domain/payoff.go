package domain

import (
	"fmt"
	"math"
	"strings"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ParseOptionType 解析期权类型，大小写不敏感
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, nil
	case OptionTypePut:
		return OptionTypePut, nil
	default:
		return "", fmt.Errorf("ParseOptionType: unknown option type %q: %w", s, ErrInvalidParameter)
	}
}

// Payoff 行权收益
type Payoff interface {
	ExerciseValue(price float64) float64
	Strike() float64
	Type() OptionType
}

// PutPayoff max(K-S, 0)
type PutPayoff struct{ strike float64 }

func (p PutPayoff) ExerciseValue(price float64) float64 { return math.Max(p.strike-price, 0) }
func (p PutPayoff) Strike() float64                     { return p.strike }
func (p PutPayoff) Type() OptionType                    { return OptionTypePut }

// CallPayoff max(S-K, 0)
type CallPayoff struct{ strike float64 }

func (p CallPayoff) ExerciseValue(price float64) float64 { return math.Max(price-p.strike, 0) }
func (p CallPayoff) Strike() float64                     { return p.strike }
func (p CallPayoff) Type() OptionType                    { return OptionTypeCall }

// NewPayoff 按期权类型创建收益函数
func NewPayoff(optionType OptionType, strike float64) (Payoff, error) {
	if !(strike > 0) || math.IsInf(strike, 0) {
		return nil, fmt.Errorf("NewPayoff: strike %g: %w", strike, ErrInvalidParameter)
	}
	switch optionType {
	case OptionTypePut:
		return PutPayoff{strike: strike}, nil
	case OptionTypeCall:
		return CallPayoff{strike: strike}, nil
	default:
		return nil, fmt.Errorf("NewPayoff: option type %q: %w", optionType, ErrInvalidParameter)
	}
}
