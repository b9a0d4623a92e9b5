package domain

import (
	"fmt"
	"math"
	"strings"
)

// BasisFunction 回归基函数
type BasisFunction interface {
	Evaluate(x float64) float64
	Name() string
}

// ConstantBasis 常数项
type ConstantBasis struct{}

func (ConstantBasis) Evaluate(float64) float64 { return 1.0 }
func (ConstantBasis) Name() string             { return "Const" }

// MonomialBasis x^power
type MonomialBasis struct{ power int }

// NewMonomialBasis power 必须非负
func NewMonomialBasis(power int) (MonomialBasis, error) {
	if power < 0 {
		return MonomialBasis{}, fmt.Errorf("NewMonomialBasis: power %d: %w", power, ErrInvalidParameter)
	}
	return MonomialBasis{power: power}, nil
}

func (b MonomialBasis) Evaluate(x float64) float64 {
	// 小整数幂走连乘，保证 2^3 == 8 这类结果精确
	r := 1.0
	for i := 0; i < b.power; i++ {
		r *= x
	}
	return r
}

func (b MonomialBasis) Name() string { return fmt.Sprintf("x^%d", b.power) }

// MaxPolynomialOrder Laguerre/Hermite 闭式支持的最高阶数
const MaxPolynomialOrder = 5

// LaguerreBasis 加权 Laguerre 多项式 e^{-x/2}·L_n(x)
type LaguerreBasis struct{ order int }

// NewLaguerreBasis order 取值 0..5
func NewLaguerreBasis(order int) (LaguerreBasis, error) {
	if order < 0 || order > MaxPolynomialOrder {
		return LaguerreBasis{}, fmt.Errorf("NewLaguerreBasis: order %d outside 0..%d: %w", order, MaxPolynomialOrder, ErrInvalidParameter)
	}
	return LaguerreBasis{order: order}, nil
}

func (b LaguerreBasis) Evaluate(x float64) float64 {
	if x < 0 {
		x = 0
	}
	x2 := x * x
	x3 := x2 * x
	x4 := x3 * x
	x5 := x4 * x
	var l float64
	switch b.order {
	case 0:
		l = 1
	case 1:
		l = 1 - x
	case 2:
		l = (x2 - 4*x + 2) / 2
	case 3:
		l = (-x3 + 9*x2 - 18*x + 6) / 6
	case 4:
		l = (x4 - 16*x3 + 72*x2 - 96*x + 24) / 24
	case 5:
		l = (-x5 + 25*x4 - 200*x3 + 600*x2 - 600*x + 120) / 120
	}
	return math.Exp(-x/2) * l
}

func (b LaguerreBasis) Name() string { return fmt.Sprintf("L%d", b.order) }

// HermiteBasis 概率论 Hermite 多项式 He_n(x)
type HermiteBasis struct{ order int }

// NewHermiteBasis order 取值 0..5
func NewHermiteBasis(order int) (HermiteBasis, error) {
	if order < 0 || order > MaxPolynomialOrder {
		return HermiteBasis{}, fmt.Errorf("NewHermiteBasis: order %d outside 0..%d: %w", order, MaxPolynomialOrder, ErrInvalidParameter)
	}
	return HermiteBasis{order: order}, nil
}

func (b HermiteBasis) Evaluate(x float64) float64 {
	x2 := x * x
	switch b.order {
	case 0:
		return 1
	case 1:
		return x
	case 2:
		return x2 - 1
	case 3:
		return x2*x - 3*x
	case 4:
		return x2*x2 - 6*x2 + 3
	default:
		return x2*x2*x - 10*x2*x + 15*x
	}
}

func (b HermiteBasis) Name() string { return fmt.Sprintf("He%d", b.order) }

// BasisFamily 基函数族
type BasisFamily string

const (
	BasisLaguerre BasisFamily = "LAGUERRE"
	BasisMonomial BasisFamily = "MONOMIAL"
	BasisHermite  BasisFamily = "HERMITE"
)

// ParseBasisFamily 解析基函数族名称
func ParseBasisFamily(s string) (BasisFamily, error) {
	switch f := BasisFamily(strings.ToUpper(strings.TrimSpace(s))); f {
	case BasisLaguerre, BasisMonomial, BasisHermite:
		return f, nil
	default:
		return "", fmt.Errorf("ParseBasisFamily: unknown family %q: %w", s, ErrInvalidParameter)
	}
}

// BasisSet 有序基函数集合，首项恒为常数项
type BasisSet []BasisFunction

// Evaluate 在 x 处求值，写入 dst 并返回
func (s BasisSet) Evaluate(x float64, dst []float64) []float64 {
	if cap(dst) < len(s) {
		dst = make([]float64, len(s))
	}
	dst = dst[:len(s)]
	for i, f := range s {
		dst[i] = f.Evaluate(x)
	}
	return dst
}

// Names 基函数标签
func (s BasisSet) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name()
	}
	return names
}

// NewLaguerreSet Const + L0..L(n-1)
func NewLaguerreSet(n int) (BasisSet, error) {
	if n < 0 || n > MaxPolynomialOrder+1 {
		return nil, fmt.Errorf("NewLaguerreSet: size %d outside 0..%d: %w", n, MaxPolynomialOrder+1, ErrInvalidParameter)
	}
	set := BasisSet{ConstantBasis{}}
	for order := 0; order < n; order++ {
		b, err := NewLaguerreBasis(order)
		if err != nil {
			return nil, err
		}
		set = append(set, b)
	}
	return set, nil
}

// NewMonomialSet Const + x^1..x^n
func NewMonomialSet(n int) (BasisSet, error) {
	if n < 0 {
		return nil, fmt.Errorf("NewMonomialSet: size %d: %w", n, ErrInvalidParameter)
	}
	set := BasisSet{ConstantBasis{}}
	for p := 1; p <= n; p++ {
		b, err := NewMonomialBasis(p)
		if err != nil {
			return nil, err
		}
		set = append(set, b)
	}
	return set, nil
}

// NewHermiteSet Const + He1..He(n)
func NewHermiteSet(n int) (BasisSet, error) {
	if n < 0 || n > MaxPolynomialOrder {
		return nil, fmt.Errorf("NewHermiteSet: size %d outside 0..%d: %w", n, MaxPolynomialOrder, ErrInvalidParameter)
	}
	set := BasisSet{ConstantBasis{}}
	for order := 1; order <= n; order++ {
		b, err := NewHermiteBasis(order)
		if err != nil {
			return nil, err
		}
		set = append(set, b)
	}
	return set, nil
}

// NewBasisSet 按族与项数构造基函数集合
func NewBasisSet(family BasisFamily, n int) (BasisSet, error) {
	switch family {
	case BasisLaguerre:
		return NewLaguerreSet(n)
	case BasisMonomial:
		return NewMonomialSet(n)
	case BasisHermite:
		return NewHermiteSet(n)
	default:
		return nil, fmt.Errorf("NewBasisSet: family %q: %w", family, ErrInvalidParameter)
	}
}
