package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesInput Black-Scholes 模型输入
type BlackScholesInput struct {
	S float64 // 标的资产价格
	K float64 // 执行价格
	T float64 // 到期时间 (年)
	R float64 // 无风险利率
	V float64 // 波动率
}

// BlackScholesResult Black-Scholes 模型输出
type BlackScholesResult struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// CalculateBlackScholes 计算欧式期权解析价格和 Greeks，作为 LSM 欧式估计的基准
func CalculateBlackScholes(optionType OptionType, input BlackScholesInput) (*BlackScholesResult, error) {
	if !(input.S > 0) || !(input.K > 0) {
		return nil, fmt.Errorf("CalculateBlackScholes: spot %g strike %g: %w", input.S, input.K, ErrInvalidParameter)
	}
	if input.T < 0 || input.V < 0 {
		return nil, fmt.Errorf("CalculateBlackScholes: maturity %g vol %g: %w", input.T, input.V, ErrInvalidParameter)
	}
	if optionType != OptionTypeCall && optionType != OptionTypePut {
		return nil, fmt.Errorf("CalculateBlackScholes: option type %q: %w", optionType, ErrInvalidParameter)
	}

	discount := math.Exp(-input.R * input.T)
	sqrtT := math.Sqrt(input.T)

	// 到期或零波动：价格退化为远期内在价值
	if input.T == 0 || input.V == 0 {
		forward := input.S - input.K*discount
		price, delta := math.Max(forward, 0), 0.0
		if forward > 0 {
			delta = 1
		}
		if optionType == OptionTypePut {
			price, delta = math.Max(-forward, 0), 0
			if forward < 0 {
				delta = -1
			}
		}
		return &BlackScholesResult{
			Price: decimal.NewFromFloat(price),
			Delta: decimal.NewFromFloat(delta),
			Gamma: decimal.Zero,
			Theta: decimal.Zero,
			Vega:  decimal.Zero,
			Rho:   decimal.Zero,
		}, nil
	}

	d1 := (math.Log(input.S/input.K) + (input.R+0.5*input.V*input.V)*input.T) / (input.V * sqrtT)
	d2 := d1 - input.V*sqrtT

	var price, delta, theta, rho float64
	gamma := normPdf(d1) / (input.S * input.V * sqrtT)
	vega := input.S * sqrtT * normPdf(d1)

	if optionType == OptionTypeCall {
		price = input.S*normCdf(d1) - input.K*discount*normCdf(d2)
		delta = normCdf(d1)
		theta = -input.S*normPdf(d1)*input.V/(2*sqrtT) - input.R*input.K*discount*normCdf(d2)
		rho = input.K * input.T * discount * normCdf(d2)
	} else {
		price = input.K*discount*normCdf(-d2) - input.S*normCdf(-d1)
		delta = normCdf(d1) - 1
		theta = -input.S*normPdf(d1)*input.V/(2*sqrtT) + input.R*input.K*discount*normCdf(-d2)
		rho = -input.K * input.T * discount * normCdf(-d2)
	}

	return &BlackScholesResult{
		Price: decimal.NewFromFloat(price),
		Delta: decimal.NewFromFloat(delta),
		Gamma: decimal.NewFromFloat(gamma),
		Theta: decimal.NewFromFloat(theta),
		Vega:  decimal.NewFromFloat(vega),
		Rho:   decimal.NewFromFloat(rho),
	}, nil
}

func normCdf(x float64) float64 { return distuv.UnitNormal.CDF(x) }

func normPdf(x float64) float64 { return distuv.UnitNormal.Prob(x) }
