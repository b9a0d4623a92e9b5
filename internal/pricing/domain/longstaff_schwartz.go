package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ExercisePolicy 回归得到的行权规则
// Coefficients[t] 为第 t 个行权日的回归系数，nil 表示该日未参与行权判断
// （第 0 日、到期日以及回归退化的日期）。
type ExercisePolicy struct {
	Coefficients    [][]float64 `json:"coefficients"`
	DegenerateDates int         `json:"degenerate_dates"`
	EarlyExercises  int         `json:"early_exercises"`
}

// LSMPricer 实现了 Longstaff-Schwartz (LSM) 最小二乘蒙特卡洛算法
type LSMPricer struct {
	cfg     LSMConfig
	process StochasticProcess
	payoff  Payoff
	basis   BasisSet
}

// NewLSMPricer 创建定价器，可对多个现价重复调用 Price
func NewLSMPricer(cfg LSMConfig, process StochasticProcess, payoff Payoff, basis BasisSet) (*LSMPricer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewLSMPricer: %w", err)
	}
	if process == nil || payoff == nil {
		return nil, fmt.Errorf("NewLSMPricer: process or payoff: %w", ErrNilComponent)
	}
	if len(basis) == 0 {
		return nil, fmt.Errorf("NewLSMPricer: empty basis set: %w", ErrNilComponent)
	}
	if _, ok := basis[0].(ConstantBasis); !ok {
		return nil, fmt.Errorf("NewLSMPricer: basis set must start with a constant term: %w", ErrInvalidParameter)
	}
	return &LSMPricer{cfg: cfg, process: process, payoff: payoff, basis: basis}, nil
}

// Config 定价配置
func (p *LSMPricer) Config() LSMConfig { return p.cfg }

// Price 计算美式期权价值
func (p *LSMPricer) Price(spot float64) (SimulationResult, error) {
	result, _, err := p.Fit(spot)
	return result, err
}

// Fit 在 cfg.RNGSeed 决定的路径上做逆向归纳，同时返回拟合出的行权规则
func (p *LSMPricer) Fit(spot float64) (SimulationResult, *ExercisePolicy, error) {
	paths, err := SimulatePaths(p.process, spot, p.cfg.Maturity, p.cfg.NumExerciseDates, p.cfg.NumPaths, p.cfg.UseAntithetic, p.cfg.RNGSeed)
	if err != nil {
		return SimulationResult{}, nil, fmt.Errorf("LSMPricer.Fit: %w", err)
	}

	n := p.cfg.NumExerciseDates
	df := p.discountFactors()

	cashFlow := make([]float64, len(paths))
	exerciseDate := make([]int, len(paths))
	for i, path := range paths {
		cashFlow[i] = p.payoff.ExerciseValue(path[n])
		exerciseDate[i] = n
	}

	policy := &ExercisePolicy{Coefficients: make([][]float64, n+1)}
	k := len(p.basis)
	itm := make([]int, 0, len(paths))
	row := make([]float64, k)
	strike := p.payoff.Strike()

	for t := n - 1; t >= 1; t-- {
		itm = itm[:0]
		for i, path := range paths {
			if p.payoff.ExerciseValue(path[t]) > 0 {
				itm = append(itm, i)
			}
		}
		if len(itm) == 0 {
			continue
		}
		if len(itm) < k {
			policy.DegenerateDates++
			continue
		}

		design := mat.NewDense(len(itm), k, nil)
		target := mat.NewVecDense(len(itm), nil)
		for r, i := range itm {
			design.SetRow(r, p.basis.Evaluate(paths[i][t]/strike, row))
			target.SetVec(r, cashFlow[i]*df[exerciseDate[i]-t])
		}

		coef, ok := solveLeastSquares(design, target)
		if !ok {
			policy.DegenerateDates++
			continue
		}
		policy.Coefficients[t] = coef

		for _, i := range itm {
			exercise := p.payoff.ExerciseValue(paths[i][t])
			if exercise > p.continuation(paths[i][t]/strike, coef, row) {
				cashFlow[i] = exercise
				exerciseDate[i] = t
			}
		}
	}

	for _, d := range exerciseDate {
		if d < n {
			policy.EarlyExercises++
		}
	}
	return p.summarize(paths, cashFlow, exerciseDate, df), policy, nil
}

// PriceWithPolicy 在 seed 生成的新路径上正向应用既有行权规则，不重新回归
func (p *LSMPricer) PriceWithPolicy(spot float64, policy *ExercisePolicy, seed int64) (SimulationResult, error) {
	n := p.cfg.NumExerciseDates
	if policy == nil {
		return SimulationResult{}, fmt.Errorf("LSMPricer.PriceWithPolicy: policy: %w", ErrNilComponent)
	}
	if len(policy.Coefficients) != n+1 {
		return SimulationResult{}, fmt.Errorf("LSMPricer.PriceWithPolicy: policy covers %d dates, want %d: %w",
			len(policy.Coefficients)-1, n, ErrInvalidParameter)
	}
	for t, coef := range policy.Coefficients {
		if coef != nil && len(coef) != len(p.basis) {
			return SimulationResult{}, fmt.Errorf("LSMPricer.PriceWithPolicy: date %d has %d coefficients, basis has %d: %w",
				t, len(coef), len(p.basis), ErrInvalidParameter)
		}
	}

	paths, err := SimulatePaths(p.process, spot, p.cfg.Maturity, n, p.cfg.NumPaths, p.cfg.UseAntithetic, seed)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("LSMPricer.PriceWithPolicy: %w", err)
	}

	df := p.discountFactors()
	strike := p.payoff.Strike()
	row := make([]float64, len(p.basis))
	cashFlow := make([]float64, len(paths))
	exerciseDate := make([]int, len(paths))

	for i, path := range paths {
		exerciseDate[i] = n
		cashFlow[i] = p.payoff.ExerciseValue(path[n])
		for t := 1; t < n; t++ {
			coef := policy.Coefficients[t]
			if coef == nil {
				continue
			}
			exercise := p.payoff.ExerciseValue(path[t])
			if exercise > 0 && exercise > p.continuation(path[t]/strike, coef, row) {
				cashFlow[i] = exercise
				exerciseDate[i] = t
				break
			}
		}
	}
	return p.summarize(paths, cashFlow, exerciseDate, df), nil
}

func (p *LSMPricer) continuation(x float64, coef, row []float64) float64 {
	row = p.basis.Evaluate(x, row)
	var v float64
	for j, c := range coef {
		v += c * row[j]
	}
	return v
}

// discountFactors df[j] = exp(-r·j·Δt)
func (p *LSMPricer) discountFactors() []float64 {
	n := p.cfg.NumExerciseDates
	dt := p.cfg.TimeStep()
	df := make([]float64, n+1)
	for j := range df {
		df[j] = math.Exp(-p.cfg.RiskFreeRate * float64(j) * dt)
	}
	return df
}

func (p *LSMPricer) summarize(paths [][]float64, cashFlow []float64, exerciseDate []int, df []float64) SimulationResult {
	n := p.cfg.NumExerciseDates
	american := make([]float64, len(paths))
	european := make([]float64, len(paths))
	for i, path := range paths {
		american[i] = cashFlow[i] * df[exerciseDate[i]]
		european[i] = p.payoff.ExerciseValue(path[n]) * df[n]
	}

	mean, sd := stat.MeanStdDev(american, nil)
	se := 0.0
	if len(american) > 1 && !math.IsNaN(sd) {
		se = sd / math.Sqrt(float64(len(american)))
	}
	europeanValue := stat.Mean(european, nil)
	return SimulationResult{
		OptionValue:          mean,
		EuropeanValue:        europeanValue,
		EarlyExercisePremium: mean - europeanValue,
		StandardError:        se,
	}
}

// solveLeastSquares 用 Householder QR 求解 min ||Xb - y||，病态或秩亏时返回 false
func solveLeastSquares(design *mat.Dense, target *mat.VecDense) ([]float64, bool) {
	var qr mat.QR
	qr.Factorize(design)

	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, target); err != nil {
		return nil, false
	}
	out := make([]float64, coef.Len())
	for j := range out {
		v := coef.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[j] = v
	}
	return out, true
}
