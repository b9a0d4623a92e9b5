package domain

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// SimulatePaths 生成 numPaths × (numDates+1) 价格矩阵，第 0 列为现价。
// 随机流完全由 seed 决定：抽样按路径优先顺序进行，开启对偶时路径 2i 使用原始冲击，
// 路径 2i+1 使用其镜像。
func SimulatePaths(process StochasticProcess, spot, maturity float64, numDates, numPaths int, antithetic bool, seed int64) ([][]float64, error) {
	if process == nil {
		return nil, fmt.Errorf("SimulatePaths: process: %w", ErrNilComponent)
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return nil, fmt.Errorf("SimulatePaths: spot %g: %w", spot, ErrInvalidSpot)
	}
	if numDates < 1 || numPaths < 1 || !(maturity > 0) {
		return nil, fmt.Errorf("SimulatePaths: dates=%d paths=%d maturity=%g: %w", numDates, numPaths, maturity, ErrInvalidConfig)
	}
	if antithetic && numPaths%2 != 0 {
		return nil, fmt.Errorf("SimulatePaths: odd path count %d with antithetic pairing: %w", numPaths, ErrInvalidConfig)
	}

	dt := maturity / float64(numDates)
	rng := rand.New(rand.NewSource(uint64(seed)))

	paths := make([][]float64, numPaths)
	backing := make([]float64, numPaths*(numDates+1))
	for i := range paths {
		paths[i] = backing[i*(numDates+1) : (i+1)*(numDates+1)]
		paths[i][0] = spot
	}

	if !antithetic {
		for i := 0; i < numPaths; i++ {
			p := paths[i]
			for t := 1; t <= numDates; t++ {
				p[t] = process.Step(p[t-1], dt, process.Draw(rng, dt))
			}
		}
		return paths, nil
	}

	shocks := make([]Shock, numDates)
	for i := 0; i < numPaths; i += 2 {
		for t := range shocks {
			shocks[t] = process.Draw(rng, dt)
		}
		up, down := paths[i], paths[i+1]
		for t := 1; t <= numDates; t++ {
			up[t] = process.Step(up[t-1], dt, shocks[t-1])
			down[t] = process.Step(down[t-1], dt, shocks[t-1].Mirror())
		}
	}
	return paths, nil
}
