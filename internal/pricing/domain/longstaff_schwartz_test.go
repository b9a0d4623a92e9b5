package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func benchmarkConfig(paths int) LSMConfig {
	return LSMConfig{
		NumPaths:         paths,
		NumExerciseDates: 50,
		Maturity:         1,
		RiskFreeRate:     0.06,
		RNGSeed:          42,
	}
}

func newPutPricer(t *testing.T, cfg LSMConfig, strike float64, basis BasisSet) *LSMPricer {
	t.Helper()
	payoff, err := NewPayoff(OptionTypePut, strike)
	require.NoError(t, err)
	if basis == nil {
		basis, err = NewLaguerreSet(3)
		require.NoError(t, err)
	}
	pricer, err := NewLSMPricer(cfg, testGBM(t), payoff, basis)
	require.NoError(t, err)
	return pricer
}

func TestLSMConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*LSMConfig)
		ok     bool
	}{
		{"valid", func(*LSMConfig) {}, true},
		{"zero paths", func(c *LSMConfig) { c.NumPaths = 0 }, false},
		{"odd antithetic", func(c *LSMConfig) { c.NumPaths = 101; c.UseAntithetic = true }, false},
		{"even antithetic", func(c *LSMConfig) { c.UseAntithetic = true }, true},
		{"zero dates", func(c *LSMConfig) { c.NumExerciseDates = 0 }, false},
		{"zero maturity", func(c *LSMConfig) { c.Maturity = 0 }, false},
		{"negative rate", func(c *LSMConfig) { c.RiskFreeRate = -0.01 }, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := benchmarkConfig(100)
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestNewLSMPricerRejectsBadComponents(t *testing.T) {
	payoff, err := NewPayoff(OptionTypePut, 40)
	require.NoError(t, err)
	basis, err := NewLaguerreSet(2)
	require.NoError(t, err)

	_, err = NewLSMPricer(benchmarkConfig(100), nil, payoff, basis)
	assert.ErrorIs(t, err, ErrNilComponent)
	_, err = NewLSMPricer(benchmarkConfig(100), testGBM(t), payoff, BasisSet{})
	assert.ErrorIs(t, err, ErrNilComponent)
	_, err = NewLSMPricer(benchmarkConfig(100), testGBM(t), payoff, BasisSet{LaguerreBasis{order: 1}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLSMPricer(benchmarkConfig(0), testGBM(t), payoff, basis)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPayoff(OptionTypePut, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPriceIsReproducible(t *testing.T) {
	pricer := newPutPricer(t, benchmarkConfig(2000), 40, nil)

	a, err := pricer.Price(36)
	require.NoError(t, err)
	b, err := pricer.Price(36)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPutBenchmarkScenario(t *testing.T) {
	pricer := newPutPricer(t, benchmarkConfig(10000), 40, nil)

	res, err := pricer.Price(36)
	require.NoError(t, err)

	bs, err := CalculateBlackScholes(OptionTypePut, BlackScholesInput{S: 36, K: 40, T: 1, R: 0.06, V: 0.2})
	require.NoError(t, err)

	assert.Greater(t, res.OptionValue, res.EuropeanValue)
	assert.Greater(t, res.EarlyExercisePremium, 3*res.StandardError)
	assert.InDelta(t, bs.Price.InexactFloat64(), res.EuropeanValue, 0.15)
	assert.InDelta(t, 4.478, res.OptionValue, 0.12)
	assert.InDelta(t, res.OptionValue-res.EuropeanValue, res.EarlyExercisePremium, 1e-12)
	assert.Greater(t, res.StandardError, 0.0)
}

func TestAmericanCallPremiumIsNegligible(t *testing.T) {
	payoff, err := NewPayoff(OptionTypeCall, 40)
	require.NoError(t, err)
	basis, err := NewLaguerreSet(3)
	require.NoError(t, err)
	pricer, err := NewLSMPricer(benchmarkConfig(10000), testGBM(t), payoff, basis)
	require.NoError(t, err)

	res, err := pricer.Price(40)
	require.NoError(t, err)
	assert.LessOrEqual(t, math.Abs(res.EarlyExercisePremium), 4*res.StandardError)
}

func TestPutPremiumPositiveAcrossSeeds(t *testing.T) {
	var sum float64
	for seed := int64(1); seed <= 5; seed++ {
		cfg := benchmarkConfig(2000)
		cfg.RNGSeed = seed
		res, err := newPutPricer(t, cfg, 40, nil).Price(40)
		require.NoError(t, err)
		sum += res.EarlyExercisePremium
	}
	assert.Greater(t, sum/5, 0.0)
}

func TestStandardErrorScalesWithRootN(t *testing.T) {
	small, err := newPutPricer(t, benchmarkConfig(2000), 40, nil).Price(40)
	require.NoError(t, err)
	large, err := newPutPricer(t, benchmarkConfig(8000), 40, nil).Price(40)
	require.NoError(t, err)

	ratio := small.StandardError / large.StandardError
	assert.InDelta(t, 2.0, ratio, 0.35)
}

func TestJumpDiffusionZeroIntensityPricesLikeGBM(t *testing.T) {
	payoff, err := NewPayoff(OptionTypePut, 40)
	require.NoError(t, err)
	basis, err := NewLaguerreSet(3)
	require.NoError(t, err)
	gbm, err := NewGeometricBrownianMotion(0.06, 0.3)
	require.NoError(t, err)
	jd, err := NewJumpDiffusionProcess(0.06, 0.3, 0)
	require.NoError(t, err)

	cfg := benchmarkConfig(4000)
	a, err := NewLSMPricer(cfg, gbm, payoff, basis)
	require.NoError(t, err)
	b, err := NewLSMPricer(cfg, jd, payoff, basis)
	require.NoError(t, err)

	ra, err := a.Price(40)
	require.NoError(t, err)
	rb, err := b.Price(40)
	require.NoError(t, err)
	assert.InDelta(t, ra.OptionValue, rb.OptionValue, 1e-12)
	assert.InDelta(t, ra.StandardError, rb.StandardError, 1e-12)
}

func TestJumpsRaisePutValue(t *testing.T) {
	payoff, err := NewPayoff(OptionTypePut, 40)
	require.NoError(t, err)
	basis, err := NewLaguerreSet(3)
	require.NoError(t, err)
	gbm, err := NewGeometricBrownianMotion(0.06, 0.2)
	require.NoError(t, err)
	jd, err := NewJumpDiffusionProcess(0.06, 0.2, 1.0)
	require.NoError(t, err)

	cfg := benchmarkConfig(5000)
	a, err := NewLSMPricer(cfg, gbm, payoff, basis)
	require.NoError(t, err)
	b, err := NewLSMPricer(cfg, jd, payoff, basis)
	require.NoError(t, err)

	ra, err := a.Price(40)
	require.NoError(t, err)
	rb, err := b.Price(40)
	require.NoError(t, err)
	assert.Greater(t, rb.OptionValue, ra.OptionValue)
}

func TestDeepOutOfTheMoneyPutIsWorthless(t *testing.T) {
	res, err := newPutPricer(t, benchmarkConfig(1000), 40, nil).Price(1000)
	require.NoError(t, err)
	assert.Equal(t, SimulationResult{}, res)
}

func TestDegenerateRegressionFallsBackToContinuation(t *testing.T) {
	basis, err := NewLaguerreSet(5)
	require.NoError(t, err)
	cfg := benchmarkConfig(4)
	cfg.NumExerciseDates = 10
	pricer := newPutPricer(t, cfg, 40, basis)

	res, policy, err := pricer.Fit(30)
	require.NoError(t, err)
	assert.Equal(t, res.EuropeanValue, res.OptionValue)
	assert.Equal(t, 0.0, res.EarlyExercisePremium)
	assert.Greater(t, policy.DegenerateDates, 0)
	assert.Zero(t, policy.EarlyExercises)
}

func TestSingleExerciseDateEqualsEuropean(t *testing.T) {
	cfg := benchmarkConfig(2000)
	cfg.NumExerciseDates = 1
	res, err := newPutPricer(t, cfg, 40, nil).Price(36)
	require.NoError(t, err)
	assert.Equal(t, res.EuropeanValue, res.OptionValue)
}

func TestAntitheticPricing(t *testing.T) {
	cfg := benchmarkConfig(4000)
	cfg.UseAntithetic = true
	pricer := newPutPricer(t, cfg, 40, nil)

	a, err := pricer.Price(36)
	require.NoError(t, err)
	b, err := pricer.Price(36)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 4.478, a.OptionValue, 0.2)
}

func TestPriceWithPolicyReproducesInSampleFit(t *testing.T) {
	cfg := benchmarkConfig(3000)
	pricer := newPutPricer(t, cfg, 40, nil)

	fitted, policy, err := pricer.Fit(38)
	require.NoError(t, err)
	require.Len(t, policy.Coefficients, cfg.NumExerciseDates+1)
	assert.Nil(t, policy.Coefficients[0])
	assert.Nil(t, policy.Coefficients[cfg.NumExerciseDates])
	assert.Greater(t, policy.EarlyExercises, 0)

	replayed, err := pricer.PriceWithPolicy(38, policy, cfg.RNGSeed)
	require.NoError(t, err)
	assert.Equal(t, fitted, replayed)

	other, err := pricer.PriceWithPolicy(38, policy, cfg.RNGSeed+1)
	require.NoError(t, err)
	assert.NotEqual(t, fitted, other)
}

func TestPriceWithPolicyRejectsMismatchedPolicy(t *testing.T) {
	pricer := newPutPricer(t, benchmarkConfig(100), 40, nil)

	_, err := pricer.PriceWithPolicy(36, nil, 1)
	assert.ErrorIs(t, err, ErrNilComponent)
	_, err = pricer.PriceWithPolicy(36, &ExercisePolicy{Coefficients: make([][]float64, 3)}, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad := &ExercisePolicy{Coefficients: make([][]float64, 51)}
	bad.Coefficients[10] = []float64{1, 2}
	_, err = pricer.PriceWithPolicy(36, bad, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPriceRejectsInvalidSpot(t *testing.T) {
	_, err := newPutPricer(t, benchmarkConfig(100), 40, nil).Price(0)
	assert.ErrorIs(t, err, ErrInvalidSpot)
}
