package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasisExactValues(t *testing.T) {
	l0, err := NewLaguerreBasis(0)
	require.NoError(t, err)
	he2, err := NewHermiteBasis(2)
	require.NoError(t, err)
	x3, err := NewMonomialBasis(3)
	require.NoError(t, err)

	assert.Equal(t, 1.0, l0.Evaluate(0))
	assert.Equal(t, -1.0, he2.Evaluate(0))
	assert.Equal(t, 8.0, x3.Evaluate(2.0))
	for _, x := range []float64{-5, 0, 0.37, 1e6} {
		assert.Equal(t, 1.0, ConstantBasis{}.Evaluate(x))
	}
}

func TestLaguerreClosedForms(t *testing.T) {
	cases := []struct {
		order int
		x     float64
		want  float64
	}{
		{1, 1, 0},
		{2, 2, -math.Exp(-1)},
		{3, 0, 1},
		{4, 0, 1},
		{5, 0, 1},
		{1, 0.5, math.Exp(-0.25) * 0.5},
	}
	for _, c := range cases {
		b, err := NewLaguerreBasis(c.order)
		require.NoError(t, err)
		assert.InDelta(t, c.want, b.Evaluate(c.x), 1e-12, "L%d(%g)", c.order, c.x)
	}
}

func TestLaguerreClampsNegativeInput(t *testing.T) {
	for order := 0; order <= MaxPolynomialOrder; order++ {
		b, err := NewLaguerreBasis(order)
		require.NoError(t, err)
		assert.Equal(t, b.Evaluate(0), b.Evaluate(-3.5))
	}
}

func TestHermiteClosedForms(t *testing.T) {
	want := map[int]float64{0: 1, 1: 2, 2: 3, 3: 2, 4: -5, 5: -18}
	for order, v := range want {
		b, err := NewHermiteBasis(order)
		require.NoError(t, err)
		assert.InDelta(t, v, b.Evaluate(2), 1e-12, "He%d(2)", order)
	}
}

func TestBasisConstructorsRejectInvalidOrders(t *testing.T) {
	_, err := NewLaguerreBasis(6)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLaguerreBasis(-1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewHermiteBasis(6)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewMonomialBasis(-1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	x0, err := NewMonomialBasis(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x0.Evaluate(123))
}

func TestBasisSetsStartWithConstant(t *testing.T) {
	laguerre, err := NewLaguerreSet(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Const", "L0", "L1", "L2"}, laguerre.Names())

	hermite, err := NewHermiteSet(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Const", "He1", "He2"}, hermite.Names())

	monomial, err := NewBasisSet(BasisMonomial, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Const", "x^1", "x^2"}, monomial.Names())

	row := monomial.Evaluate(3, nil)
	assert.Equal(t, []float64{1, 3, 9}, row)

	_, err = NewLaguerreSet(7)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBasisSet(BasisFamily("CHEBYSHEV"), 2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseBasisFamily(t *testing.T) {
	f, err := ParseBasisFamily(" hermite ")
	require.NoError(t, err)
	assert.Equal(t, BasisHermite, f)

	_, err = ParseBasisFamily("spline")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
