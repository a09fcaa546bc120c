package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutCallParity(t *testing.T) {
	cases := []struct {
		name             string
		S, K, T, r, q    float64
		sigma            float64
	}{
		{"atm", 100, 100, 0.25, 0.05, 0, 0.20},
		{"itm call", 120, 100, 0.5, 0.03, 0.01, 0.35},
		{"otm call", 80, 100, 1.0, 0.05, 0.02, 0.50},
		{"short dated", 155, 160, 30.0 / 365, 0.05, 0, 0.25},
		{"high vol", 50, 55, 2.0, 0.01, 0, 1.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			call := CallPrice(tc.S, tc.K, tc.T, tc.r, tc.sigma, tc.q)
			put := PutPrice(tc.S, tc.K, tc.T, tc.r, tc.sigma, tc.q)
			parity := tc.S*math.Exp(-tc.q*tc.T) - tc.K*math.Exp(-tc.r*tc.T)
			assert.InDelta(t, parity, call-put, 1e-9)
		})
	}
}

func TestExpiryBoundary(t *testing.T) {
	// Expired ITM call prices at exactly intrinsic.
	assert.Equal(t, 10.0, CallPrice(110, 100, 0, 0.05, 0.25, 0))
	// Expired OTM call is worthless.
	assert.Equal(t, 0.0, CallPrice(90, 100, 0, 0.05, 0.25, 0))
	assert.Equal(t, 10.0, PutPrice(90, 100, 0, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, PutPrice(110, 100, 0, 0.05, 0.25, 0))

	// Negative time behaves identically to zero.
	assert.Equal(t, 10.0, CallPrice(110, 100, -0.1, 0.05, 0.25, 0))

	// Sensitivities collapse: delta to the indicator, the rest to 0.
	assert.Equal(t, 1.0, Delta(110, 100, 0, 0.05, 0.25, true, 0))
	assert.Equal(t, 0.0, Delta(90, 100, 0, 0.05, 0.25, true, 0))
	assert.Equal(t, -1.0, Delta(90, 100, 0, 0.05, 0.25, false, 0))
	assert.Equal(t, 0.0, Delta(110, 100, 0, 0.05, 0.25, false, 0))
	assert.Equal(t, 0.0, Gamma(110, 100, 0, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, Theta(110, 100, 0, 0.05, 0.25, true, 0))
	assert.Equal(t, 0.0, Vega(110, 100, 0, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, Rho(110, 100, 0, 0.05, 0.25, true, 0))
}

func TestBoundaryConvergence(t *testing.T) {
	// As T shrinks the call price approaches intrinsic value.
	for _, T := range []float64{0.1, 0.01, 0.001, 0.0001} {
		price := CallPrice(110, 100, T, 0.05, 0.25, 0)
		assert.Greater(t, price, 10.0-1e-6)
	}
	price := CallPrice(110, 100, 1e-6, 0.05, 0.25, 0)
	assert.InDelta(t, 10.0, price, 0.01)

	otm := CallPrice(90, 100, 1e-6, 0.05, 0.25, 0)
	assert.InDelta(t, 0.0, otm, 1e-6)
}

func TestGreeksSignAndShape(t *testing.T) {
	S, K, T, r, sigma, q := 155.0, 160.0, 30.0/365, 0.05, 0.25, 0.0

	callDelta := Delta(S, K, T, r, sigma, true, q)
	putDelta := Delta(S, K, T, r, sigma, false, q)

	assert.GreaterOrEqual(t, callDelta, 0.0)
	assert.LessOrEqual(t, callDelta, 1.0)
	assert.GreaterOrEqual(t, putDelta, -1.0)
	assert.LessOrEqual(t, putDelta, 0.0)
	// Call and put delta differ by e^(-qT).
	assert.InDelta(t, math.Exp(-q*T), callDelta-putDelta, 1e-9)

	assert.GreaterOrEqual(t, Gamma(S, K, T, r, sigma, q), 0.0)
	assert.GreaterOrEqual(t, Vega(S, K, T, r, sigma, q), 0.0)

	// Long options decay.
	assert.Less(t, Theta(S, K, T, r, sigma, true, q), 0.0)

	// Rho signs.
	assert.Greater(t, Rho(S, K, T, r, sigma, true, q), 0.0)
	assert.Less(t, Rho(S, K, T, r, sigma, false, q), 0.0)
}

func TestATMDeltaNearHalf(t *testing.T) {
	callDelta := Delta(100, 100, 0.25, 0.02, 0.20, true, 0)
	putDelta := Delta(100, 100, 0.25, 0.02, 0.20, false, 0)

	assert.InDelta(t, 0.5, callDelta, 0.1)
	assert.InDelta(t, -0.5, putDelta, 0.1)
}

func TestDegenerateInputsReturnZero(t *testing.T) {
	assert.Equal(t, 0.0, D1(0, 100, 0.25, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, D1(100, 0, 0.25, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, D1(100, 100, 0.25, 0.05, 0, 0))
	assert.Equal(t, 0.0, D2(100, 100, 0, 0.05, 0.25, 0))
	assert.Equal(t, 0.0, Gamma(100, 100, 0.25, 0.05, 0, 0))
}

func TestAllGreeksScaling(t *testing.T) {
	S, K, T, r, sigma := 155.0, 160.0, 30.0/365, 0.05, 0.25

	one := AllGreeks(S, K, T, r, sigma, true, 0, 1, 100)
	five := AllGreeks(S, K, T, r, sigma, true, 0, 5, 100)
	short5 := AllGreeks(S, K, T, r, sigma, true, 0, -5, 100)

	// Linear in position size.
	assert.InDelta(t, one.Delta*5, five.Delta, 1e-9)
	assert.InDelta(t, one.VegaDollars*5, five.VegaDollars, 1e-9)

	// Short positions are exact negations.
	assert.InDelta(t, -five.Delta, short5.Delta, 1e-9)
	assert.InDelta(t, -five.Gamma, short5.Gamma, 1e-9)
	assert.InDelta(t, -five.ThetaDollars, short5.ThetaDollars, 1e-9)

	// 5 slightly-OTM calls: positive gamma/vega exposure, daily decay,
	// |delta| bounded by full assignment.
	assert.Greater(t, five.GammaDollars, 0.0)
	assert.Less(t, five.ThetaDollars, 0.0)
	assert.Greater(t, five.VegaDollars, 0.0)
	assert.Less(t, math.Abs(five.Delta), 500.0)

	assert.InDelta(t, one.Delta*S, one.DeltaDollars, 1e-9)
}

func TestGreeksAddScale(t *testing.T) {
	a := Greeks{Delta: 1, Gamma: 2, Theta: -3, Vega: 4, Rho: 5, DeltaDollars: 10}
	b := Greeks{Delta: 2, Gamma: 1, Theta: -1, Vega: 1, Rho: 1, DeltaDollars: 5}

	sum := a.Add(b)
	assert.Equal(t, 3.0, sum.Delta)
	assert.Equal(t, -4.0, sum.Theta)
	assert.Equal(t, 15.0, sum.DeltaDollars)

	neg := a.Scale(-1)
	assert.Equal(t, -1.0, neg.Delta)
	assert.Equal(t, 3.0, neg.Theta)
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		S, K  float64
		T     float64
		sigma float64
		call  bool
	}{
		{"atm call", 100, 100, 0.25, 0.20, true},
		{"otm call", 100, 110, 0.5, 0.35, true},
		{"itm put", 90, 100, 0.25, 0.45, false},
		{"long dated", 100, 100, 1.5, 0.18, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, q := 0.05, 0.0
			price := Price(tc.S, tc.K, tc.T, r, tc.sigma, tc.call, q)
			require.Greater(t, price, 0.0)

			iv := ImpliedVolatility(price, tc.S, tc.K, tc.T, r, tc.call, q, 1e-4, 100)
			assert.InDelta(t, tc.sigma, iv, 1e-3)
		})
	}
}

func TestImpliedVolatilityDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, ImpliedVolatility(5, 100, 100, 0, 0.05, true, 0, 1e-4, 100))
	assert.Equal(t, 0.0, ImpliedVolatility(0, 100, 100, 0.25, 0.05, true, 0, 1e-4, 100))
}

func TestImpliedVolatilityStaysClamped(t *testing.T) {
	// A price far above anything the model can produce drives the solver to
	// the upper clamp instead of diverging.
	iv := ImpliedVolatility(99, 100, 100, 0.1, 0.05, true, 0, 1e-4, 100)
	assert.LessOrEqual(t, iv, 5.0)
	assert.GreaterOrEqual(t, iv, 0.01)
}
