package greeks

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
)

func f64(v float64) *float64 { return &v }

func newCalculator() *Calculator {
	return NewCalculator(CalculatorConfig{
		RiskFreeRate:      0.05,
		DefaultVolatility: 0.25,
	})
}

func equityPosition(symbol string, qty, price float64) instrument.Position {
	return instrument.Position{
		Symbol:      symbol,
		Kind:        instrument.KindEquity,
		ContractID:  1,
		Quantity:    qty,
		MarketPrice: price,
		MarketValue: qty * price,
		Currency:    "USD",
	}
}

func callPosition(symbol string, qty, strike float64, dte int) instrument.Position {
	return instrument.Position{
		Symbol:     symbol,
		Kind:       instrument.KindOption,
		ContractID: 2,
		Quantity:   qty,
		Currency:   "USD",
		Option: &instrument.OptionDetail{
			Strike:     strike,
			Right:      instrument.RightCall,
			Expiry:     time.Now().Add(time.Duration(dte)*24*time.Hour + time.Hour),
			Multiplier: 100,
		},
	}
}

func TestSingleLongEquity(t *testing.T) {
	calc := newCalculator()

	positions := []instrument.Position{equityPosition("AAPL", 100, 155)}
	pg, err := calc.PortfolioGreeks(positions, nil)
	require.NoError(t, err)

	assert.Equal(t, 100.0, pg.Totals.Delta)
	assert.Equal(t, 15500.0, pg.Totals.DeltaDollars)
	assert.Equal(t, 0.0, pg.Totals.Gamma)
	assert.Equal(t, 0.0, pg.Totals.Theta)
	assert.Equal(t, 0.0, pg.Totals.Vega)
	assert.Equal(t, 0.0, pg.Totals.Rho)
	assert.Equal(t, 0.0, pg.Totals.VegaDollars)

	require.Contains(t, pg.ByUnderlying, "AAPL")
	assert.Equal(t, 1, pg.ByUnderlying["AAPL"].PositionCount)
	assert.Nil(t, pg.NearestExpiryDays)
}

func TestCallOptionPosition(t *testing.T) {
	calc := newCalculator()

	pos := callPosition("AAPL", 5, 160, 30)
	md := map[int64]*instrument.MarketData{
		2: {
			ContractID:        2,
			Symbol:            "AAPL",
			Bid:               2.5,
			Ask:               2.7,
			ImpliedVolatility: f64(0.25),
			UnderlyingPrice:   f64(155),
		},
	}

	pg, err := calc.PortfolioGreeks([]instrument.Position{pos}, md)
	require.NoError(t, err)

	assert.Greater(t, pg.Totals.GammaDollars, 0.0)
	assert.Less(t, pg.Totals.ThetaDollars, 0.0)
	assert.Greater(t, pg.Totals.VegaDollars, 0.0)
	assert.Less(t, math.Abs(pg.Totals.Delta), 500.0)
	assert.Greater(t, pg.Totals.Delta, 0.0)

	require.NotNil(t, pg.NearestExpiryDays)
	assert.Equal(t, 30, *pg.NearestExpiryDays)
	assert.InDelta(t, 0.25, pg.WeightedAverageIV, 1e-9)
}

func TestPositionScalingLinearity(t *testing.T) {
	calc := newCalculator()
	md := map[int64]*instrument.MarketData{
		2: {ContractID: 2, ImpliedVolatility: f64(0.30), UnderlyingPrice: f64(155)},
	}

	one, err := calc.PortfolioGreeks([]instrument.Position{callPosition("AAPL", 1, 160, 30)}, md)
	require.NoError(t, err)
	two, err := calc.PortfolioGreeks([]instrument.Position{callPosition("AAPL", 2, 160, 30)}, md)
	require.NoError(t, err)
	short, err := calc.PortfolioGreeks([]instrument.Position{callPosition("AAPL", -2, 160, 30)}, md)
	require.NoError(t, err)

	assert.InDelta(t, one.Totals.Delta*2, two.Totals.Delta, 1e-9)
	assert.InDelta(t, one.Totals.VegaDollars*2, two.Totals.VegaDollars, 1e-9)
	assert.InDelta(t, -two.Totals.Delta, short.Totals.Delta, 1e-9)
	assert.InDelta(t, -two.Totals.ThetaDollars, short.Totals.ThetaDollars, 1e-9)
}

func TestAggregationConsistency(t *testing.T) {
	calc := newCalculator()

	positions := []instrument.Position{
		equityPosition("AAPL", 100, 155),
		callPosition("AAPL", 5, 160, 30),
		equityPosition("MSFT", -50, 400),
		callPosition("SPY", -2, 450, 45),
		{
			Symbol: "ES", Kind: instrument.KindFuture, ContractID: 7,
			Quantity: 2, MarketPrice: 5000,
			Future: &instrument.FutureDetail{Multiplier: 50},
		},
	}
	md := map[int64]*instrument.MarketData{
		2: {ContractID: 2, ImpliedVolatility: f64(0.25), UnderlyingPrice: f64(155)},
	}

	pg, err := calc.PortfolioGreeks(positions, md)
	require.NoError(t, err)

	var sum float64
	var sumTheta float64
	for _, ug := range pg.ByUnderlying {
		sum += ug.Greeks.Delta
		sumTheta += ug.Greeks.ThetaDollars
	}
	assert.InDelta(t, pg.Totals.Delta, sum, 1e-9)
	assert.InDelta(t, pg.Totals.ThetaDollars, sumTheta, 1e-9)

	// Futures: size x multiplier delta.
	assert.InDelta(t, 100.0, pg.ByUnderlying["ES"].Greeks.Delta, 1e-9)
}

func TestExpiredOptionIndicatorDelta(t *testing.T) {
	calc := newCalculator()

	itm := calc.OptionGreeks(110, 100, 0, 0.25, true, 1, 100)
	assert.Equal(t, 100.0, itm.Delta)
	assert.Equal(t, 0.0, itm.Gamma)
	assert.Equal(t, 0.0, itm.ThetaDollars)
	assert.Equal(t, 11000.0, itm.DeltaDollars)

	otm := calc.OptionGreeks(90, 100, 0, 0.25, true, 1, 100)
	assert.Equal(t, 0.0, otm.Delta)

	shortPut := calc.OptionGreeks(90, 100, 0, 0.25, false, -1, 100)
	assert.Equal(t, 100.0, shortPut.Delta)
}

func TestBondDurationProxy(t *testing.T) {
	calc := newCalculator()

	pos := instrument.Position{
		Symbol: "T-2030", Kind: instrument.KindBond, ContractID: 9,
		Quantity: 10, MarketPrice: 98,
		Bond: &instrument.BondDetail{
			Maturity:  time.Now().AddDate(5, 0, 0),
			Coupon:    0.04,
			FaceValue: 100,
		},
	}

	g, err := calc.PositionGreeks(&pos, nil)
	require.NoError(t, err)

	// ~5y maturity caps duration at 0.8*5 = 4; rho = -4 * 980 / 100.
	assert.InDelta(t, -39.2, g.Rho, 0.2)
	assert.Equal(t, 10.0, g.Delta)
	assert.Equal(t, 0.0, g.Vega)
}

func TestMissingOptionDetailFailsFast(t *testing.T) {
	calc := newCalculator()

	bad := instrument.Position{Symbol: "AAPL", Kind: instrument.KindOption, Quantity: 1}
	_, err := calc.PortfolioGreeks([]instrument.Position{bad}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestUnknownKindFallsBack(t *testing.T) {
	calc := newCalculator()

	odd := instrument.Position{Symbol: "XYZ", Kind: "MYSTERY", Quantity: 42, MarketPrice: 10}
	g, err := calc.PositionGreeks(&odd, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, g.Delta)
	assert.Equal(t, 420.0, g.DeltaDollars)
}

func TestEmptyPortfolio(t *testing.T) {
	calc := newCalculator()

	pg, err := calc.PortfolioGreeks(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pg.Totals.Delta)
	assert.Empty(t, pg.ByUnderlying)
}

func TestSpotResolutionOrder(t *testing.T) {
	calc := newCalculator()

	pos := equityPosition("AAPL", 10, 150)

	// Quote mid wins over the position mark.
	md := &instrument.MarketData{Bid: 154, Ask: 156}
	assert.Equal(t, 155.0, calc.spotPrice(&pos, md))

	// No usable quote: position mark.
	assert.Equal(t, 150.0, calc.spotPrice(&pos, nil))

	// No mark: average cost, then the default.
	pos.MarketPrice = 0
	pos.AvgCost = 140
	assert.Equal(t, 140.0, calc.spotPrice(&pos, nil))
	pos.AvgCost = 0
	assert.Equal(t, defaultSpot, calc.spotPrice(&pos, nil))
}

func TestDeltaHedge(t *testing.T) {
	calc := newCalculator()

	pg, err := calc.PortfolioGreeks([]instrument.Position{
		equityPosition("AAPL", 100, 155),
		equityPosition("MSFT", 0.3, 400), // below the hedge threshold
	}, nil)
	require.NoError(t, err)

	trades := calc.DeltaHedge(pg, 0)
	assert.Equal(t, -100.0, trades["AAPL"])
	assert.NotContains(t, trades, "MSFT")
}

func TestScenarioAnalysisLongEquity(t *testing.T) {
	calc := newCalculator()

	positions := []instrument.Position{equityPosition("AAPL", 100, 155)}
	grid, err := calc.ScenarioAnalysis(positions, nil, []float64{-10, 0, 10}, []float64{0})
	require.NoError(t, err)

	// Pure delta book: P&L is linear in the spot shock, IV shocks are inert.
	assert.InDelta(t, -1550.0, grid["spot_-10%"]["iv_+0%"], 1e-6)
	assert.InDelta(t, 0.0, grid["spot_+0%"]["iv_+0%"], 1e-6)
	assert.InDelta(t, 1550.0, grid["spot_+10%"]["iv_+0%"], 1e-6)
}
