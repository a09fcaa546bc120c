package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
)

func fp(v float64) *float64 { return &v }

func TestOptionDetailDaysToExpiry(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	opt := &OptionDetail{Expiry: now.AddDate(0, 0, 30)}

	assert.Equal(t, 30, opt.DaysToExpiry(now))
	assert.Equal(t, 0, opt.DaysToExpiry(now.AddDate(0, 0, 45)), "past expiry floors at zero")
}

func TestOptionDetailEffectiveMultiplier(t *testing.T) {
	assert.Equal(t, 100, (&OptionDetail{}).EffectiveMultiplier())
	assert.Equal(t, 10, (&OptionDetail{Multiplier: 10}).EffectiveMultiplier())
}

func TestBondYearsToMaturity(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	bond := &BondDetail{Maturity: now.AddDate(5, 0, 0)}

	assert.InDelta(t, 5.0, bond.YearsToMaturity(now), 0.01)
	assert.Equal(t, 0.0, bond.YearsToMaturity(now.AddDate(10, 0, 0)))
}

func TestPositionPredicates(t *testing.T) {
	long := Position{Kind: KindEquity, Quantity: 100, AvgCost: 150}
	assert.True(t, long.IsEquity())
	assert.True(t, long.IsLong())
	assert.False(t, long.IsShort())
	assert.False(t, long.IsOptionLike())
	assert.Equal(t, 15_000.0, long.TotalCost())

	short := Position{Kind: KindFuturesOption, Quantity: -2, AvgCost: 3.5}
	assert.True(t, short.IsOptionLike())
	assert.False(t, short.IsOption())
	assert.True(t, short.IsShort())
	assert.Equal(t, 7.0, short.TotalCost())
}

func TestValidateDetailInvariant(t *testing.T) {
	expiry := time.Now().AddDate(0, 1, 0)

	valid := Position{
		Symbol:   "AAPL",
		Kind:     KindOption,
		Quantity: -1,
		Option:   &OptionDetail{Strike: 160, Right: RightCall, Expiry: expiry},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		pos  Position
	}{
		{"option without detail", Position{Symbol: "AAPL", Kind: KindOption}},
		{"non-positive strike", Position{Symbol: "AAPL", Kind: KindOption,
			Option: &OptionDetail{Strike: 0, Right: RightCall, Expiry: expiry}}},
		{"bad right", Position{Symbol: "AAPL", Kind: KindOption,
			Option: &OptionDetail{Strike: 160, Right: "X", Expiry: expiry}}},
		{"option detail on equity", Position{Symbol: "AAPL", Kind: KindEquity,
			Option: &OptionDetail{Strike: 160, Right: RightCall, Expiry: expiry}}},
		{"bond without detail", Position{Symbol: "T 4.5 31", Kind: KindBond}},
		{"bond detail on equity", Position{Symbol: "AAPL", Kind: KindEquity,
			Bond: &BondDetail{Maturity: expiry}}},
		{"future detail on equity", Position{Symbol: "AAPL", Kind: KindEquity,
			Future: &FutureDetail{Multiplier: 50}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pos.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
		})
	}
}

func TestMidFallbackChain(t *testing.T) {
	quoted := MarketData{Bid: 99, Ask: 101, Last: 97, Close: 95}
	assert.Equal(t, 100.0, quoted.Mid())

	lastOnly := MarketData{Last: 97, Close: 95}
	assert.Equal(t, 97.0, lastOnly.Mid())

	closeOnly := MarketData{Close: 95}
	assert.Equal(t, 95.0, closeOnly.Mid())
}

func TestSpread(t *testing.T) {
	md := MarketData{Bid: 99, Ask: 101}
	assert.Equal(t, 2.0, md.Spread())
	assert.InDelta(t, 2.0, md.SpreadPct(), 1e-9)

	oneSided := MarketData{Bid: 99}
	assert.Equal(t, 0.0, oneSided.Spread())
}

func TestOptionalFields(t *testing.T) {
	md := MarketData{}
	_, ok := md.IV()
	assert.False(t, ok)
	_, ok = md.Underlying()
	assert.False(t, ok)

	md.ImpliedVolatility = fp(0.27)
	md.UnderlyingPrice = fp(155)

	iv, ok := md.IV()
	require.True(t, ok)
	assert.Equal(t, 0.27, iv)

	u, ok := md.Underlying()
	require.True(t, ok)
	assert.Equal(t, 155.0, u)
}

func TestCloneIsDeep(t *testing.T) {
	oi := int64(1200)
	md := &MarketData{
		ContractID:        265598,
		Bid:               99,
		OpenInterest:      &oi,
		ImpliedVolatility: fp(0.27),
		UnderlyingPrice:   fp(155),
	}

	c := md.Clone()
	*c.ImpliedVolatility = 0.54
	*c.UnderlyingPrice = 140
	c.Bid = 50

	assert.Equal(t, 0.27, *md.ImpliedVolatility)
	assert.Equal(t, 155.0, *md.UnderlyingPrice)
	assert.Equal(t, 99.0, md.Bid)
}
