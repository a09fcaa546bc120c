package greeks

import (
	"fmt"
	"math"
	"time"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/pricing"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// defaultSpot is the last-resort spot price when neither quotes nor the
// position record carry a usable one.
const defaultSpot = 100.0

// CalculatorConfig holds the market assumptions for Greeks calculation.
type CalculatorConfig struct {
	RiskFreeRate      float64
	DefaultVolatility float64
	DividendYield     float64
	HedgeThreshold    float64
}

// Calculator computes per-position and portfolio-wide Greeks across all
// supported instrument kinds.
type Calculator struct {
	config CalculatorConfig
	log    *logger.Logger
}

// NewCalculator creates a Greeks calculator, filling unset config fields
// with defaults (5% rate, 25% volatility, 0.5-share hedge threshold).
func NewCalculator(config CalculatorConfig) *Calculator {
	if config.DefaultVolatility <= 0 {
		config.DefaultVolatility = 0.25
	}
	if config.HedgeThreshold <= 0 {
		config.HedgeThreshold = 0.5
	}
	return &Calculator{
		config: config,
		log:    logger.GetLogger("greeks.calculator"),
	}
}

// OptionGreeks computes position-scaled Greeks for a single option contract.
// Expired contracts (expiryDays <= 0) collapse to the intrinsic indicator
// delta with every other sensitivity at 0, matching the pricing engine's
// expiry boundary.
func (c *Calculator) OptionGreeks(spot, strike float64, expiryDays int, volatility float64, isCall bool, positionSize float64, multiplier int) pricing.Greeks {
	if expiryDays <= 0 {
		intrinsicDelta := 0.0
		if (isCall && spot > strike) || (!isCall && spot < strike) {
			intrinsicDelta = 1.0
		}
		scale := positionSize * float64(multiplier)
		return pricing.Greeks{
			Delta:        intrinsicDelta * scale,
			DeltaDollars: intrinsicDelta * scale * spot,
		}
	}

	vol := volatility
	if vol <= 0 {
		vol = c.config.DefaultVolatility
	}

	return pricing.AllGreeks(
		spot, strike, float64(expiryDays)/365.0,
		c.config.RiskFreeRate, vol, isCall, c.config.DividendYield,
		positionSize, multiplier,
	)
}

// linearGreeks is the delta-only contribution of cash-like instruments.
func linearGreeks(spot, delta float64) pricing.Greeks {
	return pricing.Greeks{Delta: delta, DeltaDollars: delta * spot}
}

// bondGreeks approximates rate sensitivity with a duration proxy: a 1% rate
// move shifts the price by roughly -duration%. Delta keeps the raw position
// for accounting. The duration estimate is a deliberate placeholder, not a
// fitted model.
func bondGreeks(marketPrice, positionSize, duration float64) pricing.Greeks {
	marketValue := marketPrice * positionSize
	return pricing.Greeks{
		Delta:        positionSize,
		Rho:          -duration * marketValue / 100,
		DeltaDollars: marketValue,
	}
}

// PositionGreeks computes the Greeks contribution of one position, selecting
// the pricing rule by instrument kind. A malformed position (option-like
// without option terms) is a data-provider contract violation and fails.
func (c *Calculator) PositionGreeks(pos *instrument.Position, md *instrument.MarketData) (pricing.Greeks, error) {
	if err := pos.Validate(); err != nil {
		return pricing.Greeks{}, err
	}

	spot := c.spotPrice(pos, md)

	switch pos.Kind {
	case instrument.KindEquity, instrument.KindFund, instrument.KindCrypto, instrument.KindCFD:
		return linearGreeks(spot, pos.Quantity), nil

	case instrument.KindFuture:
		multiplier := 1.0
		if pos.Future != nil && pos.Future.Multiplier > 0 {
			multiplier = pos.Future.Multiplier
		}
		return linearGreeks(spot, pos.Quantity*multiplier), nil

	case instrument.KindForex:
		return linearGreeks(spot, pos.Quantity), nil

	case instrument.KindOption, instrument.KindFuturesOption, instrument.KindWarrant:
		return c.optionPositionGreeks(pos, md, spot), nil

	case instrument.KindBond:
		duration := 5.0
		if pos.Bond != nil {
			years := pos.Bond.YearsToMaturity(time.Now())
			duration = math.Min(years*0.8, 10.0)
		}
		return bondGreeks(spot, pos.Quantity, duration), nil

	default:
		c.log.Warnf("Unknown instrument kind %q for %s, falling back to unit delta", pos.Kind, pos.Symbol)
		return linearGreeks(spot, pos.Quantity), nil
	}
}

// spotPrice resolves the working spot for a position: quote mid, quoted
// underlying price, the position's own mark, average cost, then the
// documented default. Missing quotes degrade the estimate, never the run.
func (c *Calculator) spotPrice(pos *instrument.Position, md *instrument.MarketData) float64 {
	if md != nil {
		if mid := md.Mid(); mid > 0 {
			return mid
		}
		if underlying, ok := md.Underlying(); ok {
			return underlying
		}
	}
	if pos.MarketPrice > 0 {
		return pos.MarketPrice
	}
	if pos.AvgCost > 0 {
		return pos.AvgCost
	}
	return defaultSpot
}

func (c *Calculator) optionPositionGreeks(pos *instrument.Position, md *instrument.MarketData, spot float64) pricing.Greeks {
	opt := pos.Option

	// Prefer the quoted underlying price; the option's own mid is only a
	// rough stand-in.
	underlyingSpot := spot
	if md != nil {
		if u, ok := md.Underlying(); ok {
			underlyingSpot = u
		}
	}

	volatility := c.config.DefaultVolatility
	if md != nil {
		if iv, ok := md.IV(); ok {
			volatility = iv
		}
	}

	return c.OptionGreeks(
		underlyingSpot, opt.Strike, opt.DaysToExpiry(time.Now()),
		volatility, opt.IsCall(), pos.Quantity, opt.EffectiveMultiplier(),
	)
}

// PortfolioGreeks aggregates Greeks across all positions, grouped by
// underlying symbol. marketData maps contract IDs to quotes and may be nil
// or sparse. An empty position list yields zero-valued aggregates.
func (c *Calculator) PortfolioGreeks(positions []instrument.Position, marketData map[int64]*instrument.MarketData) (*PortfolioGreeks, error) {
	portfolio := NewPortfolioGreeks()

	type entry struct {
		pos    *instrument.Position
		greeks pricing.Greeks
		md     *instrument.MarketData
	}
	groups := make(map[string][]entry)
	order := make([]string, 0)

	now := time.Now()

	for i := range positions {
		pos := &positions[i]
		var md *instrument.MarketData
		if marketData != nil {
			md = marketData[pos.ContractID]
		}

		g, err := c.PositionGreeks(pos, md)
		if err != nil {
			return nil, errors.Wrapf(err, "greeks for position %s", pos.Symbol)
		}

		if _, seen := groups[pos.Symbol]; !seen {
			order = append(order, pos.Symbol)
		}
		groups[pos.Symbol] = append(groups[pos.Symbol], entry{pos, g, md})
	}

	var (
		vegaWeightedIV   float64
		totalAbsVega     float64
		valueWeightedDTE float64
		totalOptionValue float64
		minDTE           *int
	)

	for _, symbol := range order {
		group := groups[symbol]

		var aggregated pricing.Greeks
		var underlyingPrice float64

		for _, e := range group {
			aggregated = aggregated.Add(e.greeks)

			if e.md != nil {
				if e.pos.IsEquity() {
					underlyingPrice = e.md.Mid()
				} else if u, ok := e.md.Underlying(); ok {
					underlyingPrice = u
				}
			}

			if !e.pos.IsOptionLike() || e.pos.Option == nil {
				continue
			}

			if e.md != nil {
				if iv, ok := e.md.IV(); ok {
					absVega := math.Abs(e.greeks.VegaDollars)
					vegaWeightedIV += iv * absVega
					totalAbsVega += absVega
				}
			}

			dte := e.pos.Option.DaysToExpiry(now)
			optionValue := math.Abs(e.pos.MarketValue)
			if minDTE == nil || dte < *minDTE {
				d := dte
				minDTE = &d
			}
			valueWeightedDTE += float64(dte) * optionValue
			totalOptionValue += optionValue
		}

		portfolio.AddUnderlying(&UnderlyingGreeks{
			Symbol:                symbol,
			UnderlyingPrice:       underlyingPrice,
			PositionCount:         len(group),
			Greeks:                aggregated,
			StockEquivalentShares: aggregated.Delta,
		})
	}

	if totalAbsVega > 0 {
		portfolio.WeightedAverageIV = vegaWeightedIV / totalAbsVega
	}
	if totalOptionValue > 0 {
		portfolio.WeightedDTE = valueWeightedDTE / totalOptionValue
	}
	portfolio.NearestExpiryDays = minDTE

	c.log.Infof("Portfolio Greeks: delta=%.2f delta$=%.2f theta$=%.2f/day vega$=%.2f across %d underlyings",
		portfolio.Totals.Delta, portfolio.Totals.DeltaDollars,
		portfolio.Totals.ThetaDollars, portfolio.Totals.VegaDollars,
		len(portfolio.ByUnderlying))

	return portfolio, nil
}

// DeltaHedge suggests per-underlying share trades that move each
// underlying's delta to the target. Trades below the hedge threshold are
// suppressed as noise.
func (c *Calculator) DeltaHedge(portfolio *PortfolioGreeks, targetDelta float64) map[string]float64 {
	trades := make(map[string]float64)

	for symbol, ug := range portfolio.ByUnderlying {
		toHedge := targetDelta - ug.Greeks.Delta
		if math.Abs(toHedge) > c.config.HedgeThreshold {
			trades[symbol] = math.Round(toHedge)
		}
	}

	return trades
}

// ScenarioAnalysis estimates portfolio P&L over a grid of spot and IV
// shocks using a second-order Taylor expansion of the current Greeks. This
// is a fast local approximation; it diverges from full repricing for large
// shocks by construction.
func (c *Calculator) ScenarioAnalysis(positions []instrument.Position, marketData map[int64]*instrument.MarketData, spotShocks, ivShocks []float64) (map[string]map[string]float64, error) {
	if len(spotShocks) == 0 {
		spotShocks = []float64{-10, -5, -2, 0, 2, 5, 10}
	}
	if len(ivShocks) == 0 {
		ivShocks = []float64{-20, -10, 0, 10, 20}
	}

	base, err := c.PortfolioGreeks(positions, marketData)
	if err != nil {
		return nil, err
	}

	results := make(map[string]map[string]float64, len(spotShocks))

	for _, spotPct := range spotShocks {
		spotKey := fmt.Sprintf("spot_%+.0f%%", spotPct)
		results[spotKey] = make(map[string]float64, len(ivShocks))

		for _, ivPct := range ivShocks {
			ivKey := fmt.Sprintf("iv_%+.0f%%", ivPct)

			deltaPNL := base.Totals.DeltaDollars * (spotPct / 100)
			gammaPNL := 0.5 * base.Totals.GammaDollars * spotPct * spotPct
			vegaPNL := base.Totals.VegaDollars * (ivPct / 100)

			results[spotKey][ivKey] = deltaPNL + gammaPNL + vegaPNL
		}
	}

	return results, nil
}
