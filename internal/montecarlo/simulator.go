package montecarlo

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/pricing"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

const tradingDaysPerYear = 252

// Simulator runs geometric-Brownian-motion portfolio simulations. It owns a
// private seeded RNG, so two simulators built with the same seed produce
// identical results regardless of anything else in the process.
type Simulator struct {
	config Config
	rng    *rand.Rand
	log    *logger.Logger
}

// NewSimulator validates the config and seeds the generator. A nil seed
// falls back to wall-clock nanoseconds.
func NewSimulator(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.DefaultVolatility <= 0 {
		config.DefaultVolatility = 0.25
	}

	seed := time.Now().UnixNano()
	if config.Seed != nil {
		seed = *config.Seed
	}

	s := &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		log:    logger.GetLogger("montecarlo.simulator"),
	}
	s.log.Infof("Simulator ready: %d paths, %d days, antithetic=%t", config.NumPaths, config.NumDays, config.Antithetic)
	return s, nil
}

// normal draws a standard normal variate via the Box-Muller transform.
func (s *Simulator) normal() float64 {
	u1 := s.rng.Float64()
	u2 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// drawInnovations fills a [numPaths][numDays] matrix of standard normals.
// With antithetic variates the second half mirrors the first, which halves
// the Monte Carlo error of symmetric payoffs for free; an odd path count
// gets one extra independent row.
func (s *Simulator) drawInnovations() [][]float64 {
	numPaths := s.config.NumPaths
	numDays := s.config.NumDays

	z := make([][]float64, numPaths)

	if !s.config.Antithetic {
		for i := range z {
			z[i] = make([]float64, numDays)
			for d := range z[i] {
				z[i][d] = s.normal()
			}
		}
		return z
	}

	half := numPaths / 2
	for i := 0; i < half; i++ {
		z[i] = make([]float64, numDays)
		z[half+i] = make([]float64, numDays)
		for d := 0; d < numDays; d++ {
			draw := s.normal()
			z[i][d] = draw
			z[half+i][d] = -draw
		}
	}
	if numPaths%2 == 1 {
		last := make([]float64, numDays)
		for d := range last {
			last[d] = s.normal()
		}
		z[numPaths-1] = last
	}
	return z
}

// pathsFromInnovations turns one asset's innovation matrix into price paths:
// S(t+1) = S(t) * exp((mu - sigma^2/2)dt + sigma*sqrt(dt)*Z). Day 0 is
// pinned to the spot.
func (s *Simulator) pathsFromInnovations(spot, volatility, drift float64, z [][]float64) [][]float64 {
	dt := 1.0 / tradingDaysPerYear
	dailyDrift := (drift - 0.5*volatility*volatility) * dt
	dailyVol := volatility * math.Sqrt(dt)

	paths := make([][]float64, len(z))
	for i, row := range z {
		path := make([]float64, len(row)+1)
		path[0] = spot
		cum := 0.0
		for d, innovation := range row {
			cum += dailyDrift + dailyVol*innovation
			path[d+1] = spot * math.Exp(cum)
		}
		paths[i] = path
	}
	return paths
}

// SimulatePricePaths simulates one asset under GBM with risk-neutral drift
// (risk-free rate minus the dividend yield). The returned matrix has
// NumDays+1 columns including day 0.
func (s *Simulator) SimulatePricePaths(spot, volatility, dividendYield float64) [][]float64 {
	drift := s.config.RiskFreeRate - dividendYield
	return s.pathsFromInnovations(spot, volatility, drift, s.drawInnovations())
}

// cholesky computes the lower-triangular factor of a correlation matrix. A
// matrix that is not positive definite has no factor and is rejected; risk
// runs must not proceed on a broken correlation input.
func cholesky(corr [][]float64) ([][]float64, error) {
	n := len(corr)
	for i, row := range corr {
		if len(row) != n {
			return nil, errors.InvalidArgumentf("correlation matrix is not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}

	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := corr[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, errors.InvalidArgumentf("correlation matrix is not positive definite (pivot %d)", i)
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, nil
}

// SimulateCorrelatedPrices simulates price paths for several assets whose
// daily innovations share the given correlation matrix. symbols fixes both
// the matrix row order and the draw order, keeping seeded runs reproducible.
// A nil matrix means independent assets.
func (s *Simulator) SimulateCorrelatedPrices(symbols []string, prices, volatilities map[string]float64, corr [][]float64) (map[string][][]float64, error) {
	n := len(symbols)
	if n == 0 {
		return map[string][][]float64{}, nil
	}

	var factor [][]float64
	if corr != nil {
		if len(corr) != n {
			return nil, errors.InvalidArgumentf("correlation matrix is %dx%d but portfolio has %d underlyings", len(corr), len(corr), n)
		}
		var err error
		factor, err = cholesky(corr)
		if err != nil {
			return nil, err
		}
	}

	// One innovation matrix per asset, drawn in symbol order.
	independent := make([][][]float64, n)
	for a := 0; a < n; a++ {
		independent[a] = s.drawInnovations()
	}

	correlated := independent
	if factor != nil {
		correlated = make([][][]float64, n)
		for a := 0; a < n; a++ {
			z := make([][]float64, s.config.NumPaths)
			for i := 0; i < s.config.NumPaths; i++ {
				z[i] = make([]float64, s.config.NumDays)
				for d := 0; d < s.config.NumDays; d++ {
					var sum float64
					for k := 0; k <= a; k++ {
						sum += factor[a][k] * independent[k][i][d]
					}
					z[i][d] = sum
				}
			}
			correlated[a] = z
		}
	}

	result := make(map[string][][]float64, n)
	for a, symbol := range symbols {
		vol := volatilities[symbol]
		if vol <= 0 {
			vol = s.config.DefaultVolatility
		}
		result[symbol] = s.pathsFromInnovations(prices[symbol], vol, s.config.RiskFreeRate, correlated[a])
	}
	return result, nil
}

// optionValuePaths reprices one option contract along the underlying paths.
// Days to expiry shrink with the simulation clock; at and past expiry the
// contract is worth intrinsic only.
func (s *Simulator) optionValuePaths(underlyingPaths [][]float64, strike float64, isCall bool, initialDTE int, volatility float64, positionSize float64, multiplier int) [][]float64 {
	scale := positionSize * float64(multiplier)

	values := make([][]float64, len(underlyingPaths))
	for i, path := range underlyingPaths {
		values[i] = make([]float64, len(path))
	}
	if len(underlyingPaths) == 0 {
		return values
	}

	numSteps := len(underlyingPaths[0])
	for day := 0; day < numSteps; day++ {
		dte := initialDTE - day
		if dte < 0 {
			dte = 0
		}
		timeToExpiry := float64(dte) / 365.0

		for i, path := range underlyingPaths {
			spot := path[day]
			if timeToExpiry <= 0 {
				intrinsic := spot - strike
				if !isCall {
					intrinsic = strike - spot
				}
				if intrinsic < 0 {
					intrinsic = 0
				}
				values[i][day] = intrinsic * scale
			} else {
				price := pricing.Price(spot, strike, timeToExpiry, s.config.RiskFreeRate, volatility, isCall, 0)
				values[i][day] = price * scale
			}
		}
	}
	return values
}

// SimulatePortfolio simulates the whole portfolio: underlying paths per
// symbol (correlated when a matrix is given), linear positions marked to the
// path, options repriced day by day. An empty portfolio yields a valid
// all-zero result.
func (s *Simulator) SimulatePortfolio(positions []instrument.Position, marketData map[int64]*instrument.MarketData, corr [][]float64) (*Result, error) {
	numPaths := s.config.NumPaths
	numSteps := s.config.NumDays + 1

	symbols := make([]string, 0)
	bySymbol := make(map[string][]*instrument.Position)
	prices := make(map[string]float64)
	vols := make(map[string]float64)

	for i := range positions {
		pos := &positions[i]
		if err := pos.Validate(); err != nil {
			return nil, errors.Wrapf(err, "simulating position %s", pos.Symbol)
		}

		if _, seen := bySymbol[pos.Symbol]; !seen {
			symbols = append(symbols, pos.Symbol)
		}
		bySymbol[pos.Symbol] = append(bySymbol[pos.Symbol], pos)

		var md *instrument.MarketData
		if marketData != nil {
			md = marketData[pos.ContractID]
		}

		if _, ok := prices[pos.Symbol]; !ok {
			prices[pos.Symbol] = s.underlyingPrice(pos, md)
		}

		// Per-underlying volatility is the highest quoted IV among its
		// options; symbols without quoted IV run at the default.
		if _, ok := vols[pos.Symbol]; !ok {
			vols[pos.Symbol] = s.config.DefaultVolatility
		}
		if pos.IsOptionLike() && md != nil {
			if iv, ok := md.IV(); ok && iv > vols[pos.Symbol] {
				vols[pos.Symbol] = iv
			}
		}
	}

	s.log.Infof("Simulating %d underlyings across %d positions", len(symbols), len(positions))

	pricePaths, err := s.SimulateCorrelatedPrices(symbols, prices, vols, corr)
	if err != nil {
		return nil, err
	}

	var initialValue float64
	for i := range positions {
		initialValue += math.Abs(positions[i].MarketValue)
	}

	portfolioPaths := make([][]float64, numPaths)
	for i := range portfolioPaths {
		portfolioPaths[i] = make([]float64, numSteps)
	}

	now := time.Now()
	for _, symbol := range symbols {
		underlyingPaths := pricePaths[symbol]

		for _, pos := range bySymbol[symbol] {
			switch {
			case pos.IsOptionLike():
				opt := pos.Option
				contribution := s.optionValuePaths(
					underlyingPaths, opt.Strike, opt.IsCall(),
					opt.DaysToExpiry(now), vols[symbol],
					pos.Quantity, opt.EffectiveMultiplier(),
				)
				for i := range portfolioPaths {
					for d := 0; d < numSteps; d++ {
						portfolioPaths[i][d] += contribution[i][d]
					}
				}

			default:
				// Linear instruments ride the path directly.
				delta := pos.Quantity
				if pos.Kind == instrument.KindFuture && pos.Future != nil && pos.Future.Multiplier > 0 {
					delta *= pos.Future.Multiplier
				}
				for i, path := range underlyingPaths {
					for d := 0; d < numSteps; d++ {
						portfolioPaths[i][d] += delta * path[d]
					}
				}
			}
		}
	}

	finalValues := make([]float64, numPaths)
	pnl := make([]float64, numPaths)
	returns := make([]float64, numPaths)
	for i, path := range portfolioPaths {
		finalValues[i] = path[numSteps-1]
		pnl[i] = finalValues[i] - initialValue
		if initialValue > 0 {
			returns[i] = pnl[i] / initialValue
		}
	}

	result := &Result{
		Config:         s.config,
		InitialValue:   initialValue,
		InitialPrices:  prices,
		PortfolioPaths: portfolioPaths,
		FinalValues:    finalValues,
		PNL:            pnl,
		Returns:        returns,
		Statistics:     s.computeStatistics(portfolioPaths, initialValue, finalValues, pnl, returns),
		Percentiles:    PercentilesFrom(finalValues),
	}
	result.DailyMean, result.DailyStd, result.DailyVaR95 = dailyAggregates(portfolioPaths)

	s.log.Infof("Simulation complete: initial=%.2f expectedPNL=%.2f var95=%.2f cvar95=%.2f sharpe=%.2f",
		initialValue, result.ExpectedPNL(), result.Statistics.VaR95, result.Statistics.CVaR95, result.Statistics.SharpeRatio)

	return result, nil
}

func (s *Simulator) underlyingPrice(pos *instrument.Position, md *instrument.MarketData) float64 {
	if md != nil {
		if pos.IsEquity() {
			if mid := md.Mid(); mid > 0 {
				return mid
			}
		}
		if u, ok := md.Underlying(); ok {
			return u
		}
	}
	if pos.MarketPrice > 0 {
		return pos.MarketPrice
	}
	return pos.AvgCost
}

func (s *Simulator) computeStatistics(paths [][]float64, initialValue float64, finalValues, pnl, returns []float64) Statistics {
	mean, std := meanStd(finalValues)

	sortedFinals := make([]float64, len(finalValues))
	copy(sortedFinals, finalValues)
	sort.Float64s(sortedFinals)

	p5 := percentileSorted(sortedFinals, 5)
	p1 := percentileSorted(sortedFinals, 1)

	stats := Statistics{
		Mean:     mean,
		Std:      std,
		MinValue: sortedFinals[0],
		MaxValue: sortedFinals[len(sortedFinals)-1],
		VaR95:    initialValue - p5,
		VaR99:    initialValue - p1,
		CVaR95:   initialValue - tailMean(sortedFinals, p5),
		CVaR99:   initialValue - tailMean(sortedFinals, p1),
	}

	// Drawdown on each path against its own running maximum.
	var maxDD, sumDD float64
	for _, path := range paths {
		runningMax := path[0]
		pathDD := 0.0
		for _, v := range path {
			if v > runningMax {
				runningMax = v
			}
			if runningMax > 0 {
				dd := (runningMax - v) / runningMax
				if dd > pathDD {
					pathDD = dd
				}
			}
		}
		if pathDD > maxDD {
			maxDD = pathDD
		}
		sumDD += pathDD
	}
	stats.MaxDrawdown = maxDD
	stats.AvgDrawdown = sumDD / float64(len(paths))

	var losses, gains int
	for _, p := range pnl {
		if p < 0 {
			losses++
		} else if p > 0 {
			gains++
		}
	}
	stats.ProbabilityLoss = float64(losses) / float64(len(pnl))
	stats.ProbabilityGain = float64(gains) / float64(len(pnl))

	var sumReturns float64
	for _, r := range returns {
		sumReturns += r
	}
	stats.ExpectedReturn = sumReturns / float64(len(returns))

	stats.SharpeRatio, stats.SortinoRatio = s.riskAdjustedRatios(paths)
	stats.Skewness, stats.Kurtosis = skewKurtosis(pnl)

	return stats
}

// riskAdjustedRatios computes annualized Sharpe and Sortino from the pooled
// daily path returns. Sortino uses only losing days in its denominator and
// degenerates to +Inf when a profitable book never has one.
func (s *Simulator) riskAdjustedRatios(paths [][]float64) (sharpe, sortino float64) {
	var daily []float64
	for _, path := range paths {
		for d := 1; d < len(path); d++ {
			prev := path[d-1]
			if prev != 0 {
				daily = append(daily, (path[d]-prev)/prev)
			}
		}
	}
	if len(daily) == 0 {
		return 0, 0
	}

	avg, std := meanStd(daily)
	annualization := math.Sqrt(float64(tradingDaysPerYear) / float64(s.config.NumDays))

	if std > 0 {
		sharpe = avg / std * annualization
	}

	var downside []float64
	for _, r := range daily {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 0 {
		_, downsideStd := meanStd(downside)
		if downsideStd > 0 {
			sortino = avg / downsideStd * annualization
		}
	} else if avg > 0 {
		sortino = math.Inf(1)
	}
	return sharpe, sortino
}

// StressTest reruns the simulation under shocked market snapshots. Scenario
// adjustments map symbols to fractional price shocks, with two reserved
// keys: "_all" shocks every symbol and "_vol_mult" scales every quoted IV.
func (s *Simulator) StressTest(positions []instrument.Position, marketData map[int64]*instrument.MarketData, scenarios map[string]map[string]float64) (map[string]*Result, error) {
	if scenarios == nil {
		scenarios = DefaultStressScenarios()
	}

	results := make(map[string]*Result, len(scenarios))
	for name, adjustments := range scenarios {
		s.log.Infof("Running stress scenario %s", name)

		shocked := applyScenario(marketData, adjustments)
		result, err := s.SimulatePortfolio(positions, shocked, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "stress scenario %s", name)
		}
		results[name] = result
	}
	return results, nil
}

// DefaultStressScenarios is the standard crash/rally/vol battery.
func DefaultStressScenarios() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"market_crash_10pct":  {"_all": -0.10},
		"market_crash_20pct":  {"_all": -0.20},
		"market_rally_10pct":  {"_all": 0.10},
		"volatility_spike":    {"_vol_mult": 1.5},
		"volatility_collapse": {"_vol_mult": 0.5},
	}
}

// applyScenario clones each quote and applies the shocks; the input
// snapshot is never mutated. Per-symbol shocks override "_all".
func applyScenario(marketData map[int64]*instrument.MarketData, adjustments map[string]float64) map[int64]*instrument.MarketData {
	if marketData == nil {
		return map[int64]*instrument.MarketData{}
	}

	allShock := adjustments["_all"]
	volMult, hasVolMult := adjustments["_vol_mult"]

	shocked := make(map[int64]*instrument.MarketData, len(marketData))
	for contractID, md := range marketData {
		clone := md.Clone()

		shock, ok := adjustments[md.Symbol]
		if !ok {
			shock = allShock
		}
		if shock != 0 {
			factor := 1 + shock
			clone.Bid = md.Bid * factor
			clone.Ask = md.Ask * factor
			clone.Last = md.Last * factor
			clone.Close = md.Close * factor
			if u, hit := md.Underlying(); hit {
				v := u * factor
				clone.UnderlyingPrice = &v
			}
		}

		if hasVolMult && volMult != 1.0 {
			if iv, hit := md.IV(); hit {
				v := iv * volMult
				clone.ImpliedVolatility = &v
			}
		}

		shocked[contractID] = clone
	}
	return shocked
}

// dailyAggregates reduces the path matrix to per-day mean, standard
// deviation, and 5th-percentile value.
func dailyAggregates(paths [][]float64) (dailyMean, dailyStd, dailyVaR95 []float64) {
	if len(paths) == 0 {
		return nil, nil, nil
	}
	numSteps := len(paths[0])
	dailyMean = make([]float64, numSteps)
	dailyStd = make([]float64, numSteps)
	dailyVaR95 = make([]float64, numSteps)

	column := make([]float64, len(paths))
	for d := 0; d < numSteps; d++ {
		for i, path := range paths {
			column[i] = path[d]
		}
		dailyMean[d], dailyStd[d] = meanStd(column)

		sorted := make([]float64, len(column))
		copy(sorted, column)
		sort.Float64s(sorted)
		dailyVaR95[d] = percentileSorted(sorted, 5)
	}
	return dailyMean, dailyStd, dailyVaR95
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// skewKurtosis returns the sample skewness and excess kurtosis. A
// zero-variance sample reports both as 0.
func skewKurtosis(values []float64) (skew, kurt float64) {
	mean, std := meanStd(values)
	if std == 0 || len(values) == 0 {
		return 0, 0
	}

	var m3, m4 float64
	for _, v := range values {
		d := v - mean
		m3 += d * d * d
		m4 += d * d * d * d
	}
	n := float64(len(values))
	m3 /= n
	m4 /= n

	skew = m3 / (std * std * std)
	kurt = m4/(std*std*std*std) - 3
	return skew, kurt
}

// tailMean averages the sorted sample at or below the threshold. The
// threshold itself came from the same sample, so the tail is never empty.
func tailMean(sorted []float64, threshold float64) float64 {
	var sum float64
	var count int
	for _, v := range sorted {
		if v > threshold {
			break
		}
		sum += v
		count++
	}
	if count == 0 {
		return sorted[0]
	}
	return sum / float64(count)
}
