package montecarlo

import (
	"math"
	"sort"

	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
)

// Config holds the simulation parameters. NumPaths and NumDays have hard
// bounds; a config outside them is rejected rather than silently clamped.
type Config struct {
	NumPaths          int     `json:"num_paths"`
	NumDays           int     `json:"num_days"`
	Seed              *int64  `json:"seed,omitempty"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	DefaultVolatility float64 `json:"default_volatility"`
	Antithetic        bool    `json:"antithetic"`
}

const (
	minPaths = 100
	maxPaths = 1_000_000
	minDays  = 1
	maxDays  = 365
)

// DefaultConfig returns the standard simulation setup: 10k antithetic paths
// over 30 trading days.
func DefaultConfig() Config {
	return Config{
		NumPaths:          10_000,
		NumDays:           30,
		RiskFreeRate:      0.05,
		DefaultVolatility: 0.25,
		Antithetic:        true,
	}
}

// Validate checks the path and horizon bounds.
func (c Config) Validate() error {
	if c.NumPaths < minPaths || c.NumPaths > maxPaths {
		return errors.InvalidArgumentf("num_paths %d outside [%d, %d]", c.NumPaths, minPaths, maxPaths)
	}
	if c.NumDays < minDays || c.NumDays > maxDays {
		return errors.InvalidArgumentf("num_days %d outside [%d, %d]", c.NumDays, minDays, maxDays)
	}
	return nil
}

// Percentiles is the standard ladder over final portfolio values.
type Percentiles struct {
	P1  float64 `json:"p1"`
	P5  float64 `json:"p5"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// PercentilesFrom computes the ladder from an unsorted sample.
func PercentilesFrom(values []float64) Percentiles {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Percentiles{
		P1:  percentileSorted(sorted, 1),
		P5:  percentileSorted(sorted, 5),
		P10: percentileSorted(sorted, 10),
		P25: percentileSorted(sorted, 25),
		P50: percentileSorted(sorted, 50),
		P75: percentileSorted(sorted, 75),
		P90: percentileSorted(sorted, 90),
		P95: percentileSorted(sorted, 95),
		P99: percentileSorted(sorted, 99),
	}
}

// percentileSorted interpolates linearly between order statistics, the same
// convention numpy and most risk systems use.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= n {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Statistics summarizes the terminal-value and path-level distribution of a
// simulation. VaR and CVaR follow the loss convention: positive numbers are
// losses relative to the initial value, and CVaR >= VaR at the same level.
type Statistics struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`

	VaR95  float64 `json:"var_95"`
	VaR99  float64 `json:"var_99"`
	CVaR95 float64 `json:"cvar_95"`
	CVaR99 float64 `json:"cvar_99"`

	MaxDrawdown float64 `json:"max_drawdown"`
	AvgDrawdown float64 `json:"avg_drawdown"`

	ProbabilityLoss float64 `json:"probability_loss"`
	ProbabilityGain float64 `json:"probability_gain"`
	ExpectedReturn  float64 `json:"expected_return"`

	// SharpeRatio and SortinoRatio are annualized from daily path returns.
	// SortinoRatio is +Inf when no path-day ever lost money.
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`

	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Result is the full output of one portfolio simulation. The per-path value
// matrix is kept for downstream analysis but excluded from serialization;
// the daily aggregates carry the path-level shape instead.
type Result struct {
	Config Config `json:"config"`

	InitialValue  float64            `json:"initial_value"`
	InitialPrices map[string]float64 `json:"initial_prices"`

	PortfolioPaths [][]float64 `json:"-"`

	FinalValues []float64 `json:"final_values"`
	PNL         []float64 `json:"pnl"`
	Returns     []float64 `json:"returns"`

	Statistics  Statistics  `json:"statistics"`
	Percentiles Percentiles `json:"percentiles"`

	DailyMean  []float64 `json:"daily_mean"`
	DailyStd   []float64 `json:"daily_std"`
	DailyVaR95 []float64 `json:"daily_var_95"`
}

// ExpectedPNL is the mean terminal value net of the starting value.
func (r *Result) ExpectedPNL() float64 {
	return r.Statistics.Mean - r.InitialValue
}

// Summary flattens the headline numbers for reports and publishing.
func (r *Result) Summary() map[string]float64 {
	return map[string]float64{
		"initial_value":        r.InitialValue,
		"expected_final_value": r.Statistics.Mean,
		"expected_pnl":         r.ExpectedPNL(),
		"expected_return_pct":  r.Statistics.ExpectedReturn * 100,
		"std_dev":              r.Statistics.Std,
		"var_95":               r.Statistics.VaR95,
		"var_99":               r.Statistics.VaR99,
		"cvar_95":              r.Statistics.CVaR95,
		"max_drawdown_pct":     r.Statistics.MaxDrawdown * 100,
		"prob_loss_pct":        r.Statistics.ProbabilityLoss * 100,
		"prob_gain_pct":        r.Statistics.ProbabilityGain * 100,
		"sharpe_ratio":         r.Statistics.SharpeRatio,
		"best_case_p95":        r.Percentiles.P95,
		"worst_case_p5":        r.Percentiles.P5,
	}
}
