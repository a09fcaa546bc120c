package greeks

import "github.com/quantfolio/portfolio-analyzer/internal/pricing"

// UnderlyingGreeks aggregates all positions sharing one underlying symbol.
type UnderlyingGreeks struct {
	Symbol                string         `json:"symbol"`
	UnderlyingPrice       float64        `json:"underlying_price"`
	PositionCount         int            `json:"position_count"`
	Greeks                pricing.Greeks `json:"greeks"`
	StockEquivalentShares float64        `json:"stock_equivalent_shares"`
}

// PortfolioGreeks holds portfolio-wide totals plus the per-underlying
// breakdown. Totals are only ever updated through AddUnderlying, which keeps
// them equal to the sum of the breakdown by construction.
type PortfolioGreeks struct {
	Totals       pricing.Greeks               `json:"totals"`
	ByUnderlying map[string]*UnderlyingGreeks `json:"by_underlying"`

	// WeightedAverageIV is the |vega$|-weighted implied volatility over all
	// option positions with a quoted IV. Weighting by absolute dollar vega
	// keeps short positions from cancelling their own weight.
	WeightedAverageIV float64 `json:"weighted_average_iv"`

	// WeightedDTE is the |market value|-weighted days-to-expiry over option
	// positions; NearestExpiryDays is the minimum, nil without options.
	WeightedDTE       float64 `json:"weighted_dte"`
	NearestExpiryDays *int    `json:"nearest_expiry_days,omitempty"`
}

// NewPortfolioGreeks returns an empty aggregate.
func NewPortfolioGreeks() *PortfolioGreeks {
	return &PortfolioGreeks{ByUnderlying: make(map[string]*UnderlyingGreeks)}
}

// AddUnderlying inserts a per-underlying aggregate and folds it into the
// totals in the same step.
func (pg *PortfolioGreeks) AddUnderlying(ug *UnderlyingGreeks) {
	pg.ByUnderlying[ug.Symbol] = ug
	pg.Totals = pg.Totals.Add(ug.Greeks)
}
