package instrument

import "time"

// MarketData is a quote snapshot for a single contract. Optional fields use
// pointers so that absence is distinguishable from zero.
type MarketData struct {
	ContractID        int64     `json:"contract_id"`
	Symbol            string    `json:"symbol"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	Last              float64   `json:"last"`
	Close             float64   `json:"close"`
	High              float64   `json:"high"`
	Low               float64   `json:"low"`
	Volume            int64     `json:"volume"`
	OpenInterest      *int64    `json:"open_interest,omitempty"`
	ImpliedVolatility *float64  `json:"implied_volatility,omitempty"`
	UnderlyingPrice   *float64  `json:"underlying_price,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Mid returns the bid/ask midpoint when both sides are quoted, otherwise the
// last trade, otherwise the previous close.
func (m *MarketData) Mid() float64 {
	if m.Bid > 0 && m.Ask > 0 {
		return (m.Bid + m.Ask) / 2
	}
	if m.Last > 0 {
		return m.Last
	}
	return m.Close
}

// Spread returns the bid/ask spread, or 0 when one side is missing.
func (m *MarketData) Spread() float64 {
	if m.Bid > 0 && m.Ask > 0 {
		return m.Ask - m.Bid
	}
	return 0
}

// SpreadPct returns the spread as a percentage of the mid price.
func (m *MarketData) SpreadPct() float64 {
	mid := m.Mid()
	if mid > 0 {
		return m.Spread() / mid * 100
	}
	return 0
}

// IV returns the quoted implied volatility when present and positive.
func (m *MarketData) IV() (float64, bool) {
	if m.ImpliedVolatility != nil && *m.ImpliedVolatility > 0 {
		return *m.ImpliedVolatility, true
	}
	return 0, false
}

// Underlying returns the quoted underlying price when present and positive.
func (m *MarketData) Underlying() (float64, bool) {
	if m.UnderlyingPrice != nil && *m.UnderlyingPrice > 0 {
		return *m.UnderlyingPrice, true
	}
	return 0, false
}

// Clone returns a deep copy of the quote. Stress scenarios shock copies,
// never the snapshot itself.
func (m *MarketData) Clone() *MarketData {
	c := *m
	if m.OpenInterest != nil {
		v := *m.OpenInterest
		c.OpenInterest = &v
	}
	if m.ImpliedVolatility != nil {
		v := *m.ImpliedVolatility
		c.ImpliedVolatility = &v
	}
	if m.UnderlyingPrice != nil {
		v := *m.UnderlyingPrice
		c.UnderlyingPrice = &v
	}
	return &c
}
