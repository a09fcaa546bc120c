package instrument

import (
	"time"

	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
)

// Kind identifies the instrument type of a position. Values mirror the
// security-type codes used by the brokerage feed.
type Kind string

const (
	KindEquity        Kind = "STK"
	KindOption        Kind = "OPT"
	KindFuture        Kind = "FUT"
	KindForex         Kind = "CASH"
	KindBond          Kind = "BOND"
	KindCFD           Kind = "CFD"
	KindFuturesOption Kind = "FOP"
	KindWarrant       Kind = "WAR"
	KindFund          Kind = "FUND"
	KindCrypto        Kind = "CRYPTO"
)

// Right distinguishes calls from puts.
type Right string

const (
	RightCall Right = "C"
	RightPut  Right = "P"
)

// OptionDetail holds option-specific contract terms.
type OptionDetail struct {
	Strike     float64   `json:"strike"`
	Right      Right     `json:"right"`
	Expiry     time.Time `json:"expiry"`
	Multiplier int       `json:"multiplier"`
}

// IsCall reports whether the option is a call.
func (o *OptionDetail) IsCall() bool {
	return o.Right == RightCall
}

// DaysToExpiry returns the whole days remaining until expiry, floored at 0.
func (o *OptionDetail) DaysToExpiry(now time.Time) int {
	days := int(o.Expiry.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// EffectiveMultiplier returns the contract multiplier, defaulting to 100.
func (o *OptionDetail) EffectiveMultiplier() int {
	if o.Multiplier <= 0 {
		return 100
	}
	return o.Multiplier
}

// FutureDetail holds futures-specific contract terms. The multiplier may be
// fractional (e.g. micro contracts).
type FutureDetail struct {
	Expiry        time.Time `json:"expiry"`
	Multiplier    float64   `json:"multiplier"`
	ContractMonth string    `json:"contract_month,omitempty"`
}

// ForexDetail identifies the currency pair of a cash position.
type ForexDetail struct {
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
}

// BondDetail holds bond-specific terms.
type BondDetail struct {
	Maturity  time.Time `json:"maturity"`
	Coupon    float64   `json:"coupon"`
	FaceValue float64   `json:"face_value"`
	Rating    string    `json:"rating,omitempty"`
}

// YearsToMaturity returns the remaining lifetime in years, floored at 0.
func (b *BondDetail) YearsToMaturity(now time.Time) float64 {
	years := b.Maturity.Sub(now).Hours() / (24 * 365)
	if years < 0 {
		return 0
	}
	return years
}

// Position represents a single brokerage position. At most one of the detail
// records is populated and it must match the declared kind; plain equities
// carry none.
type Position struct {
	Symbol        string  `json:"symbol"`
	Kind          Kind    `json:"kind"`
	ContractID    int64   `json:"contract_id"`
	Quantity      float64 `json:"quantity"`
	AvgCost       float64 `json:"avg_cost"`
	MarketPrice   float64 `json:"market_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPNL float64 `json:"unrealized_pnl"`
	RealizedPNL   float64 `json:"realized_pnl"`
	Currency      string  `json:"currency"`
	Exchange      string  `json:"exchange"`

	Option *OptionDetail `json:"option,omitempty"`
	Future *FutureDetail `json:"future,omitempty"`
	Forex  *ForexDetail  `json:"forex,omitempty"`
	Bond   *BondDetail   `json:"bond,omitempty"`
}

// IsOptionLike reports whether the position prices off an option contract
// (options, futures options, warrants).
func (p *Position) IsOptionLike() bool {
	switch p.Kind {
	case KindOption, KindFuturesOption, KindWarrant:
		return true
	}
	return false
}

// IsEquity reports whether the position is a plain stock.
func (p *Position) IsEquity() bool { return p.Kind == KindEquity }

// IsOption reports whether the position is a listed option.
func (p *Position) IsOption() bool { return p.Kind == KindOption }

// IsLong reports whether the position quantity is positive.
func (p *Position) IsLong() bool { return p.Quantity > 0 }

// IsShort reports whether the position quantity is negative.
func (p *Position) IsShort() bool { return p.Quantity < 0 }

// TotalCost returns the absolute cost basis of the position.
func (p *Position) TotalCost() float64 {
	abs := p.Quantity
	if abs < 0 {
		abs = -abs
	}
	return abs * p.AvgCost
}

// Validate checks the detail-record invariant: an option-like position must
// carry option terms with a positive strike, and a populated detail record
// must match the declared kind. Violations are data-provider contract
// errors and fail fast.
func (p *Position) Validate() error {
	if p.IsOptionLike() {
		if p.Option == nil {
			return errors.InvalidArgumentf("position %s (%s): missing option detail", p.Symbol, p.Kind)
		}
		if p.Option.Strike <= 0 {
			return errors.InvalidArgumentf("position %s (%s): non-positive strike %.4f", p.Symbol, p.Kind, p.Option.Strike)
		}
		if p.Option.Right != RightCall && p.Option.Right != RightPut {
			return errors.InvalidArgumentf("position %s (%s): invalid right %q", p.Symbol, p.Kind, p.Option.Right)
		}
	} else if p.Option != nil {
		return errors.InvalidArgumentf("position %s (%s): option detail on non-option kind", p.Symbol, p.Kind)
	}
	if p.Kind == KindBond && p.Bond == nil {
		return errors.InvalidArgumentf("position %s (BOND): missing bond detail", p.Symbol)
	}
	if p.Kind != KindBond && p.Bond != nil {
		return errors.InvalidArgumentf("position %s (%s): bond detail on non-bond kind", p.Symbol, p.Kind)
	}
	if p.Kind != KindFuture && p.Future != nil {
		return errors.InvalidArgumentf("position %s (%s): future detail on non-future kind", p.Symbol, p.Kind)
	}
	if p.Kind != KindForex && p.Forex != nil {
		return errors.InvalidArgumentf("position %s (%s): forex detail on non-forex kind", p.Symbol, p.Kind)
	}
	return nil
}
