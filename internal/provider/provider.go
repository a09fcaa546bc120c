package provider

import (
	"context"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
)

// AccountSummary is the broker-level account snapshot.
type AccountSummary struct {
	AccountID          string  `json:"account_id"`
	NetLiquidation     float64 `json:"net_liquidation"`
	TotalCash          float64 `json:"total_cash"`
	BuyingPower        float64 `json:"buying_power"`
	GrossPositionValue float64 `json:"gross_position_value"`
	MaintenanceMargin  float64 `json:"maintenance_margin"`
	ExcessLiquidity    float64 `json:"excess_liquidity"`
	Currency           string  `json:"currency"`
}

// Provider supplies portfolio state to the analyzer. Implementations may be
// backed by a live brokerage session or a recorded snapshot.
type Provider interface {
	// Positions returns every open position in the account.
	Positions(ctx context.Context) ([]instrument.Position, error)

	// MarketData returns quote snapshots keyed by contract ID for the given
	// positions. Contracts without a quote are simply absent from the map.
	MarketData(ctx context.Context, positions []instrument.Position) (map[int64]*instrument.MarketData, error)

	// AccountSummary returns the account snapshot.
	AccountSummary(ctx context.Context) (*AccountSummary, error)
}
