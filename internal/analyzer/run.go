package analyzer

import (
	"time"

	"github.com/quantfolio/portfolio-analyzer/internal/advisor"
	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/internal/provider"
)

// Run is the complete output of one analysis: the portfolio snapshot it ran
// on plus every derived artifact. Stress results are stored as flattened
// summaries; the full simulation result is kept only for the base run.
type Run struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Account   *provider.AccountSummary `json:"account,omitempty"`
	Positions []instrument.Position    `json:"positions"`

	Greeks     *greeks.PortfolioGreeks `json:"greeks"`
	Simulation *montecarlo.Result      `json:"simulation"`

	// Scenarios is the Taylor P&L grid keyed by spot shock then IV shock.
	Scenarios map[string]map[string]float64 `json:"scenarios"`

	// HedgeSuggestions maps underlying symbols to share trades that would
	// flatten their delta.
	HedgeSuggestions map[string]float64 `json:"hedge_suggestions"`

	// StressSummaries holds per-scenario headline numbers from the stress
	// battery.
	StressSummaries map[string]map[string]float64 `json:"stress_summaries"`

	Advice *advisor.Advice `json:"advice"`
}

// Duration returns the wall-clock time the run took.
func (r *Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
