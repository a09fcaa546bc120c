package provider

import (
	"context"
	"encoding/json"
	"os"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// fixtureFile is the on-disk snapshot format.
type fixtureFile struct {
	AccountSummary *AccountSummary          `json:"account_summary"`
	Positions      []instrument.Position    `json:"positions"`
	MarketData     []*instrument.MarketData `json:"market_data"`
}

// FixtureProvider serves a portfolio snapshot recorded to a JSON file. It is
// the offline stand-in for a live brokerage session: analysis runs, reports
// and the API behave identically on recorded and live data.
type FixtureProvider struct {
	path string
	log  *logger.Logger

	loaded  bool
	fixture fixtureFile
}

// NewFixtureProvider creates a provider for the given snapshot file. The
// file is read lazily on first use.
func NewFixtureProvider(path string) *FixtureProvider {
	return &FixtureProvider{
		path: path,
		log:  logger.GetLogger("provider.fixture"),
	}
}

func (p *FixtureProvider) load() error {
	if p.loaded {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return errors.Wrapf(err, "reading portfolio snapshot %s", p.path)
	}
	if err := json.Unmarshal(data, &p.fixture); err != nil {
		return errors.Wrapf(err, "parsing portfolio snapshot %s", p.path)
	}

	for i := range p.fixture.Positions {
		if err := p.fixture.Positions[i].Validate(); err != nil {
			return errors.Wrapf(err, "snapshot %s", p.path)
		}
	}

	p.loaded = true
	p.log.Infof("Loaded snapshot %s: %d positions, %d quotes", p.path, len(p.fixture.Positions), len(p.fixture.MarketData))
	return nil
}

// Positions implements Provider.
func (p *FixtureProvider) Positions(ctx context.Context) ([]instrument.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.load(); err != nil {
		return nil, err
	}

	positions := make([]instrument.Position, len(p.fixture.Positions))
	copy(positions, p.fixture.Positions)
	return positions, nil
}

// MarketData implements Provider. Quotes are keyed by contract ID; only
// quotes matching a requested position are returned.
func (p *FixtureProvider) MarketData(ctx context.Context, positions []instrument.Position) (map[int64]*instrument.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.load(); err != nil {
		return nil, err
	}

	wanted := make(map[int64]bool, len(positions))
	for i := range positions {
		wanted[positions[i].ContractID] = true
	}

	quotes := make(map[int64]*instrument.MarketData)
	for _, md := range p.fixture.MarketData {
		if wanted[md.ContractID] {
			quotes[md.ContractID] = md.Clone()
		}
	}
	return quotes, nil
}

// AccountSummary implements Provider.
func (p *FixtureProvider) AccountSummary(ctx context.Context) (*AccountSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	if p.fixture.AccountSummary == nil {
		return nil, errors.NotFound("snapshot has no account summary")
	}

	summary := *p.fixture.AccountSummary
	return &summary, nil
}
