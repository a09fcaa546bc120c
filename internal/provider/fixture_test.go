package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
)

func TestFixtureProviderPositions(t *testing.T) {
	p := NewFixtureProvider("testdata/portfolio.json")
	ctx := context.Background()

	positions, err := p.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, instrument.KindEquity, positions[0].Kind)
	assert.Equal(t, 100.0, positions[0].Quantity)

	short := positions[1]
	assert.Equal(t, instrument.KindOption, short.Kind)
	require.NotNil(t, short.Option)
	assert.Equal(t, 160.0, short.Option.Strike)
	assert.True(t, short.Option.IsCall())
	assert.True(t, short.IsShort())
}

func TestFixtureProviderMarketData(t *testing.T) {
	p := NewFixtureProvider("testdata/portfolio.json")
	ctx := context.Background()

	positions, err := p.Positions(ctx)
	require.NoError(t, err)

	quotes, err := p.MarketData(ctx, positions)
	require.NoError(t, err)

	// Quotes for unknown contracts are filtered out.
	require.Len(t, quotes, 2)
	assert.NotContains(t, quotes, int64(999999))

	optQuote := quotes[724531880]
	require.NotNil(t, optQuote)
	iv, ok := optQuote.IV()
	require.True(t, ok)
	assert.Equal(t, 0.27, iv)
	underlying, ok := optQuote.Underlying()
	require.True(t, ok)
	assert.Equal(t, 155.25, underlying)

	// Returned quotes are copies; mutating one leaves the snapshot intact.
	optQuote.Bid = 0
	again, err := p.MarketData(ctx, positions)
	require.NoError(t, err)
	assert.Equal(t, 2.8, again[724531880].Bid)
}

func TestFixtureProviderAccountSummary(t *testing.T) {
	p := NewFixtureProvider("testdata/portfolio.json")

	summary, err := p.AccountSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DU1234567", summary.AccountID)
	assert.Equal(t, 125000.5, summary.NetLiquidation)
	assert.Equal(t, "USD", summary.Currency)
}

func TestFixtureProviderMissingFile(t *testing.T) {
	p := NewFixtureProvider("testdata/does-not-exist.json")

	_, err := p.Positions(context.Background())
	require.Error(t, err)
}

func TestFixtureProviderRejectsMalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")

	// Option position without its contract terms.
	bad := `{"positions":[{"symbol":"AAPL","kind":"OPT","contract_id":1,"quantity":1}]}`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	p := NewFixtureProvider(path)
	_, err := p.Positions(context.Background())
	require.Error(t, err)
}

func TestFixtureProviderCancelledContext(t *testing.T) {
	p := NewFixtureProvider("testdata/portfolio.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Positions(ctx)
	require.Error(t, err)
}
