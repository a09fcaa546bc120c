package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-analyzer/internal/advisor"
	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/internal/pricing"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	failWith error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleRun() *analyzer.Run {
	pg := greeks.NewPortfolioGreeks()
	pg.AddUnderlying(&greeks.UnderlyingGreeks{
		Symbol: "AAPL",
		Greeks: pricing.Greeks{Delta: 70, DeltaDollars: 10_850, ThetaDollars: -12},
	})

	return &analyzer.Run{
		ID:          "run-abc",
		StartedAt:   time.Now().Add(-2 * time.Second),
		CompletedAt: time.Now(),
		Positions: []instrument.Position{
			{Symbol: "AAPL", Kind: instrument.KindEquity, Quantity: 100},
		},
		Greeks: pg,
		Simulation: &montecarlo.Result{
			InitialValue: 15_785,
			Statistics: montecarlo.Statistics{
				Mean:   15_900,
				VaR95:  1_200,
				VaR99:  1_900,
				CVaR95: 1_500,
			},
		},
		Advice: &advisor.Advice{
			RiskAssessment: advisor.RiskAssessment{
				OverallLevel: advisor.RiskMedium,
				RiskScore:    45,
			},
		},
	}
}

func TestPublishRun(t *testing.T) {
	writer := &fakeWriter{}
	p := &Publisher{writer: writer, topic: "portfolio.runs", log: logger.GetLogger("test.publish")}

	require.NoError(t, p.PublishRun(context.Background(), sampleRun()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "run-abc", string(msg.Key))

	var summary RunSummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary))
	assert.Equal(t, "run-abc", summary.RunID)
	assert.Equal(t, 1, summary.PositionCount)
	assert.Equal(t, 15_785.0, summary.InitialValue)
	assert.InDelta(t, 115.0, summary.ExpectedPNL, 1e-9)
	assert.Equal(t, 1_200.0, summary.VaR95)
	assert.Equal(t, "medium", summary.RiskLevel)
	assert.Equal(t, 45, summary.RiskScore)
}

func TestPublishRunWriterFailure(t *testing.T) {
	writer := &fakeWriter{failWith: errors.Internal("broker unreachable")}
	p := &Publisher{writer: writer, topic: "portfolio.runs", log: logger.GetLogger("test.publish")}

	err := p.PublishRun(context.Background(), sampleRun())
	require.Error(t, err)
}

func TestSummaryFromSparseRun(t *testing.T) {
	summary := SummaryFromRun(&analyzer.Run{ID: "bare"})
	assert.Equal(t, "bare", summary.RunID)
	assert.Equal(t, 0.0, summary.VaR95)
	assert.Empty(t, summary.RiskLevel)
}

func TestClose(t *testing.T) {
	writer := &fakeWriter{}
	p := &Publisher{writer: writer, topic: "portfolio.runs", log: logger.GetLogger("test.publish")}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}
