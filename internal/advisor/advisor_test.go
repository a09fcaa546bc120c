package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/internal/pricing"
)

func portfolioWith(g pricing.Greeks) *greeks.PortfolioGreeks {
	pg := greeks.NewPortfolioGreeks()
	pg.AddUnderlying(&greeks.UnderlyingGreeks{Symbol: "AAPL", Greeks: g, PositionCount: 1})
	return pg
}

func simulationResult(initialValue float64, stats montecarlo.Statistics) *montecarlo.Result {
	return &montecarlo.Result{
		Config:       montecarlo.Config{NumPaths: 1000, NumDays: 30},
		InitialValue: initialValue,
		Statistics:   stats,
	}
}

func TestRiskScoreQuietBook(t *testing.T) {
	adv := New(Config{})

	pg := portfolioWith(pricing.Greeks{Delta: 10, DeltaDollars: 1_000})
	sim := simulationResult(100_000, montecarlo.Statistics{VaR95: 2_000, ProbabilityLoss: 0.4})

	// Six evenly sized positions keep every symbol under the medium
	// concentration band.
	positions := make([]instrument.Position, 6)
	for i, symbol := range []string{"AAPL", "MSFT", "SPY", "QQQ", "IWM", "DIA"} {
		positions[i] = instrument.Position{
			Symbol: symbol, Kind: instrument.KindEquity, Quantity: 10, MarketValue: 16_000,
		}
	}

	risk := adv.AnalyzeRisk(positions, sim, pg)

	assert.Equal(t, RiskLow, risk.OverallLevel)
	assert.Equal(t, RiskLow, risk.MarketRisk)
	assert.Equal(t, RiskLow, risk.VolatilityRisk)
	assert.Equal(t, RiskLow, risk.ConcentrationRisk)
	// Every dimension contributes its floor of 5.
	assert.Equal(t, 25, risk.RiskScore)
	assert.Empty(t, risk.KeyRisks)
}

func TestRiskScoreHotBook(t *testing.T) {
	adv := New(Config{})

	pg := portfolioWith(pricing.Greeks{
		Delta:        600,
		DeltaDollars: 60_000,
		VegaDollars:  6_000,
		ThetaDollars: -500,
	})
	sim := simulationResult(100_000, montecarlo.Statistics{
		VaR95:           15_000,
		ProbabilityLoss: 0.7,
	})

	positions := []instrument.Position{
		{Symbol: "AAPL", Kind: instrument.KindEquity, Quantity: 100, MarketValue: 90_000},
		{Symbol: "MSFT", Kind: instrument.KindEquity, Quantity: 10, MarketValue: 10_000},
	}

	risk := adv.AnalyzeRisk(positions, sim, pg)

	assert.Equal(t, RiskHigh, risk.MarketRisk)
	assert.Equal(t, RiskHigh, risk.VolatilityRisk)
	assert.Equal(t, RiskHigh, risk.TimeDecayRisk)
	assert.Equal(t, RiskHigh, risk.ConcentrationRisk)
	// 25 + 20 + 15 + 15 + 5 + 20 + 10 = 110, capped.
	assert.Equal(t, 100, risk.RiskScore)
	assert.Equal(t, RiskCritical, risk.OverallLevel)
	assert.NotEmpty(t, risk.KeyRisks)
	assert.Equal(t, 15_000.0, risk.VaR95)
}

func TestGreeksAssessmentDeltaBias(t *testing.T) {
	adv := New(Config{})

	neutral := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{Delta: 1, DeltaDollars: 500}), 100_000)
	assert.True(t, neutral.DeltaNeutral)
	assert.Equal(t, "neutral", neutral.DeltaBias)
	assert.Equal(t, RiskLow, neutral.DeltaRiskLevel)

	bullish := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{Delta: 400, DeltaDollars: 40_000}), 100_000)
	assert.False(t, bullish.DeltaNeutral)
	assert.Equal(t, "bullish", bullish.DeltaBias)
	assert.Equal(t, RiskHigh, bullish.DeltaRiskLevel)

	bearish := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{Delta: -150, DeltaDollars: -15_000}), 100_000)
	assert.Equal(t, "bearish", bearish.DeltaBias)
	assert.Equal(t, RiskMedium, bearish.DeltaRiskLevel)
}

func TestGreeksAssessmentThetaGrades(t *testing.T) {
	adv := New(Config{})

	hot := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{ThetaDollars: -250}), 100_000)
	assert.Equal(t, RiskHigh, hot.ThetaRiskLevel)
	assert.Contains(t, hot.ThetaAssessment, "250")

	mild := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{ThetaDollars: -20}), 100_000)
	assert.Equal(t, RiskMedium, mild.ThetaRiskLevel)

	collector := adv.AnalyzeGreeks(portfolioWith(pricing.Greeks{ThetaDollars: 80}), 100_000)
	assert.Equal(t, RiskLow, collector.ThetaRiskLevel)
	assert.Contains(t, collector.ThetaAssessment, "Positive theta")
}

func TestConcentrationWarnings(t *testing.T) {
	adv := New(Config{})

	expiry := time.Now().Add(30 * 24 * time.Hour)
	positions := []instrument.Position{
		{Symbol: "AAPL", Kind: instrument.KindEquity, MarketValue: 70_000},
		{Symbol: "MSFT", Kind: instrument.KindEquity, MarketValue: 20_000},
		{
			Symbol: "SPY", Kind: instrument.KindOption, MarketValue: 10_000,
			Option: &instrument.OptionDetail{Strike: 450, Right: instrument.RightCall, Expiry: expiry},
		},
	}

	warnings := adv.AnalyzeConcentration(positions)
	require.Len(t, warnings, 2)

	assert.Equal(t, "symbol", warnings[0].Type)
	assert.Equal(t, "AAPL", warnings[0].Entity)
	assert.InDelta(t, 0.7, warnings[0].Percentage, 1e-9)

	// The lone option expiry holds 100% of the option book.
	assert.Equal(t, "expiry", warnings[1].Type)
	assert.Equal(t, expiry.Format("2006-01-02"), warnings[1].Entity)

	assert.Empty(t, adv.AnalyzeConcentration(nil))
}

func TestTimeDecayRollRecommendation(t *testing.T) {
	adv := New(Config{})

	soon := time.Now().Add(3*24*time.Hour + time.Hour)
	positions := []instrument.Position{{
		Symbol: "AAPL", Kind: instrument.KindOption, Quantity: -2, MarketValue: -500,
		Option: &instrument.OptionDetail{Strike: 160, Right: instrument.RightCall, Expiry: soon},
	}}

	analysis := adv.AnalyzeTimeDecay(positions, portfolioWith(pricing.Greeks{ThetaDollars: -60}))

	require.NotNil(t, analysis.NearestExpiryDays)
	assert.Equal(t, 3, *analysis.NearestExpiryDays)
	assert.Equal(t, 1, analysis.ExpiringSoonCount)
	assert.Equal(t, -300.0, analysis.ThetaPerWeek)
	assert.InDelta(t, -180.0, analysis.ThetaToExpiry, 1e-9)
	assert.Contains(t, analysis.RollRecommendation, "expiring within 7 days")
}

func TestRecommendationsPNLRules(t *testing.T) {
	adv := New(Config{})

	positions := []instrument.Position{
		{Symbol: "WIN", Kind: instrument.KindEquity, Quantity: 100, AvgCost: 50, UnrealizedPNL: 3_000, MarketValue: 8_000},
		{Symbol: "LOSE", Kind: instrument.KindEquity, Quantity: 100, AvgCost: 80, UnrealizedPNL: -3_000, MarketValue: 5_000},
	}
	pg := portfolioWith(pricing.Greeks{Delta: 1, DeltaDollars: 100})
	sim := simulationResult(13_000, montecarlo.Statistics{ProbabilityLoss: 0.3})

	assessment := adv.AnalyzeGreeks(pg, sim.InitialValue)
	risk := adv.AnalyzeRisk(positions, sim, pg)
	recs := adv.GenerateRecommendations(positions, pg, sim, risk, assessment)

	var types []RecommendationType
	for _, r := range recs {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, RecommendTakeProfit)
	assert.Contains(t, types, RecommendStopLoss)
	assert.NotContains(t, types, RecommendHedge)
}

func TestGenerateReportEndToEnd(t *testing.T) {
	adv := New(Config{})

	soon := time.Now().Add(2*24*time.Hour + time.Hour)
	positions := []instrument.Position{
		{Symbol: "AAPL", Kind: instrument.KindEquity, Quantity: 500, MarketValue: 77_500},
		{
			Symbol: "AAPL", Kind: instrument.KindOption, Quantity: 5, MarketValue: 2_500, AvgCost: 4,
			Option: &instrument.OptionDetail{Strike: 160, Right: instrument.RightCall, Expiry: soon, Multiplier: 100},
		},
	}
	pg := portfolioWith(pricing.Greeks{
		Delta:        650,
		DeltaDollars: 100_000,
		ThetaDollars: -200,
		VegaDollars:  5_000,
	})
	sim := simulationResult(80_000, montecarlo.Statistics{
		Mean:            82_000,
		VaR95:           12_000,
		ProbabilityLoss: 0.45,
	})

	advice := adv.GenerateReport(positions, pg, sim)

	require.NotNil(t, advice)
	assert.NotEmpty(t, advice.Summary)
	assert.Contains(t, advice.Summary, "bullish")
	assert.NotEmpty(t, advice.Recommendations)
	assert.NotEmpty(t, advice.WeeklyReviewItems)

	// Every immediate action corresponds to a high-priority recommendation.
	var high int
	for _, rec := range advice.Recommendations {
		if rec.Priority == PriorityHigh {
			high++
		}
	}
	assert.Len(t, advice.ImmediateActions, high)

	var rolls []Recommendation
	for _, rec := range advice.Recommendations {
		if rec.Type == RecommendRoll {
			rolls = append(rolls, rec)
		}
	}
	require.Len(t, rolls, 1)
	assert.Equal(t, []string{"AAPL"}, rolls[0].AffectedPositions)
}
