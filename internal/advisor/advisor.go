package advisor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// Config holds the advisory thresholds. DeltaNeutralThreshold is delta
// dollars per $10k of portfolio value; ThetaWarningDaily is negative.
type Config struct {
	DeltaNeutralThreshold float64
	GammaWarningThreshold float64
	ThetaWarningDaily     float64
	ConcentrationWarning  float64
	VaRWarningThreshold   float64
}

// DefaultConfig returns the standard advisory thresholds.
func DefaultConfig() Config {
	return Config{
		DeltaNeutralThreshold: 0.1,
		GammaWarningThreshold: 0.05,
		ThetaWarningDaily:     -100,
		ConcentrationWarning:  0.30,
		VaRWarningThreshold:   0.10,
	}
}

// Advisor turns Greeks and simulation output into graded risk assessments
// and actionable recommendations.
type Advisor struct {
	config Config
	log    *logger.Logger
}

// New creates an advisor, filling zero-valued thresholds with defaults.
func New(config Config) *Advisor {
	defaults := DefaultConfig()
	if config.DeltaNeutralThreshold <= 0 {
		config.DeltaNeutralThreshold = defaults.DeltaNeutralThreshold
	}
	if config.GammaWarningThreshold <= 0 {
		config.GammaWarningThreshold = defaults.GammaWarningThreshold
	}
	if config.ThetaWarningDaily >= 0 {
		config.ThetaWarningDaily = defaults.ThetaWarningDaily
	}
	if config.ConcentrationWarning <= 0 {
		config.ConcentrationWarning = defaults.ConcentrationWarning
	}
	if config.VaRWarningThreshold <= 0 {
		config.VaRWarningThreshold = defaults.VaRWarningThreshold
	}
	return &Advisor{
		config: config,
		log:    logger.GetLogger("advisor"),
	}
}

// AnalyzeRisk scores the portfolio on a 0-100 scale across market,
// volatility, time-decay, concentration and liquidity dimensions. Every
// dimension contributes even at its low grade, so an empty score never
// happens.
func (a *Advisor) AnalyzeRisk(positions []instrument.Position, simulation *montecarlo.Result, pg *greeks.PortfolioGreeks) RiskAssessment {
	stats := simulation.Statistics
	initialValue := simulation.InitialValue

	var keyRisks []string
	score := 0

	ratio := func(v float64) float64 {
		if initialValue > 0 {
			return math.Abs(v) / initialValue
		}
		return 0
	}

	var marketRisk RiskLevel
	deltaRatio := ratio(pg.Totals.DeltaDollars)
	switch {
	case deltaRatio > 0.5:
		marketRisk = RiskHigh
		score += 25
		keyRisks = append(keyRisks, fmt.Sprintf("High delta exposure: %.1f%% of portfolio", deltaRatio*100))
	case deltaRatio > 0.25:
		marketRisk = RiskMedium
		score += 15
	default:
		marketRisk = RiskLow
		score += 5
	}

	var volatilityRisk RiskLevel
	vegaRatio := ratio(pg.Totals.VegaDollars)
	switch {
	case vegaRatio > 0.05:
		volatilityRisk = RiskHigh
		score += 20
		keyRisks = append(keyRisks, fmt.Sprintf("High vega exposure: $%.0f per 1%% IV", pg.Totals.VegaDollars))
	case vegaRatio > 0.02:
		volatilityRisk = RiskMedium
		score += 10
	default:
		volatilityRisk = RiskLow
		score += 5
	}

	var timeDecayRisk RiskLevel
	thetaRatio := ratio(pg.Totals.ThetaDollars)
	switch {
	case pg.Totals.ThetaDollars < a.config.ThetaWarningDaily:
		timeDecayRisk = RiskHigh
		score += 15
		keyRisks = append(keyRisks, fmt.Sprintf("High theta decay: $%.0f/day", pg.Totals.ThetaDollars))
	case thetaRatio > 0.001:
		timeDecayRisk = RiskMedium
		score += 10
	default:
		timeDecayRisk = RiskLow
		score += 5
	}

	var concentrationRisk RiskLevel
	maxConcentration := maxPositionConcentration(positions)
	switch {
	case maxConcentration > a.config.ConcentrationWarning:
		concentrationRisk = RiskHigh
		score += 15
		keyRisks = append(keyRisks, fmt.Sprintf("High concentration: %.1f%% in single position", maxConcentration*100))
	case maxConcentration > a.config.ConcentrationWarning*0.6:
		concentrationRisk = RiskMedium
		score += 10
	default:
		concentrationRisk = RiskLow
		score += 5
	}

	// Liquidity proxy: option-heavy books are harder to unwind.
	liquidityRisk := RiskLow
	if len(positions) > 0 {
		optionCount := 0
		for i := range positions {
			if positions[i].IsOption() {
				optionCount++
			}
		}
		if float64(optionCount)/float64(len(positions)) > 0.7 {
			liquidityRisk = RiskMedium
			score += 10
		} else {
			score += 5
		}
	} else {
		score += 5
	}

	if initialValue > 0 {
		varRatio := stats.VaR95 / initialValue
		if varRatio > a.config.VaRWarningThreshold {
			score += 20
			keyRisks = append(keyRisks, fmt.Sprintf("High VaR: %.1f%% at 95%% confidence", varRatio*100))
		}
	}

	if stats.ProbabilityLoss > 0.6 {
		score += 10
		keyRisks = append(keyRisks, fmt.Sprintf("High loss probability: %.1f%%", stats.ProbabilityLoss*100))
	}

	var overall RiskLevel
	switch {
	case score >= 80:
		overall = RiskCritical
	case score >= 60:
		overall = RiskHigh
	case score >= 40:
		overall = RiskMedium
	default:
		overall = RiskLow
	}
	if score > 100 {
		score = 100
	}

	a.log.Infof("Risk assessment: %s (score %d/100), %d key risks", overall, score, len(keyRisks))

	return RiskAssessment{
		OverallLevel:       overall,
		RiskScore:          score,
		MarketRisk:         marketRisk,
		VolatilityRisk:     volatilityRisk,
		TimeDecayRisk:      timeDecayRisk,
		ConcentrationRisk:  concentrationRisk,
		LiquidityRisk:      liquidityRisk,
		VaR95:              stats.VaR95,
		VaR99:              stats.VaR99,
		MaxLossProbability: stats.ProbabilityLoss,
		ExpectedShortfall:  stats.CVaR95,
		KeyRisks:           keyRisks,
	}
}

// AnalyzeGreeks grades the Greek exposures relative to portfolio value.
func (a *Advisor) AnalyzeGreeks(pg *greeks.PortfolioGreeks, portfolioValue float64) GreeksAssessment {
	var deltaPer10k float64
	if portfolioValue > 0 {
		deltaPer10k = pg.Totals.DeltaDollars / portfolioValue * 10_000
	}

	assessment := GreeksAssessment{
		ThetaDaily:   pg.Totals.ThetaDollars,
		VegaExposure: pg.Totals.VegaDollars,
	}

	if math.Abs(deltaPer10k) < a.config.DeltaNeutralThreshold*10_000 {
		assessment.DeltaNeutral = true
		assessment.DeltaBias = "neutral"
		assessment.DeltaRiskLevel = RiskLow
	} else {
		assessment.DeltaBias = "bullish"
		if pg.Totals.Delta < 0 {
			assessment.DeltaBias = "bearish"
		}
		assessment.DeltaRiskLevel = RiskMedium
		if math.Abs(deltaPer10k) > a.config.DeltaNeutralThreshold*30_000 {
			assessment.DeltaRiskLevel = RiskHigh
		}
	}

	var gammaPct float64
	if portfolioValue > 0 {
		gammaPct = pg.Totals.GammaDollars / portfolioValue
	}
	switch {
	case math.Abs(gammaPct) > a.config.GammaWarningThreshold:
		assessment.GammaRiskLevel = RiskHigh
		assessment.GammaWarning = fmt.Sprintf("High gamma: $%.0f per 1%% move", pg.Totals.GammaDollars)
	case math.Abs(gammaPct) > a.config.GammaWarningThreshold*0.5:
		assessment.GammaRiskLevel = RiskMedium
	default:
		assessment.GammaRiskLevel = RiskLow
	}

	theta := pg.Totals.ThetaDollars
	switch {
	case theta < a.config.ThetaWarningDaily:
		assessment.ThetaRiskLevel = RiskHigh
		assessment.ThetaAssessment = fmt.Sprintf("Losing $%.0f daily to time decay. Consider adjusting short option positions.", math.Abs(theta))
	case theta < 0:
		assessment.ThetaRiskLevel = RiskMedium
		assessment.ThetaAssessment = fmt.Sprintf("Net theta decay of $%.0f daily.", math.Abs(theta))
	default:
		assessment.ThetaRiskLevel = RiskLow
		assessment.ThetaAssessment = fmt.Sprintf("Positive theta of $%.0f daily from short options.", theta)
	}

	var vegaPct float64
	if portfolioValue > 0 {
		vegaPct = pg.Totals.VegaDollars / portfolioValue
	}
	switch {
	case math.Abs(vegaPct) > 0.05:
		assessment.VegaRiskLevel = RiskHigh
		direction := "gains"
		if pg.Totals.VegaDollars < 0 {
			direction = "loses"
		}
		assessment.VegaWarning = fmt.Sprintf("High vega: portfolio %s $%.0f per 1%% IV change", direction, math.Abs(pg.Totals.VegaDollars))
	case math.Abs(vegaPct) > 0.02:
		assessment.VegaRiskLevel = RiskMedium
	default:
		assessment.VegaRiskLevel = RiskLow
	}

	return assessment
}

// AnalyzeConcentration flags symbols above the concentration threshold and
// option expiries holding over half the option book.
func (a *Advisor) AnalyzeConcentration(positions []instrument.Position) []ConcentrationWarning {
	warnings := []ConcentrationWarning{}

	var totalValue float64
	for i := range positions {
		totalValue += math.Abs(positions[i].MarketValue)
	}
	if totalValue == 0 {
		return warnings
	}

	symbolValues := make(map[string]float64)
	symbolOrder := make([]string, 0)
	for i := range positions {
		pos := &positions[i]
		if _, seen := symbolValues[pos.Symbol]; !seen {
			symbolOrder = append(symbolOrder, pos.Symbol)
		}
		symbolValues[pos.Symbol] += math.Abs(pos.MarketValue)
	}

	for _, symbol := range symbolOrder {
		pct := symbolValues[symbol] / totalValue
		if pct > a.config.ConcentrationWarning {
			warnings = append(warnings, ConcentrationWarning{
				Type:       "symbol",
				Entity:     symbol,
				Percentage: pct,
				Threshold:  a.config.ConcentrationWarning,
				Message:    fmt.Sprintf("%s represents %.1f%% of portfolio (threshold: %.0f%%)", symbol, pct*100, a.config.ConcentrationWarning*100),
			})
		}
	}

	expiryValues := make(map[string]float64)
	expiryOrder := make([]string, 0)
	var optionTotal float64
	for i := range positions {
		pos := &positions[i]
		if !pos.IsOption() || pos.Option == nil {
			continue
		}
		expiry := pos.Option.Expiry.Format("2006-01-02")
		if _, seen := expiryValues[expiry]; !seen {
			expiryOrder = append(expiryOrder, expiry)
		}
		expiryValues[expiry] += math.Abs(pos.MarketValue)
		optionTotal += math.Abs(pos.MarketValue)
	}

	if optionTotal > 0 {
		for _, expiry := range expiryOrder {
			pct := expiryValues[expiry] / optionTotal
			if pct > 0.5 {
				warnings = append(warnings, ConcentrationWarning{
					Type:       "expiry",
					Entity:     expiry,
					Percentage: pct,
					Threshold:  0.5,
					Message:    fmt.Sprintf("%.1f%% of options expire on %s", pct*100, expiry),
				})
			}
		}
	}

	for _, w := range warnings {
		a.log.Warnf("Concentration: %s", w.Message)
	}
	return warnings
}

// AnalyzeTimeDecay summarizes theta and upcoming expiries, with a roll
// suggestion when contracts crowd the front of the calendar.
func (a *Advisor) AnalyzeTimeDecay(positions []instrument.Position, pg *greeks.PortfolioGreeks) TimeDecayAnalysis {
	thetaDaily := pg.Totals.ThetaDollars

	now := time.Now()
	var nearestDTE *int
	expiringSoon := 0
	for i := range positions {
		pos := &positions[i]
		if !pos.IsOption() || pos.Option == nil {
			continue
		}
		dte := pos.Option.DaysToExpiry(now)
		if nearestDTE == nil || dte < *nearestDTE {
			d := dte
			nearestDTE = &d
		}
		if dte <= 7 {
			expiringSoon++
		}
	}

	analysis := TimeDecayAnalysis{
		TotalThetaDaily:   thetaDaily,
		ThetaPerWeek:      thetaDaily * 5,
		NearestExpiryDays: nearestDTE,
		ExpiringSoonCount: expiringSoon,
	}
	if nearestDTE != nil {
		analysis.ThetaToExpiry = thetaDaily * float64(*nearestDTE)
	}

	if expiringSoon > 0 {
		analysis.RollRecommendation = fmt.Sprintf("Consider rolling %d position(s) expiring within 7 days to manage gamma risk", expiringSoon)
	} else if nearestDTE != nil && *nearestDTE <= 14 && thetaDaily < -50 {
		analysis.RollRecommendation = fmt.Sprintf("Options expiring in %d days with significant theta. Consider rolling for premium capture.", *nearestDTE)
	}

	return analysis
}

// GenerateRecommendations derives the recommendation list from the
// assessments plus position-level P&L checks.
func (a *Advisor) GenerateRecommendations(positions []instrument.Position, pg *greeks.PortfolioGreeks, simulation *montecarlo.Result, risk RiskAssessment, greeksAssessment GreeksAssessment) []Recommendation {
	recommendations := []Recommendation{}
	stats := simulation.Statistics

	if !greeksAssessment.DeltaNeutral {
		priority := PriorityMedium
		if greeksAssessment.DeltaRiskLevel == RiskHigh {
			priority = PriorityHigh
		}
		direction := "Reduce long"
		if pg.Totals.Delta < 0 {
			direction = "Reduce short"
		}
		hedgeShares := math.Abs(math.Round(pg.Totals.Delta))
		recommendations = append(recommendations, Recommendation{
			Type:            RecommendHedge,
			Priority:        priority,
			Title:           "Delta Hedge Recommended",
			Description:     fmt.Sprintf("Portfolio has %s delta bias of %.0f shares equivalent", greeksAssessment.DeltaBias, pg.Totals.Delta),
			Reason:          fmt.Sprintf("$%.0f directional exposure", pg.Totals.DeltaDollars),
			SuggestedAction: fmt.Sprintf("%s exposure by trading ~%.0f shares of SPY or underlying positions", direction, hedgeShares),
			PotentialImpact: fmt.Sprintf("Reduce directional risk by $%.0f", math.Abs(pg.Totals.DeltaDollars)),
		})
	}

	if greeksAssessment.ThetaRiskLevel == RiskHigh {
		var longOptions []string
		for i := range positions {
			if positions[i].IsOption() && positions[i].IsLong() {
				longOptions = append(longOptions, positions[i].Symbol)
			}
		}
		recommendations = append(recommendations, Recommendation{
			Type:              RecommendAdjust,
			Priority:          PriorityHigh,
			Title:             "Reduce Time Decay",
			Description:       fmt.Sprintf("Portfolio losing $%.0f daily to theta", math.Abs(pg.Totals.ThetaDollars)),
			Reason:            "High negative theta eroding portfolio value",
			SuggestedAction:   "Consider closing or rolling long options, or selling options to offset theta",
			AffectedPositions: longOptions,
			PotentialImpact:   fmt.Sprintf("Save up to $%.0f per week", math.Abs(pg.Totals.ThetaDollars*5)),
		})
	}

	if simulation.InitialValue > 0 {
		varPct := stats.VaR95 / simulation.InitialValue * 100
		if varPct > 10 {
			recommendations = append(recommendations, Recommendation{
				Type:            RecommendHedge,
				Priority:        PriorityHigh,
				Title:           "Reduce Tail Risk",
				Description:     fmt.Sprintf("95%% VaR is $%.0f (%.1f%% of portfolio)", stats.VaR95, varPct),
				Reason:          "High potential loss in adverse scenarios",
				SuggestedAction: "Consider buying protective puts or reducing position sizes",
				PotentialImpact: "Limit worst-case losses to a smaller percentage",
			})
		}
	}

	if stats.ProbabilityLoss > 0.5 {
		recommendations = append(recommendations, Recommendation{
			Type:            RecommendAdjust,
			Priority:        PriorityMedium,
			Title:           "Improve Win Probability",
			Description:     fmt.Sprintf("%.1f%% probability of loss in %d days", stats.ProbabilityLoss*100, simulation.Config.NumDays),
			Reason:          "Negative expected value in current configuration",
			SuggestedAction: "Review position entry points and consider taking profits on winning positions",
		})
	}

	now := time.Now()
	var expiring []string
	for i := range positions {
		pos := &positions[i]
		if pos.IsOption() && pos.Option != nil && pos.Option.DaysToExpiry(now) <= 7 {
			expiring = append(expiring, pos.Symbol)
		}
	}
	if len(expiring) > 0 {
		recommendations = append(recommendations, Recommendation{
			Type:              RecommendRoll,
			Priority:          PriorityHigh,
			Title:             "Roll Expiring Options",
			Description:       fmt.Sprintf("%d option(s) expiring within 7 days", len(expiring)),
			Reason:            "Options approaching expiry have accelerated theta and high gamma risk",
			SuggestedAction:   "Roll positions to later expirations or close",
			AffectedPositions: expiring,
			UrgencyDays:       7,
		})
	}

	if greeksAssessment.VegaRiskLevel == RiskHigh {
		direction := "gains"
		if pg.Totals.VegaDollars < 0 {
			direction = "loses"
		}
		recommendations = append(recommendations, Recommendation{
			Type:            RecommendAdjust,
			Priority:        PriorityMedium,
			Title:           "Manage Volatility Exposure",
			Description:     fmt.Sprintf("Portfolio %s $%.0f per 1%% IV change", direction, math.Abs(pg.Totals.VegaDollars)),
			Reason:          "High sensitivity to volatility changes",
			SuggestedAction: "Consider offsetting vega with opposite direction options or volatility products",
		})
	}

	var profitable []string
	var totalProfit float64
	for i := range positions {
		pos := &positions[i]
		if pos.UnrealizedPNL > pos.TotalCost()*0.5 {
			profitable = append(profitable, pos.Symbol)
			totalProfit += pos.UnrealizedPNL
		}
	}
	if len(profitable) > 0 {
		recommendations = append(recommendations, Recommendation{
			Type:              RecommendTakeProfit,
			Priority:          PriorityLow,
			Title:             "Consider Taking Profits",
			Description:       fmt.Sprintf("%d position(s) with >50%% unrealized gains", len(profitable)),
			Reason:            fmt.Sprintf("Total unrealized profit of $%.0f", totalProfit),
			SuggestedAction:   "Consider scaling out of profitable positions to lock in gains",
			AffectedPositions: profitable,
		})
	}

	var losing []string
	var totalLoss float64
	for i := range positions {
		pos := &positions[i]
		if pos.UnrealizedPNL < -pos.TotalCost()*0.3 {
			losing = append(losing, pos.Symbol)
			totalLoss += pos.UnrealizedPNL
		}
	}
	if len(losing) > 0 {
		recommendations = append(recommendations, Recommendation{
			Type:              RecommendStopLoss,
			Priority:          PriorityMedium,
			Title:             "Review Losing Positions",
			Description:       fmt.Sprintf("%d position(s) with >30%% loss", len(losing)),
			Reason:            fmt.Sprintf("Total unrealized loss of $%.0f", math.Abs(totalLoss)),
			SuggestedAction:   "Evaluate if thesis is intact; consider cutting losses",
			AffectedPositions: losing,
		})
	}

	a.log.Infof("Generated %d recommendations", len(recommendations))
	return recommendations
}

// GenerateReport runs every analysis and assembles the full advice report.
func (a *Advisor) GenerateReport(positions []instrument.Position, pg *greeks.PortfolioGreeks, simulation *montecarlo.Result) *Advice {
	portfolioValue := simulation.InitialValue

	risk := a.AnalyzeRisk(positions, simulation, pg)
	greeksAssessment := a.AnalyzeGreeks(pg, portfolioValue)
	concentration := a.AnalyzeConcentration(positions)
	timeDecay := a.AnalyzeTimeDecay(positions, pg)
	recommendations := a.GenerateRecommendations(positions, pg, simulation, risk, greeksAssessment)

	immediateActions := []string{}
	for _, rec := range recommendations {
		if rec.Priority == PriorityHigh {
			immediateActions = append(immediateActions, fmt.Sprintf("%s: %s", rec.Title, rec.SuggestedAction))
		}
	}

	weeklyReview := []string{
		fmt.Sprintf("Review %d positions for performance", len(positions)),
		fmt.Sprintf("Monitor theta decay: $%.0f/day", pg.Totals.ThetaDollars),
		fmt.Sprintf("Track VaR: $%.0f at 95%% confidence", simulation.Statistics.VaR95),
	}
	if pg.NearestExpiryDays != nil && *pg.NearestExpiryDays <= 14 {
		weeklyReview = append(weeklyReview, fmt.Sprintf("Expiring options in %d days - review roll strategy", *pg.NearestExpiryDays))
	}

	advice := &Advice{
		Summary:               a.summary(risk, greeksAssessment, simulation.Statistics, portfolioValue),
		GeneratedAt:           time.Now(),
		RiskAssessment:        risk,
		GreeksAssessment:      greeksAssessment,
		ConcentrationWarnings: concentration,
		TimeDecayAnalysis:     timeDecay,
		Recommendations:       recommendations,
		ImmediateActions:      immediateActions,
		WeeklyReviewItems:     weeklyReview,
	}

	a.log.Infof("Advice ready: risk=%s score=%d recommendations=%d immediate=%d",
		risk.OverallLevel, risk.RiskScore, len(recommendations), len(immediateActions))

	return advice
}

func (a *Advisor) summary(risk RiskAssessment, greeksAssessment GreeksAssessment, stats montecarlo.Statistics, portfolioValue float64) string {
	riskText := map[RiskLevel]string{
		RiskLow:      "low risk profile",
		RiskMedium:   "moderate risk profile",
		RiskHigh:     "elevated risk profile requiring attention",
		RiskCritical: "critical risk level requiring immediate action",
	}

	parts := []string{
		fmt.Sprintf("Portfolio analysis indicates a %s", riskText[risk.OverallLevel]),
		fmt.Sprintf("with a risk score of %d/100.", risk.RiskScore),
	}

	if greeksAssessment.DeltaBias != "neutral" {
		parts = append(parts, fmt.Sprintf("The portfolio has a %s bias.", greeksAssessment.DeltaBias))
	}
	if greeksAssessment.ThetaDaily < -50 {
		parts = append(parts, fmt.Sprintf("Time decay is costing $%.0f per day.", math.Abs(greeksAssessment.ThetaDaily)))
	}

	var expectedReturn float64
	if portfolioValue > 0 {
		expectedReturn = (stats.Mean - portfolioValue) / portfolioValue * 100
	}
	if expectedReturn > 0 {
		parts = append(parts, fmt.Sprintf("Expected return over simulation period is +%.1f%%.", expectedReturn))
	} else {
		parts = append(parts, fmt.Sprintf("Expected return over simulation period is %.1f%%.", expectedReturn))
	}

	if len(risk.KeyRisks) > 0 {
		top := risk.KeyRisks
		if len(top) > 3 {
			top = top[:3]
		}
		parts = append(parts, fmt.Sprintf("Key risks: %s.", strings.Join(top, "; ")))
	}

	return strings.Join(parts, " ")
}

func maxPositionConcentration(positions []instrument.Position) float64 {
	var total float64
	for i := range positions {
		total += math.Abs(positions[i].MarketValue)
	}
	if total == 0 {
		return 0
	}
	var maxPct float64
	for i := range positions {
		pct := math.Abs(positions[i].MarketValue) / total
		if pct > maxPct {
			maxPct = pct
		}
	}
	return maxPct
}
