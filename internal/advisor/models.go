package advisor

import "time"

// RiskLevel grades a risk dimension.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RecommendationType classifies the suggested action.
type RecommendationType string

const (
	RecommendHedge      RecommendationType = "hedge"
	RecommendAdjust     RecommendationType = "adjust"
	RecommendRoll       RecommendationType = "roll"
	RecommendTakeProfit RecommendationType = "take_profit"
	RecommendStopLoss   RecommendationType = "stop_loss"
	RecommendClose      RecommendationType = "close"
	RecommendRebalance  RecommendationType = "rebalance"
	RecommendMonitor    RecommendationType = "monitor"
)

// Priority orders recommendations for the reader.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RiskAssessment scores the portfolio across risk dimensions. RiskScore is
// capped at 100; KeyRisks lists the findings that drove it up.
type RiskAssessment struct {
	OverallLevel RiskLevel `json:"overall_level"`
	RiskScore    int       `json:"risk_score"`

	MarketRisk        RiskLevel `json:"market_risk"`
	VolatilityRisk    RiskLevel `json:"volatility_risk"`
	TimeDecayRisk     RiskLevel `json:"time_decay_risk"`
	ConcentrationRisk RiskLevel `json:"concentration_risk"`
	LiquidityRisk     RiskLevel `json:"liquidity_risk"`

	VaR95              float64 `json:"var_95"`
	VaR99              float64 `json:"var_99"`
	MaxLossProbability float64 `json:"max_loss_probability"`
	ExpectedShortfall  float64 `json:"expected_shortfall"`

	KeyRisks []string `json:"key_risks"`
}

// GreeksAssessment interprets the portfolio Greeks against thresholds.
type GreeksAssessment struct {
	DeltaNeutral   bool      `json:"delta_neutral"`
	DeltaBias      string    `json:"delta_bias"`
	DeltaRiskLevel RiskLevel `json:"delta_risk_level"`

	GammaRiskLevel RiskLevel `json:"gamma_risk_level"`
	GammaWarning   string    `json:"gamma_warning,omitempty"`

	ThetaDaily      float64   `json:"theta_daily"`
	ThetaAssessment string    `json:"theta_assessment"`
	ThetaRiskLevel  RiskLevel `json:"theta_risk_level"`

	VegaExposure  float64   `json:"vega_exposure"`
	VegaRiskLevel RiskLevel `json:"vega_risk_level"`
	VegaWarning   string    `json:"vega_warning,omitempty"`
}

// ConcentrationWarning flags a symbol or expiry holding too much of the book.
type ConcentrationWarning struct {
	Type       string  `json:"type"`
	Entity     string  `json:"entity"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
	Message    string  `json:"message"`
}

// TimeDecayAnalysis summarizes theta exposure and upcoming expiries.
type TimeDecayAnalysis struct {
	TotalThetaDaily    float64 `json:"total_theta_daily"`
	ThetaPerWeek       float64 `json:"theta_per_week"`
	ThetaToExpiry      float64 `json:"theta_to_expiry"`
	NearestExpiryDays  *int    `json:"nearest_expiry_days,omitempty"`
	ExpiringSoonCount  int     `json:"expiring_soon_count"`
	RollRecommendation string  `json:"roll_recommendation,omitempty"`
}

// Recommendation is one actionable finding.
type Recommendation struct {
	Type              RecommendationType `json:"type"`
	Priority          Priority           `json:"priority"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Reason            string             `json:"reason"`
	SuggestedAction   string             `json:"suggested_action"`
	AffectedPositions []string           `json:"affected_positions,omitempty"`
	PotentialImpact   string             `json:"potential_impact,omitempty"`
	UrgencyDays       int                `json:"urgency_days,omitempty"`
}

// Advice is the complete advisory report for one analysis run.
type Advice struct {
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`

	RiskAssessment        RiskAssessment         `json:"risk_assessment"`
	GreeksAssessment      GreeksAssessment       `json:"greeks_assessment"`
	ConcentrationWarnings []ConcentrationWarning `json:"concentration_warnings"`
	TimeDecayAnalysis     TimeDecayAnalysis      `json:"time_decay_analysis"`

	Recommendations   []Recommendation `json:"recommendations"`
	ImmediateActions  []string         `json:"immediate_actions"`
	WeeklyReviewItems []string         `json:"weekly_review_items"`
}
