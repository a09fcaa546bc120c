package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder registers and updates the analyzer's Prometheus metrics.
type Recorder struct {
	// Analysis pipeline metrics
	analysisRunsCounter  *prometheus.CounterVec
	analysisStageLatency *prometheus.HistogramVec

	// Simulation metrics
	simulationPathsCounter prometheus.Counter
	simulationLatency      prometheus.Histogram

	// Risk metrics
	varGauge            *prometheus.GaugeVec
	esGauge             *prometheus.GaugeVec
	riskScoreGauge      prometheus.Gauge
	portfolioDeltaGauge prometheus.Gauge
	portfolioThetaGauge prometheus.Gauge

	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Publisher metrics
	publishCounter *prometheus.CounterVec
}

// NewRecorder creates and registers all metrics on the default registry.
// Create exactly one per process.
func NewRecorder() *Recorder {
	return &Recorder{
		analysisRunsCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pa_analysis_runs_total",
				Help: "The total number of analysis runs by outcome",
			},
			[]string{"status"},
		),
		analysisStageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pa_analysis_stage_duration_seconds",
				Help:    "Latency of each analysis pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"stage"},
		),

		simulationPathsCounter: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pa_simulation_paths_total",
				Help: "The total number of Monte Carlo paths simulated",
			},
		),
		simulationLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pa_simulation_duration_seconds",
				Help:    "Monte Carlo simulation latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // From 10ms to ~40s
			},
		),

		varGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pa_var_value",
				Help: "Value at Risk of the latest run",
			},
			[]string{"confidence_level"},
		),
		esGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pa_es_value",
				Help: "Expected Shortfall of the latest run",
			},
			[]string{"confidence_level"},
		),
		riskScoreGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pa_risk_score",
				Help: "Advisory risk score (0-100) of the latest run",
			},
		),
		portfolioDeltaGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pa_portfolio_delta_dollars",
				Help: "Dollar delta of the latest analyzed portfolio",
			},
		),
		portfolioThetaGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pa_portfolio_theta_dollars",
				Help: "Daily dollar theta of the latest analyzed portfolio",
			},
		),

		apiRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pa_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pa_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "path"},
		),

		publishCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pa_published_summaries_total",
				Help: "The total number of run summaries published",
			},
			[]string{"topic", "status"},
		),
	}
}

// RecordAnalysisRun records a completed or failed analysis run.
func (r *Recorder) RecordAnalysisRun(status string) {
	r.analysisRunsCounter.WithLabelValues(status).Inc()
}

// RecordStage records the latency of one pipeline stage.
func (r *Recorder) RecordStage(stage string, latency time.Duration) {
	r.analysisStageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RecordSimulation records a simulation's size and latency.
func (r *Recorder) RecordSimulation(numPaths int, latency time.Duration) {
	r.simulationPathsCounter.Add(float64(numPaths))
	r.simulationLatency.Observe(latency.Seconds())
}

// RecordVaR records the VaR of the latest run at a confidence level.
func (r *Recorder) RecordVaR(confidenceLevel string, value float64) {
	r.varGauge.WithLabelValues(confidenceLevel).Set(value)
}

// RecordES records the Expected Shortfall of the latest run.
func (r *Recorder) RecordES(confidenceLevel string, value float64) {
	r.esGauge.WithLabelValues(confidenceLevel).Set(value)
}

// RecordRiskScore records the advisory risk score of the latest run.
func (r *Recorder) RecordRiskScore(score int) {
	r.riskScoreGauge.Set(float64(score))
}

// RecordPortfolioGreeks records headline Greek exposures of the latest run.
func (r *Recorder) RecordPortfolioGreeks(deltaDollars, thetaDollars float64) {
	r.portfolioDeltaGauge.Set(deltaDollars)
	r.portfolioThetaGauge.Set(thetaDollars)
}

// RecordAPIRequest records metrics for an API request.
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPublish records a summary publish attempt.
func (r *Recorder) RecordPublish(topic, status string) {
	r.publishCounter.WithLabelValues(topic, status).Inc()
}
