package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quantfolio/portfolio-analyzer/internal/advisor"
	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/instrument"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/internal/provider"
	"github.com/quantfolio/portfolio-analyzer/pkg/metrics"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// Options configures an Analyzer.
type Options struct {
	Calculator greeks.CalculatorConfig
	Simulation montecarlo.Config
	Advisor    advisor.Config

	// SpotShocks and IVShocks define the scenario grid in percent. Empty
	// slices select the calculator's built-in grids.
	SpotShocks []float64
	IVShocks   []float64

	// StressScenarios overrides the default stress battery when non-nil.
	StressScenarios map[string]map[string]float64
}

// Analyzer is the analysis pipeline: fetch the portfolio, compute Greeks,
// simulate, stress, and advise.
type Analyzer struct {
	provider   provider.Provider
	calculator *greeks.Calculator
	advisor    *advisor.Advisor
	options    Options
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// New wires the pipeline. recorder may be nil when metrics are disabled.
func New(p provider.Provider, options Options, recorder *metrics.Recorder) *Analyzer {
	return &Analyzer{
		provider:   p,
		calculator: greeks.NewCalculator(options.Calculator),
		advisor:    advisor.New(options.Advisor),
		options:    options,
		recorder:   recorder,
		log:        logger.GetLogger("analyzer"),
	}
}

// Run executes the full pipeline and returns the completed run. Failures in
// any required stage abort the run; a missing account summary does not.
func (a *Analyzer) Run(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	a.log.Infof("Starting analysis run %s", run.ID)

	positions, marketData, err := a.fetchPortfolio(ctx, run)
	if err != nil {
		a.recordRun("error")
		return nil, err
	}
	run.Positions = positions

	stageStart := time.Now()
	pg, err := a.calculator.PortfolioGreeks(positions, marketData)
	if err != nil {
		a.recordRun("error")
		return nil, errors.Wrap(err, "computing portfolio greeks")
	}
	a.recordStage("greeks", stageStart)
	run.Greeks = pg

	stageStart = time.Now()
	simulator, err := montecarlo.NewSimulator(a.options.Simulation)
	if err != nil {
		a.recordRun("error")
		return nil, err
	}
	simulation, err := simulator.SimulatePortfolio(positions, marketData, nil)
	if err != nil {
		a.recordRun("error")
		return nil, errors.Wrap(err, "running portfolio simulation")
	}
	a.recordStage("simulation", stageStart)
	if a.recorder != nil {
		a.recorder.RecordSimulation(a.options.Simulation.NumPaths, time.Since(stageStart))
	}
	run.Simulation = simulation

	stageStart = time.Now()
	scenarios, err := a.calculator.ScenarioAnalysis(positions, marketData, a.options.SpotShocks, a.options.IVShocks)
	if err != nil {
		a.recordRun("error")
		return nil, errors.Wrap(err, "running scenario analysis")
	}
	a.recordStage("scenarios", stageStart)
	run.Scenarios = scenarios

	run.HedgeSuggestions = a.calculator.DeltaHedge(pg, 0)

	stageStart = time.Now()
	stress, err := a.runStress(ctx, positions, marketData)
	if err != nil {
		a.recordRun("error")
		return nil, err
	}
	a.recordStage("stress", stageStart)
	run.StressSummaries = stress

	stageStart = time.Now()
	run.Advice = a.advisor.GenerateReport(positions, pg, simulation)
	a.recordStage("advice", stageStart)

	run.CompletedAt = time.Now()
	a.recordRun("success")
	a.publishGauges(run)

	a.log.Infof("Analysis run %s complete in %s: risk=%s var95=%.2f",
		run.ID, run.Duration(), run.Advice.RiskAssessment.OverallLevel, simulation.Statistics.VaR95)

	return run, nil
}

// Stress fetches the portfolio and runs only the stress battery.
func (a *Analyzer) Stress(ctx context.Context) (map[string]map[string]float64, error) {
	run := &Run{}
	positions, marketData, err := a.fetchPortfolio(ctx, run)
	if err != nil {
		return nil, err
	}
	return a.runStress(ctx, positions, marketData)
}

func (a *Analyzer) fetchPortfolio(ctx context.Context, run *Run) ([]instrument.Position, map[int64]*instrument.MarketData, error) {
	stageStart := time.Now()

	positions, err := a.provider.Positions(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching positions")
	}

	marketData, err := a.provider.MarketData(ctx, positions)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching market data")
	}

	// The account snapshot enriches reports but is not required for the
	// risk math.
	account, err := a.provider.AccountSummary(ctx)
	if err != nil {
		a.log.Warnf("Account summary unavailable: %v", err)
	} else {
		run.Account = account
	}

	a.recordStage("fetch", stageStart)
	a.log.Infof("Fetched %d positions, %d quotes", len(positions), len(marketData))
	return positions, marketData, nil
}

// runStress runs every stress scenario concurrently. Each scenario gets its
// own simulator so the seeded RNGs stay independent of scheduling order.
func (a *Analyzer) runStress(ctx context.Context, positions []instrument.Position, marketData map[int64]*instrument.MarketData) (map[string]map[string]float64, error) {
	scenarios := a.options.StressScenarios
	if scenarios == nil {
		scenarios = montecarlo.DefaultStressScenarios()
	}

	var mu sync.Mutex
	summaries := make(map[string]map[string]float64, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	for name, adjustments := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			simulator, err := montecarlo.NewSimulator(a.options.Simulation)
			if err != nil {
				return err
			}
			results, err := simulator.StressTest(positions, marketData, map[string]map[string]float64{name: adjustments})
			if err != nil {
				return err
			}

			mu.Lock()
			summaries[name] = results[name].Summary()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "running stress scenarios")
	}
	return summaries, nil
}

func (a *Analyzer) recordStage(stage string, start time.Time) {
	if a.recorder != nil {
		a.recorder.RecordStage(stage, time.Since(start))
	}
}

func (a *Analyzer) recordRun(status string) {
	if a.recorder != nil {
		a.recorder.RecordAnalysisRun(status)
	}
}

func (a *Analyzer) publishGauges(run *Run) {
	if a.recorder == nil {
		return
	}
	stats := run.Simulation.Statistics
	a.recorder.RecordVaR("95", stats.VaR95)
	a.recorder.RecordVaR("99", stats.VaR99)
	a.recorder.RecordES("95", stats.CVaR95)
	a.recorder.RecordRiskScore(run.Advice.RiskAssessment.RiskScore)
	a.recorder.RecordPortfolioGreeks(run.Greeks.Totals.DeltaDollars, run.Greeks.Totals.ThetaDollars)
}
