package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quantfolio/portfolio-analyzer/config"
	"github.com/quantfolio/portfolio-analyzer/internal/advisor"
	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/greeks"
	"github.com/quantfolio/portfolio-analyzer/internal/montecarlo"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

var (
	// Global flags
	fixturePath string
	numPaths    int
	numDays     int
	seed        int64

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Portfolio risk analyzer",
	Long: `Portfolio risk analyzer

Computes option Greeks, runs correlated Monte Carlo simulations, stress
tests the book and produces advisory reports over a portfolio snapshot.

Examples:
  analyzer analyze
  analyzer analyze --paths 50000 --days 60
  analyzer stress --seed 42
  analyzer serve --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real config comes from config.yaml plus env vars.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger.Init(cfg.App.LogLevel, cfg.App.Environment)

		applyFlagOverrides(cmd)
		return nil
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fixturePath, "fixture", "", "path to the portfolio snapshot file")
	rootCmd.PersistentFlags().IntVar(&numPaths, "paths", 0, "number of Monte Carlo paths")
	rootCmd.PersistentFlags().IntVar(&numDays, "days", 0, "simulation horizon in trading days")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed for reproducible simulations")
}

func applyFlagOverrides(cmd *cobra.Command) {
	if fixturePath != "" {
		cfg.Provider.FixturePath = fixturePath
	}
	if numPaths > 0 {
		cfg.Simulation.NumPaths = numPaths
	}
	if numDays > 0 {
		cfg.Simulation.NumDays = numDays
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = seed
		cfg.Simulation.SeedSet = true
	}
}

// analyzerOptions maps the loaded configuration onto pipeline options.
func analyzerOptions() analyzer.Options {
	simulation := montecarlo.Config{
		NumPaths:          cfg.Simulation.NumPaths,
		NumDays:           cfg.Simulation.NumDays,
		RiskFreeRate:      cfg.Analysis.RiskFreeRate,
		DefaultVolatility: cfg.Analysis.DefaultVolatility,
		Antithetic:        cfg.Simulation.Antithetic,
	}
	if cfg.Simulation.SeedSet {
		s := cfg.Simulation.Seed
		simulation.Seed = &s
	}

	return analyzer.Options{
		Calculator: greeks.CalculatorConfig{
			RiskFreeRate:      cfg.Analysis.RiskFreeRate,
			DefaultVolatility: cfg.Analysis.DefaultVolatility,
			DividendYield:     cfg.Analysis.DividendYield,
			HedgeThreshold:    cfg.Analysis.HedgeThreshold,
		},
		Simulation: simulation,
		Advisor: advisor.Config{
			DeltaNeutralThreshold: cfg.Advisor.DeltaNeutralThreshold,
			GammaWarningThreshold: cfg.Advisor.GammaWarningThreshold,
			ThetaWarningDaily:     cfg.Advisor.ThetaWarningDaily,
			ConcentrationWarning:  cfg.Advisor.ConcentrationWarning,
			VaRWarningThreshold:   cfg.Advisor.VaRWarningThreshold,
		},
		SpotShocks: cfg.Analysis.SpotShocks,
		IVShocks:   cfg.Analysis.IVShocks,
	}
}
