package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/provider"
	"github.com/quantfolio/portfolio-analyzer/internal/publish"
	"github.com/quantfolio/portfolio-analyzer/internal/report"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// analyzeCmd runs the full pipeline once and prints the report
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full portfolio analysis",
	Long: `Runs the complete analysis pipeline once: fetches the portfolio
snapshot, computes Greeks, simulates price paths, runs the stress battery
and prints the advisory report.

Examples:
  analyzer analyze
  analyzer analyze --paths 50000 --seed 42
  analyzer analyze --fixture snapshots/eoy.json`,
	RunE: runAnalyze,
}

var skipHTML bool

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&skipHTML, "no-html", false, "skip writing the HTML report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger("cmd.analyze")
	ctx := context.Background()

	p := provider.NewFixtureProvider(cfg.Provider.FixturePath)
	a := analyzer.New(p, analyzerOptions(), nil)

	run, err := a.Run(ctx)
	if err != nil {
		log.Errorf("Analysis failed: %v", err)
		return err
	}

	report.NewConsoleReporter(os.Stdout).Write(run)

	if cfg.Report.HTML && !skipHTML {
		path, err := report.NewHTMLReporter(cfg.Report.OutputDir).WriteFile(run)
		if err != nil {
			log.Errorf("Failed to write HTML report: %v", err)
		} else {
			log.Infof("HTML report: %s", path)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := publish.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, nil)
		defer publisher.Close()
		if err := publisher.PublishRun(ctx, run); err != nil {
			log.Errorf("Failed to publish run summary: %v", err)
		}
	}

	return nil
}
