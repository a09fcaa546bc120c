package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/provider"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// stressCmd runs only the stress battery
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run the stress scenario battery",
	Long: `Fetches the portfolio snapshot and simulates it under each stress
scenario, without running the full analysis pipeline.

Example:
  analyzer stress --paths 20000 --seed 42`,
	RunE: runStressCmd,
}

func init() {
	rootCmd.AddCommand(stressCmd)
}

func runStressCmd(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger("cmd.stress")

	p := provider.NewFixtureProvider(cfg.Provider.FixturePath)
	a := analyzer.New(p, analyzerOptions(), nil)

	summaries, err := a.Stress(context.Background())
	if err != nil {
		log.Errorf("Stress run failed: %v", err)
		return err
	}

	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nStress scenarios:")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Scenario", "Expected P&L", "VaR 95%", "CVaR 95%", "P(loss)")
	for _, name := range names {
		s := summaries[name]
		table.Append(
			name,
			fmt.Sprintf("$%.0f", s["expected_pnl"]),
			fmt.Sprintf("$%.0f", s["var_95"]),
			fmt.Sprintf("$%.0f", s["cvar_95"]),
			fmt.Sprintf("%.1f%%", s["prob_loss_pct"]),
		)
	}
	table.Render()

	return nil
}
