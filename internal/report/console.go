package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
)

// ConsoleReporter renders an analysis run as text tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Write renders the full run report.
func (c *ConsoleReporter) Write(run *analyzer.Run) {
	fmt.Fprintf(c.out, "\nPortfolio Analysis %s (completed %s)\n",
		run.ID, run.CompletedAt.Format("2006-01-02 15:04:05"))
	if run.Account != nil {
		fmt.Fprintf(c.out, "Account %s: net liquidation $%.2f (%s)\n",
			run.Account.AccountID, run.Account.NetLiquidation, run.Account.Currency)
	}

	c.writePositions(run)
	c.writeGreeks(run)
	c.writeSimulation(run)
	c.writeScenarios(run)
	c.writeHedges(run)
	c.writeStress(run)
	c.writeAdvice(run)
}

func (c *ConsoleReporter) writePositions(run *analyzer.Run) {
	if len(run.Positions) == 0 {
		return
	}

	fmt.Fprintln(c.out, "\nPositions:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Kind", "Qty", "Avg Cost", "Mkt Price", "Mkt Value", "Unrlzd P&L")

	for _, pos := range run.Positions {
		table.Append(
			pos.Symbol,
			string(pos.Kind),
			fmt.Sprintf("%.0f", pos.Quantity),
			fmt.Sprintf("$%.2f", pos.AvgCost),
			fmt.Sprintf("$%.2f", pos.MarketPrice),
			fmt.Sprintf("$%.2f", pos.MarketValue),
			fmt.Sprintf("$%.2f", pos.UnrealizedPNL),
		)
	}
	table.Render()
}

func (c *ConsoleReporter) writeGreeks(run *analyzer.Run) {
	if run.Greeks == nil {
		return
	}

	fmt.Fprintln(c.out, "\nGreeks by underlying:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Underlying", "Positions", "Delta", "Delta$", "Gamma$", "Theta$/day", "Vega$")

	symbols := make([]string, 0, len(run.Greeks.ByUnderlying))
	for symbol := range run.Greeks.ByUnderlying {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		ug := run.Greeks.ByUnderlying[symbol]
		table.Append(
			symbol,
			strconv.Itoa(ug.PositionCount),
			fmt.Sprintf("%.2f", ug.Greeks.Delta),
			fmt.Sprintf("$%.0f", ug.Greeks.DeltaDollars),
			fmt.Sprintf("$%.0f", ug.Greeks.GammaDollars),
			fmt.Sprintf("$%.0f", ug.Greeks.ThetaDollars),
			fmt.Sprintf("$%.0f", ug.Greeks.VegaDollars),
		)
	}
	totals := run.Greeks.Totals
	table.Append(
		"TOTAL", "",
		fmt.Sprintf("%.2f", totals.Delta),
		fmt.Sprintf("$%.0f", totals.DeltaDollars),
		fmt.Sprintf("$%.0f", totals.GammaDollars),
		fmt.Sprintf("$%.0f", totals.ThetaDollars),
		fmt.Sprintf("$%.0f", totals.VegaDollars),
	)
	table.Render()
}

func (c *ConsoleReporter) writeSimulation(run *analyzer.Run) {
	if run.Simulation == nil {
		return
	}
	stats := run.Simulation.Statistics

	fmt.Fprintf(c.out, "\nMonte Carlo (%d paths, %d days):\n",
		run.Simulation.Config.NumPaths, run.Simulation.Config.NumDays)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Initial value", fmt.Sprintf("$%.2f", run.Simulation.InitialValue))
	table.Append("Expected P&L", fmt.Sprintf("$%.2f", run.Simulation.ExpectedPNL()))
	table.Append("Expected return", fmt.Sprintf("%.2f%%", stats.ExpectedReturn*100))
	table.Append("VaR 95%", fmt.Sprintf("$%.2f", stats.VaR95))
	table.Append("VaR 99%", fmt.Sprintf("$%.2f", stats.VaR99))
	table.Append("CVaR 95%", fmt.Sprintf("$%.2f", stats.CVaR95))
	table.Append("Max drawdown", fmt.Sprintf("%.2f%%", stats.MaxDrawdown*100))
	table.Append("P(loss)", fmt.Sprintf("%.1f%%", stats.ProbabilityLoss*100))
	table.Append("Sharpe", formatRatio(stats.SharpeRatio))
	table.Append("Sortino", formatRatio(stats.SortinoRatio))
	table.Append("Worst case (p5)", fmt.Sprintf("$%.2f", run.Simulation.Percentiles.P5))
	table.Append("Best case (p95)", fmt.Sprintf("$%.2f", run.Simulation.Percentiles.P95))
	table.Render()
}

func (c *ConsoleReporter) writeScenarios(run *analyzer.Run) {
	if len(run.Scenarios) == 0 {
		return
	}

	spotKeys := sortedShockKeys(keysOf(run.Scenarios))

	var ivKeys []string
	for _, row := range run.Scenarios {
		ivKeys = sortedShockKeys(keysOf(row))
		break
	}

	fmt.Fprintln(c.out, "\nScenario P&L (spot x IV):")
	table := tablewriter.NewWriter(c.out)
	header := []string{"Spot \\ IV"}
	for _, ivKey := range ivKeys {
		header = append(header, strings.TrimPrefix(ivKey, "iv_"))
	}
	table.Header(toAnySlice(header)...)

	for _, spotKey := range spotKeys {
		row := []string{strings.TrimPrefix(spotKey, "spot_")}
		for _, ivKey := range ivKeys {
			row = append(row, fmt.Sprintf("$%.0f", run.Scenarios[spotKey][ivKey]))
		}
		table.Append(toAnySlice(row)...)
	}
	table.Render()
}

func (c *ConsoleReporter) writeHedges(run *analyzer.Run) {
	if len(run.HedgeSuggestions) == 0 {
		return
	}

	fmt.Fprintln(c.out, "\nDelta hedge suggestions:")
	symbols := make([]string, 0, len(run.HedgeSuggestions))
	for symbol := range run.HedgeSuggestions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		shares := run.HedgeSuggestions[symbol]
		action := "buy"
		if shares < 0 {
			action = "sell"
		}
		fmt.Fprintf(c.out, "  %s: %s %.0f shares\n", symbol, action, math.Abs(shares))
	}
}

func (c *ConsoleReporter) writeStress(run *analyzer.Run) {
	if len(run.StressSummaries) == 0 {
		return
	}

	fmt.Fprintln(c.out, "\nStress scenarios:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Scenario", "Expected P&L", "VaR 95%", "P(loss)")

	names := make([]string, 0, len(run.StressSummaries))
	for name := range run.StressSummaries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := run.StressSummaries[name]
		table.Append(
			name,
			fmt.Sprintf("$%.0f", s["expected_pnl"]),
			fmt.Sprintf("$%.0f", s["var_95"]),
			fmt.Sprintf("%.1f%%", s["prob_loss_pct"]),
		)
	}
	table.Render()
}

func (c *ConsoleReporter) writeAdvice(run *analyzer.Run) {
	if run.Advice == nil {
		return
	}
	advice := run.Advice

	fmt.Fprintf(c.out, "\nRisk: %s (score %d/100)\n",
		strings.ToUpper(string(advice.RiskAssessment.OverallLevel)), advice.RiskAssessment.RiskScore)
	fmt.Fprintln(c.out, advice.Summary)

	if len(advice.Recommendations) > 0 {
		fmt.Fprintln(c.out, "\nRecommendations:")
		for _, rec := range advice.Recommendations {
			fmt.Fprintf(c.out, "  [%s] %s: %s\n", strings.ToUpper(string(rec.Priority)), rec.Title, rec.SuggestedAction)
		}
	}
	if len(advice.ImmediateActions) > 0 {
		fmt.Fprintln(c.out, "\nImmediate actions:")
		for _, action := range advice.ImmediateActions {
			fmt.Fprintf(c.out, "  - %s\n", action)
		}
	}
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// sortedShockKeys orders shock keys like "spot_-10%" numerically.
func sortedShockKeys(keys []string) []string {
	sort.Slice(keys, func(i, j int) bool {
		return shockValue(keys[i]) < shockValue(keys[j])
	})
	return keys
}

func shockValue(key string) float64 {
	idx := strings.Index(key, "_")
	if idx < 0 {
		return 0
	}
	raw := strings.TrimSuffix(key[idx+1:], "%")
	v, err := strconv.ParseFloat(strings.TrimPrefix(raw, "+"), 64)
	if err != nil {
		return 0
	}
	return v
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
