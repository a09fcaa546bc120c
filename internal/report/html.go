package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// HTMLReporter writes a self-contained HTML report per run.
type HTMLReporter struct {
	outputDir string
	log       *logger.Logger
}

// NewHTMLReporter creates a reporter writing into outputDir.
func NewHTMLReporter(outputDir string) *HTMLReporter {
	return &HTMLReporter{
		outputDir: outputDir,
		log:       logger.GetLogger("report.html"),
	}
}

// WriteFile renders the run report to <outputDir>/report_<runID>.html and
// returns the file path.
func (h *HTMLReporter) WriteFile(run *analyzer.Run) (string, error) {
	if err := os.MkdirAll(h.outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report output directory")
	}

	path := filepath.Join(h.outputDir, fmt.Sprintf("report_%s.html", run.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating report file")
	}
	defer f.Close()

	if err := h.Render(f, run); err != nil {
		return "", err
	}
	h.log.Infof("Wrote HTML report to %s", path)
	return path, nil
}

// Render writes the report HTML to w.
func (h *HTMLReporter) Render(w io.Writer, run *analyzer.Run) error {
	if err := reportTemplate.Execute(w, newReportData(run)); err != nil {
		return errors.Wrap(err, "rendering HTML report")
	}
	return nil
}

type greeksRow struct {
	Symbol       string
	Positions    int
	Delta        string
	DeltaDollars string
	GammaDollars string
	ThetaDollars string
	VegaDollars  string
}

type statRow struct {
	Name  string
	Value string
}

type scenarioTable struct {
	IVHeaders []string
	Rows      []scenarioRow
}

type scenarioRow struct {
	SpotShock string
	Cells     []string
}

type stressRow struct {
	Name        string
	ExpectedPNL string
	VaR95       string
	ProbLoss    string
}

type recommendationRow struct {
	Priority string
	Title    string
	Action   string
}

type reportData struct {
	RunID       string
	CompletedAt string
	Account     string

	GreeksRows []greeksRow
	TotalsRow  *greeksRow

	SimStats []statRow

	Scenario *scenarioTable

	StressRows []stressRow

	RiskLevel       string
	RiskScore       int
	Summary         string
	Recommendations []recommendationRow
	Actions         []string
}

func newReportData(run *analyzer.Run) *reportData {
	data := &reportData{
		RunID:       run.ID,
		CompletedAt: run.CompletedAt.Format("2006-01-02 15:04:05 MST"),
	}
	if run.Account != nil {
		data.Account = fmt.Sprintf("%s — net liquidation %s",
			run.Account.AccountID, usd(run.Account.NetLiquidation))
	}

	if run.Greeks != nil {
		symbols := make([]string, 0, len(run.Greeks.ByUnderlying))
		for symbol := range run.Greeks.ByUnderlying {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			ug := run.Greeks.ByUnderlying[symbol]
			data.GreeksRows = append(data.GreeksRows, greeksRow{
				Symbol:       symbol,
				Positions:    ug.PositionCount,
				Delta:        fmt.Sprintf("%.2f", ug.Greeks.Delta),
				DeltaDollars: usd(ug.Greeks.DeltaDollars),
				GammaDollars: usd(ug.Greeks.GammaDollars),
				ThetaDollars: usd(ug.Greeks.ThetaDollars),
				VegaDollars:  usd(ug.Greeks.VegaDollars),
			})
		}
		totals := run.Greeks.Totals
		data.TotalsRow = &greeksRow{
			Symbol:       "TOTAL",
			Delta:        fmt.Sprintf("%.2f", totals.Delta),
			DeltaDollars: usd(totals.DeltaDollars),
			GammaDollars: usd(totals.GammaDollars),
			ThetaDollars: usd(totals.ThetaDollars),
			VegaDollars:  usd(totals.VegaDollars),
		}
	}

	if run.Simulation != nil {
		stats := run.Simulation.Statistics
		data.SimStats = []statRow{
			{"Initial value", usd(run.Simulation.InitialValue)},
			{"Expected P&L", usd(run.Simulation.ExpectedPNL())},
			{"Expected return", fmt.Sprintf("%.2f%%", stats.ExpectedReturn*100)},
			{"VaR 95%", usd(stats.VaR95)},
			{"VaR 99%", usd(stats.VaR99)},
			{"CVaR 95%", usd(stats.CVaR95)},
			{"Max drawdown", fmt.Sprintf("%.2f%%", stats.MaxDrawdown*100)},
			{"P(loss)", fmt.Sprintf("%.1f%%", stats.ProbabilityLoss*100)},
			{"Sharpe", formatRatio(stats.SharpeRatio)},
			{"Sortino", formatRatio(stats.SortinoRatio)},
			{"Worst case (p5)", usd(run.Simulation.Percentiles.P5)},
			{"Best case (p95)", usd(run.Simulation.Percentiles.P95)},
		}
	}

	if len(run.Scenarios) > 0 {
		spotKeys := sortedShockKeys(keysOf(run.Scenarios))
		var ivKeys []string
		for _, row := range run.Scenarios {
			ivKeys = sortedShockKeys(keysOf(row))
			break
		}
		grid := &scenarioTable{}
		for _, ivKey := range ivKeys {
			grid.IVHeaders = append(grid.IVHeaders, strings.TrimPrefix(ivKey, "iv_"))
		}
		for _, spotKey := range spotKeys {
			row := scenarioRow{SpotShock: strings.TrimPrefix(spotKey, "spot_")}
			for _, ivKey := range ivKeys {
				row.Cells = append(row.Cells, usd(run.Scenarios[spotKey][ivKey]))
			}
			grid.Rows = append(grid.Rows, row)
		}
		data.Scenario = grid
	}

	if len(run.StressSummaries) > 0 {
		names := make([]string, 0, len(run.StressSummaries))
		for name := range run.StressSummaries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := run.StressSummaries[name]
			data.StressRows = append(data.StressRows, stressRow{
				Name:        name,
				ExpectedPNL: usd(s["expected_pnl"]),
				VaR95:       usd(s["var_95"]),
				ProbLoss:    fmt.Sprintf("%.1f%%", s["prob_loss_pct"]),
			})
		}
	}

	if run.Advice != nil {
		data.RiskLevel = strings.ToUpper(string(run.Advice.RiskAssessment.OverallLevel))
		data.RiskScore = run.Advice.RiskAssessment.RiskScore
		data.Summary = run.Advice.Summary
		for _, rec := range run.Advice.Recommendations {
			data.Recommendations = append(data.Recommendations, recommendationRow{
				Priority: strings.ToUpper(string(rec.Priority)),
				Title:    rec.Title,
				Action:   rec.SuggestedAction,
			})
		}
		data.Actions = run.Advice.ImmediateActions
	}

	return data
}

func usd(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", math.Abs(v))
	}
	return fmt.Sprintf("$%.2f", v)
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Portfolio Analysis {{.RunID}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 0.2em; }
table { border-collapse: collapse; margin-top: 0.5em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
tr.total td { font-weight: bold; background: #f5f5f5; }
.risk { font-size: 1.1em; font-weight: bold; }
ul { margin-top: 0.5em; }
</style>
</head>
<body>
<h1>Portfolio Analysis {{.RunID}}</h1>
<p>Completed {{.CompletedAt}}{{if .Account}}<br>Account: {{.Account}}{{end}}</p>

{{if .GreeksRows}}
<h2>Greeks by underlying</h2>
<table>
<tr><th>Underlying</th><th>Positions</th><th>Delta</th><th>Delta$</th><th>Gamma$</th><th>Theta$/day</th><th>Vega$</th></tr>
{{range .GreeksRows}}<tr><td>{{.Symbol}}</td><td>{{.Positions}}</td><td>{{.Delta}}</td><td>{{.DeltaDollars}}</td><td>{{.GammaDollars}}</td><td>{{.ThetaDollars}}</td><td>{{.VegaDollars}}</td></tr>
{{end}}{{with .TotalsRow}}<tr class="total"><td>{{.Symbol}}</td><td></td><td>{{.Delta}}</td><td>{{.DeltaDollars}}</td><td>{{.GammaDollars}}</td><td>{{.ThetaDollars}}</td><td>{{.VegaDollars}}</td></tr>{{end}}
</table>
{{end}}

{{if .SimStats}}
<h2>Monte Carlo simulation</h2>
<table>
<tr><th>Metric</th><th>Value</th></tr>
{{range .SimStats}}<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}

{{with .Scenario}}
<h2>Scenario P&amp;L (spot &times; IV)</h2>
<table>
<tr><th>Spot \ IV</th>{{range .IVHeaders}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td>{{.SpotShock}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}

{{if .StressRows}}
<h2>Stress scenarios</h2>
<table>
<tr><th>Scenario</th><th>Expected P&amp;L</th><th>VaR 95%</th><th>P(loss)</th></tr>
{{range .StressRows}}<tr><td>{{.Name}}</td><td>{{.ExpectedPNL}}</td><td>{{.VaR95}}</td><td>{{.ProbLoss}}</td></tr>
{{end}}</table>
{{end}}

{{if .RiskLevel}}
<h2>Risk assessment</h2>
<p class="risk">{{.RiskLevel}} (score {{.RiskScore}}/100)</p>
<p>{{.Summary}}</p>
{{end}}

{{if .Recommendations}}
<h2>Recommendations</h2>
<ul>
{{range .Recommendations}}<li><strong>[{{.Priority}}] {{.Title}}:</strong> {{.Action}}</li>
{{end}}</ul>
{{end}}

{{if .Actions}}
<h2>Immediate actions</h2>
<ul>
{{range .Actions}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`))
