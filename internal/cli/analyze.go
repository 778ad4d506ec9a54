package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oi-reversal/internal/analysis"
	"oi-reversal/internal/config"
	"oi-reversal/internal/models"
	"oi-reversal/pkg/utils"
)

// addAnalyzeCommands adds the snapshot analytics command.
func addAnalyzeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
}

// analyzeSummary aggregates decisions across the analyzed symbols.
type analyzeSummary struct {
	Symbols       int     `json:"symbols"`
	BuySignals    int     `json:"buy_signals"`
	SellSignals   int     `json:"sell_signals"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type analyzeReport struct {
	Analyses []models.SnapshotAnalysis `json:"analyses"`
	Failures []failureReport           `json:"failures"`
	Summary  analyzeSummary            `json:"summary"`
}

func summarizeAnalyses(analyses []models.SnapshotAnalysis) analyzeSummary {
	s := analyzeSummary{Symbols: len(analyses)}
	if len(analyses) == 0 {
		return s
	}
	var total float64
	for _, a := range analyses {
		switch a.Decision.Action {
		case models.ActionBuy:
			s.BuySignals++
		case models.ActionSell:
			s.SellSignals++
		}
		total += a.Decision.Confidence
	}
	s.AvgConfidence = total / float64(len(analyses))
	return s
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "analyze [symbols...]",
		Short: "Analyze option chains without trading",
		Long: `Fetch snapshots and print the analytics view: market sentiment,
OI-balance volatility, the best per-strike signals and a single decision.

Nothing is written to the ledger.`,
		Example: `  oitrader analyze NIFTY
  oitrader analyze NIFTY BANKNIFTY --top 3 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbols := app.Config.Runner.Symbols
			if len(args) > 0 {
				symbols = config.ParseSymbols(strings.Join(args, ","))
			}
			p, err := app.newProvider()
			if err != nil {
				return err
			}

			report := analyzeReport{
				Analyses: make([]models.SnapshotAnalysis, 0, len(symbols)),
				Failures: make([]failureReport, 0),
			}
			for _, symbol := range symbols {
				raw, err := p.Fetch(cmd.Context(), symbol)
				if err != nil {
					app.Logger.Error().Err(err).Str("symbol", symbol).Msg("Snapshot fetch failed")
					report.Failures = append(report.Failures, failureReport{Symbol: symbol, Error: err.Error()})
					continue
				}

				opts := analysis.DefaultOptions()
				opts.Normalize.StrikeInterval = app.Config.StrikeIntervalFor(symbol)
				opts.Decision = app.Config.DecisionConfig()
				report.Analyses = append(report.Analyses, analysis.Analyze(raw, opts))
			}
			report.Summary = summarizeAnalyses(report.Analyses)

			if output.IsJSON() {
				return output.JSON(report)
			}

			for _, a := range report.Analyses {
				printAnalysis(output, a, top)
				output.Println()
			}
			for _, f := range report.Failures {
				output.Error("✗ %s: %s", f.Symbol, f.Error)
			}

			s := report.Summary
			output.Bold("Summary")
			output.Printf("  Symbols analyzed: %d\n", s.Symbols)
			output.Printf("  BUY decisions:    %d\n", s.BuySignals)
			output.Printf("  SELL decisions:   %d\n", s.SellSignals)
			output.Printf("  Avg confidence:   %s\n", FormatConfidence(s.AvgConfidence))

			if len(report.Analyses) == 0 && len(report.Failures) > 0 {
				return fmt.Errorf("all %d symbols failed", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "number of signals to show per symbol")
	return cmd
}

func printAnalysis(output *Output, a models.SnapshotAnalysis, top int) {
	output.Bold("%s  spot %s  (%s)", a.Symbol, utils.FormatIndianCurrency(a.SpotPrice), FormatDateTime(a.Timestamp))

	s := a.Sentiment
	output.Printf("  Sentiment:  %s  score %.2f  confidence %s  PCR %.2f\n",
		output.Sentiment(s.Direction), s.Score, FormatConfidence(s.Confidence), s.PutCallRatio)
	output.Printf("  OI:         calls %s  puts %s\n", FormatOI(s.TotalCallOI), FormatOI(s.TotalPutOI))
	output.Printf("  Volatility: %s (IV proxy %.2f%%)\n", a.Volatility.Regime, a.Volatility.IV)

	d := a.Decision
	output.Printf("  Decision:   %s  confidence %s  risk %s  size %.1f%%\n",
		output.Action(d.Action), FormatConfidence(d.Confidence), d.RiskLevel, d.PositionSize)
	if d.StrikePrice > 0 {
		output.Printf("              %s %s  stop %s  target %s  R:R %.2f\n",
			output.Side(d.SignalType), utils.FormatStrike(d.StrikePrice),
			utils.FormatIndianCurrency(d.StopLoss), utils.FormatIndianCurrency(d.Target), d.RewardRiskRatio)
	}
	output.Dim("  %s", d.Reason)

	if len(a.Signals) == 0 {
		return
	}
	output.Println()
	table := NewTable(output, "Strike", "Side", "Signal", "Confidence", "Call OI", "Put OI", "Ratio")
	for i, sig := range a.Signals {
		if top > 0 && i >= top {
			break
		}
		table.AddRow(
			utils.FormatStrike(sig.Strike),
			output.Side(sig.Type),
			sig.Label,
			FormatConfidence(sig.Confidence),
			FormatOI(sig.CallOI),
			FormatOI(sig.PutOI),
			FormatRatio(sig.OIRatio),
		)
	}
	table.Render()
}
