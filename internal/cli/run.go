package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oi-reversal/internal/config"
	"oi-reversal/internal/models"
	"oi-reversal/internal/strategy"
)

// addRunCommands adds the cycle and run commands.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCycleCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
}

func newCycleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle [symbols...]",
		Short: "Run one strategy cycle per symbol",
		Long: `Fetch a snapshot for each symbol, detect reversal signals, open positions
and evaluate exits for open positions, once.

Symbols default to [runner] symbols in config.toml.`,
		Example: `  oitrader cycle
  oitrader cycle NIFTY BANKNIFTY
  oitrader cycle RELIANCE.NS --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			runner, err := app.newRunner(cmd, args)
			if err != nil {
				return err
			}

			batch, err := runner.RunOnce(cmd.Context())
			if len(batch.Results) > 0 {
				if nerr := app.notifier.SendCycleSummary(cmd.Context(), batch.Results); nerr != nil {
					app.Logger.Warn().Err(nerr).Msg("Cycle summary notification failed")
				}
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newBatchReport(batch))
			}
			printBatch(output, batch)
			app.warnOpenCircuit(output)
			if len(batch.Results) == 0 && len(batch.Failures) > 0 {
				return fmt.Errorf("all %d symbols failed", len(batch.Failures))
			}
			return nil
		},
	}
	return cmd
}

func newRunCmd(app *App) *cobra.Command {
	var (
		interval    time.Duration
		duration    time.Duration
		marketHours bool
	)

	cmd := &cobra.Command{
		Use:   "run [symbols...]",
		Short: "Run cycles on a timer (forward test)",
		Long: `Run a batch immediately, then every --interval until --duration elapses
or the process is interrupted. A zero duration runs until Ctrl+C.`,
		Example: `  oitrader run --interval 5m --duration 6h
  oitrader run NIFTY --market-hours`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			if cmd.Flags().Changed("interval") {
				app.Config.Runner.CycleInterval = interval
			}
			if cmd.Flags().Changed("duration") {
				app.Config.Runner.Duration = duration
			}
			if cmd.Flags().Changed("market-hours") {
				app.Config.Runner.MarketHoursOnly = marketHours
			}

			runner, err := app.newRunner(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !output.IsJSON() {
				output.Info("Running every %s%s. Press Ctrl+C to stop.",
					app.Config.Runner.CycleInterval, describeDuration(app.Config.Runner.Duration))
			}

			err = runner.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Success("✓ Runner stopped")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between batches (overrides runner.cycle_interval)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	cmd.Flags().BoolVar(&marketHours, "market-hours", false, "skip batches outside NSE market hours")
	return cmd
}

func describeDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return " for " + FormatDuration(d)
}

// newRunner builds a runner over args, or the configured symbols when args
// is empty.
func (a *App) newRunner(cmd *cobra.Command, args []string) (*strategy.Runner, error) {
	symbols := a.Config.Runner.Symbols
	if len(args) > 0 {
		symbols = config.ParseSymbols(strings.Join(args, ","))
	}
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to run; pass symbols or set runner.symbols")
	}

	eng, err := a.openEngine(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	p, err := a.newProvider()
	if err != nil {
		return nil, err
	}

	// A configured zero delay means none; NewRunner would substitute its default.
	delay := a.Config.Runner.SymbolDelay
	if delay == 0 {
		delay = -1
	}

	a.Logger.Debug().Str("provider", p.Name()).Strs("symbols", symbols).Msg("Runner configured")
	return strategy.NewRunner(eng, p, strategy.RunnerConfig{
		Symbols:         symbols,
		SymbolDelay:     delay,
		CycleInterval:   a.Config.Runner.CycleInterval,
		Duration:        a.Config.Runner.Duration,
		MarketHoursOnly: a.Config.Runner.MarketHoursOnly,
	}, a.Logger), nil
}

type failureReport struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type batchReport struct {
	Results  []models.CycleResult `json:"results"`
	Failures []failureReport      `json:"failures"`
	Started  time.Time            `json:"started"`
	Finished time.Time            `json:"finished"`
}

func newBatchReport(b strategy.BatchResult) batchReport {
	report := batchReport{
		Results:  b.Results,
		Failures: make([]failureReport, 0, len(b.Failures)),
		Started:  b.Started,
		Finished: b.Finished,
	}
	if report.Results == nil {
		report.Results = []models.CycleResult{}
	}
	for _, f := range b.Failures {
		report.Failures = append(report.Failures, failureReport{Symbol: f.Symbol, Error: f.Err.Error()})
	}
	return report
}

func printBatch(output *Output, b strategy.BatchResult) {
	output.Bold("Cycle - %s", FormatDateTime(b.Started))
	output.Println()

	if len(b.Results) > 0 {
		table := NewTable(output, "Symbol", "Signals", "Opened", "Closed", "P&L (1d)")
		for _, r := range b.Results {
			table.AddRow(
				r.Symbol,
				fmt.Sprintf("%d", r.SignalsDetected),
				fmt.Sprintf("%d", r.PositionsOpened),
				fmt.Sprintf("%d", r.PositionsClosed),
				output.FormatPnL(r.TotalPnL),
			)
		}
		table.Render()
		output.Println()
	}

	for _, f := range b.Failures {
		output.Error("✗ %s: %v", f.Symbol, f.Err)
	}

	signals, opened, closed := b.Totals()
	output.Printf("Total: %d signals, %d opened, %d closed in %s\n",
		signals, opened, closed, FormatDuration(b.Finished.Sub(b.Started)))
}
