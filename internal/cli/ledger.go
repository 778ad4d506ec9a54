package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"oi-reversal/internal/models"
	"oi-reversal/internal/store"
	"oi-reversal/pkg/utils"
)

// addLedgerCommands adds commands that read or change ledger state.
func addLedgerCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newParamsCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))
	rootCmd.AddCommand(newPnLCmd(app))
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show strategy status",
		Long:  "Show 30-day performance, open positions, recent signals and the active parameters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			eng, err := app.openEngine(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			status, err := eng.Status(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(status)
			}

			output.Bold("Strategy Status - %s", FormatDateTime(status.LastUpdated))
			output.Println()
			printPerformance(output, status.Performance)
			output.Println()
			output.Printf("  Open positions:   %d\n", status.OpenPositionCount)
			output.Printf("  Recent signals:   %d\n", status.RecentSignalCount)
			output.Println()
			printParameters(output, status.Parameters)
			return nil
		},
	}
}

func printPerformance(output *Output, p models.PerformanceSnapshot) {
	output.Bold("Performance (%dd)", p.WindowDays)
	if p.TotalTrades == 0 {
		output.Dim("  No closed trades in window.")
		return
	}
	output.Printf("  Trades:           %d (%d won, %d lost)\n", p.TotalTrades, p.WinningTrades, p.LosingTrades)
	output.Printf("  Win rate:         %.1f%% (target %.0f%%)\n", p.WinRate, models.ExpectedWinRate)
	output.Printf("  Total P&L:        %s\n", output.FormatPnL(p.TotalPnL))
	output.Printf("  Avg win / loss:   %s / %s\n", utils.FormatIndianCurrency(p.AvgWin), utils.FormatIndianCurrency(p.AvgLoss))
	output.Printf("  Profit factor:    %s\n", p.ProfitFactor)
	output.Printf("  Max drawdown:     %s\n", utils.FormatIndianCurrency(p.MaxDrawdown))
}

func printParameters(output *Output, params map[string]float64) {
	table := NewTable(output, "Parameter", "Value", "Range", "Description")
	for _, spec := range models.ParameterSpecs {
		value, ok := params[spec.Name]
		if !ok {
			continue
		}
		table.AddRow(
			spec.Name,
			FormatParameter(spec.Name, value),
			fmt.Sprintf("%g-%g", spec.Min, spec.Max),
			TruncateString(spec.Description, 60),
		)
	}
	table.Render()
}

func newParamsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Strategy parameter management",
		Long:  "List and update the tunable strategy thresholds stored in the ledger.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List strategy parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			eng, err := app.openEngine(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			params := eng.GetParameters()
			if output.IsJSON() {
				return output.JSON(params)
			}
			printParameters(output, params)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <name> <value>",
		Short:   "Update a strategy parameter",
		Example: "  oitrader params set oi_ratio_threshold 2.5\n  oitrader params set atm_strikes_limit 8",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			eng, err := app.openEngine(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			name := args[0]
			scratch := eng.Parameters()
			value, err := scratch.SetString(name, args[1])
			if err != nil {
				return err
			}
			if err := eng.UpdateParameter(cmd.Context(), name, value); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"name": name, "value": value})
			}
			output.Success("✓ %s = %s", name, FormatParameter(name, value))
			return nil
		},
	})

	return cmd
}

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Position management",
		Long:  "List open or closed positions and close positions manually.",
	}

	var (
		symbol string
		closed bool
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List positions",
		Example: `  oitrader positions list
  oitrader positions list --closed --symbol NIFTY --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			st, err := app.ledger(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var positions []models.Position
			if closed {
				positions, err = st.GetClosedPositions(cmd.Context(), store.PositionFilter{Symbol: symbol, Limit: limit})
			} else {
				positions, err = st.GetOpenPositions(cmd.Context(), symbol)
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Info("No positions.")
				return nil
			}
			if closed {
				printClosedPositions(output, positions)
			} else {
				printOpenPositions(output, positions)
			}
			return nil
		},
	}
	list.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	list.Flags().BoolVar(&closed, "closed", false, "list closed positions instead of open ones")
	list.Flags().IntVar(&limit, "limit", 50, "maximum closed positions to list")
	cmd.AddCommand(list)

	var price float64
	closeCmd := &cobra.Command{
		Use:     "close <id>",
		Short:   "Close an open position manually",
		Example: "  oitrader positions close 12 --price 25180",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position id %q", args[0])
			}
			eng, err := app.openEngine(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			pos, err := eng.ClosePosition(cmd.Context(), id, price, models.ExitManual, "closed from command line")
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(pos)
			}
			output.Success("✓ Closed position %d (%s %s %s)", pos.ID, pos.Symbol, utils.FormatStrike(pos.StrikePrice), pos.Type)
			output.Printf("  Exit: %s  P&L: %s (%s)\n",
				utils.FormatIndianCurrency(pos.Exit.Price), output.FormatPnL(pos.Exit.PnL), output.FormatPercent(pos.Exit.PnLPercentage))
			return nil
		},
	}
	closeCmd.Flags().Float64Var(&price, "price", 0, "exit price (underlying spot)")
	_ = closeCmd.MarkFlagRequired("price")
	cmd.AddCommand(closeCmd)

	return cmd
}

func printOpenPositions(output *Output, positions []models.Position) {
	table := NewTable(output, "ID", "Opened", "Symbol", "Type", "Strike", "Qty", "Entry", "Stop", "Target")
	for _, p := range positions {
		table.AddRow(
			strconv.FormatInt(p.ID, 10),
			FormatDateTime(p.EntryTime),
			p.Symbol,
			string(p.Type),
			utils.FormatStrike(p.StrikePrice),
			strconv.Itoa(p.Quantity),
			utils.FormatIndianCurrency(p.EntryPrice),
			utils.FormatIndianCurrency(p.StopLoss),
			utils.FormatIndianCurrency(p.TargetPrice),
		)
	}
	table.Render()
}

func printClosedPositions(output *Output, positions []models.Position) {
	table := NewTable(output, "ID", "Closed", "Symbol", "Type", "Strike", "Entry", "Exit", "Reason", "P&L", "%")
	var total float64
	for _, p := range positions {
		if p.Exit == nil {
			continue
		}
		total += p.Exit.PnL
		table.AddRow(
			strconv.FormatInt(p.ID, 10),
			FormatDateTime(p.Exit.Time),
			p.Symbol,
			string(p.Type),
			utils.FormatStrike(p.StrikePrice),
			utils.FormatIndianCurrency(p.EntryPrice),
			utils.FormatIndianCurrency(p.Exit.Price),
			string(p.Exit.Reason),
			output.FormatPnL(p.Exit.PnL),
			output.FormatPercent(p.Exit.PnLPercentage),
		)
	}
	table.Render()
	output.Println()
	output.Printf("Total P&L: %s\n", output.FormatPnL(total))
}

func newSignalsCmd(app *App) *cobra.Command {
	var (
		symbol string
		limit  int
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:     "signals",
		Short:   "List recent signals",
		Example: "  oitrader signals --symbol NIFTY --since 24h",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			st, err := app.ledger(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			filter := store.SignalFilter{Symbol: symbol, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			signals, err := st.GetRecentSignals(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(signals)
			}
			if len(signals) == 0 {
				output.Info("No signals.")
				return nil
			}

			table := NewTable(output, "ID", "Time", "Symbol", "Side", "Strike", "Ratio", "Confidence", "Strength", "Status")
			for _, s := range signals {
				table.AddRow(
					strconv.FormatInt(s.ID, 10),
					FormatDateTime(s.Timestamp),
					s.Symbol,
					output.Side(s.Type),
					utils.FormatStrike(s.Strike),
					FormatRatio(s.OIRatio),
					FormatConfidence(s.Confidence),
					string(s.Strength),
					string(s.Status),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum signals to list")
	cmd.Flags().DurationVar(&since, "since", 0, "only signals newer than this (e.g. 24h)")
	return cmd
}

func newPnLCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Show daily realized P&L",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			eng, err := app.openEngine(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			history, err := app.store.GetPnLHistory(cmd.Context(), days)
			if err != nil {
				return err
			}
			perf, err := eng.Performance(cmd.Context(), days)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"history":     history,
					"performance": perf,
				})
			}

			if len(history) > 0 {
				table := NewTable(output, "Date", "P&L", "Cumulative")
				var cumulative float64
				for _, p := range history {
					cumulative += p.DailyPnL
					table.AddRow(p.Date, output.FormatPnL(p.DailyPnL), output.FormatPnL(cumulative))
				}
				table.Render()
				output.Println()
			}
			printPerformance(output, perf)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "number of days to include")
	return cmd
}
