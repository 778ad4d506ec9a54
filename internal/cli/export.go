package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"oi-reversal/internal/models"
	"oi-reversal/internal/store"
)

// positionRow is one CSV line of the positions export.
type positionRow struct {
	ID            int64   `csv:"id"`
	SignalID      int64   `csv:"signal_id"`
	Symbol        string  `csv:"symbol"`
	PositionType  string  `csv:"position_type"`
	StrikePrice   float64 `csv:"strike_price"`
	EntryPrice    float64 `csv:"entry_price"`
	EntryTime     string  `csv:"entry_time"`
	Quantity      int     `csv:"quantity"`
	StopLoss      float64 `csv:"stop_loss"`
	TargetPrice   float64 `csv:"target_price"`
	Status        string  `csv:"status"`
	ExitPrice     float64 `csv:"exit_price"`
	ExitTime      string  `csv:"exit_time"`
	ExitReason    string  `csv:"exit_reason"`
	PnL           float64 `csv:"pnl"`
	PnLPercentage float64 `csv:"pnl_percentage"`
}

func newPositionRow(p models.Position) *positionRow {
	row := &positionRow{
		ID:           p.ID,
		SignalID:     p.SignalID,
		Symbol:       p.Symbol,
		PositionType: string(p.Type),
		StrikePrice:  p.StrikePrice,
		EntryPrice:   p.EntryPrice,
		EntryTime:    p.EntryTime.UTC().Format(time.RFC3339),
		Quantity:     p.Quantity,
		StopLoss:     p.StopLoss,
		TargetPrice:  p.TargetPrice,
		Status:       string(p.Status()),
	}
	if p.Exit != nil {
		row.ExitPrice = p.Exit.Price
		row.ExitTime = p.Exit.Time.UTC().Format(time.RFC3339)
		row.ExitReason = string(p.Exit.Reason)
		row.PnL = p.Exit.PnL
		row.PnLPercentage = p.Exit.PnLPercentage
	}
	return row
}

// signalRow is one CSV line of the signals export.
type signalRow struct {
	ID               int64   `csv:"id"`
	Timestamp        string  `csv:"timestamp"`
	Symbol           string  `csv:"symbol"`
	SignalType       string  `csv:"signal_type"`
	StrikePrice      float64 `csv:"strike_price"`
	EntryTrigger     string  `csv:"entry_trigger"`
	Confidence       float64 `csv:"confidence"`
	OIRatio          float64 `csv:"oi_ratio"`
	CallOI           int64   `csv:"call_oi"`
	PutOI            int64   `csv:"put_oi"`
	SpotPrice        float64 `csv:"spot_price"`
	Strength         string  `csv:"signal_strength"`
	MarketSentiment  string  `csv:"market_sentiment"`
	VolatilityRegime string  `csv:"volatility_regime"`
	Status           string  `csv:"status"`
}

func newSignalRow(s models.Signal) *signalRow {
	return &signalRow{
		ID:               s.ID,
		Timestamp:        s.Timestamp.UTC().Format(time.RFC3339),
		Symbol:           s.Symbol,
		SignalType:       string(s.Type),
		StrikePrice:      s.Strike,
		EntryTrigger:     string(s.EntryTrigger),
		Confidence:       s.Confidence,
		OIRatio:          s.OIRatio,
		CallOI:           s.CallOI,
		PutOI:            s.PutOI,
		SpotPrice:        s.SpotPrice,
		Strength:         string(s.Strength),
		MarketSentiment:  string(s.MarketSentiment),
		VolatilityRegime: string(s.VolatilityRegime),
		Status:           string(s.Status),
	}
}

// addExportCommands adds the CSV export command.
func addExportCommands(rootCmd *cobra.Command, app *App) {
	var (
		out    string
		symbol string
		days   int
	)

	cmd := &cobra.Command{
		Use:       "export <positions|signals>",
		Short:     "Export ledger records to CSV",
		Long:      "Write positions (open and closed) or signals to a CSV file, or stdout when --out is empty.",
		Example:   "  oitrader export positions --out positions.csv\n  oitrader export signals --symbol NIFTY --days 7",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"positions", "signals"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			defer app.Close()

			st, err := app.ledger(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var since time.Time
			if days > 0 {
				since = time.Now().AddDate(0, 0, -days)
			}

			var rows interface{}
			var count int
			switch args[0] {
			case "positions":
				open, err := st.GetOpenPositions(cmd.Context(), symbol)
				if err != nil {
					return err
				}
				closed, err := st.GetClosedPositions(cmd.Context(), store.PositionFilter{Symbol: symbol, Since: since})
				if err != nil {
					return err
				}
				list := make([]*positionRow, 0, len(open)+len(closed))
				for _, p := range append(open, closed...) {
					list = append(list, newPositionRow(p))
				}
				rows, count = list, len(list)
			case "signals":
				signals, err := st.GetRecentSignals(cmd.Context(), store.SignalFilter{Symbol: symbol, Since: since})
				if err != nil {
					return err
				}
				list := make([]*signalRow, 0, len(signals))
				for _, s := range signals {
					list = append(list, newSignalRow(s))
				}
				rows, count = list, len(list)
			}

			if out == "" {
				return writeCSV(cmd.OutOrStdout(), rows)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := writeCSV(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"file": out, "rows": count})
			}
			output.Success("✓ Wrote %d %s to %s", count, args[0], out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&days, "days", 0, "only records from the last N days (0 for all)")
	rootCmd.AddCommand(cmd)
}

func writeCSV(w io.Writer, rows interface{}) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
