// Package performance aggregates realized P&L over closed positions.
// Nothing here is stored; every snapshot is recomputed from the ledger.
package performance

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"oi-reversal/internal/models"
)

// Trailing windows used by the cycle summary and the status view.
const (
	CycleWindowDays  = 1
	StatusWindowDays = 30
)

// RealizedPnL returns the P&L and P&L percentage of closing pos at price.
// Long-call and short-put positions gain when price rises; the other
// group gains when it falls.
func RealizedPnL(pos *models.Position, price float64) (pnl, pct float64) {
	entry := decimal.NewFromFloat(pos.EntryPrice)
	exit := decimal.NewFromFloat(price)
	qty := decimal.NewFromInt(int64(pos.Quantity))

	move := exit.Sub(entry)
	if !pos.Type.Bullish() {
		move = entry.Sub(exit)
	}
	p := move.Mul(qty)

	notional := entry.Mul(qty)
	if notional.IsZero() {
		return p.Round(2).InexactFloat64(), 0
	}
	return p.Round(2).InexactFloat64(), p.Div(notional).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
}

// Summarize computes win rate, profit factor and drawdown over closed
// positions. Open positions are ignored. Drawdown is measured on
// cumulative P&L in exit-time order, starting from a flat book.
func Summarize(positions []models.Position, windowDays int) models.PerformanceSnapshot {
	closed := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if p.Exit != nil {
			closed = append(closed, p)
		}
	}

	snap := models.PerformanceSnapshot{WindowDays: windowDays}
	if len(closed) == 0 {
		return snap
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Exit.Time.Before(closed[j].Exit.Time)
	})

	var (
		total, grossProfit, grossLoss decimal.Decimal
		cumulative, peak, drawdown    decimal.Decimal
	)
	for _, p := range closed {
		pnl := decimal.NewFromFloat(p.Exit.PnL)
		total = total.Add(pnl)

		switch pnl.Sign() {
		case 1:
			snap.WinningTrades++
			grossProfit = grossProfit.Add(pnl)
		case -1:
			snap.LosingTrades++
			grossLoss = grossLoss.Add(pnl.Abs())
		}

		cumulative = cumulative.Add(pnl)
		peak = decimal.Max(peak, cumulative)
		drawdown = decimal.Min(drawdown, cumulative.Sub(peak))
	}

	n := decimal.NewFromInt(int64(len(closed)))
	snap.TotalTrades = len(closed)
	snap.WinRate = decimal.NewFromInt(int64(snap.WinningTrades)).Div(n).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	snap.TotalPnL = total.Round(2).InexactFloat64()
	snap.AvgPnL = total.Div(n).Round(2).InexactFloat64()
	snap.MaxDrawdown = drawdown.Round(2).InexactFloat64()

	if snap.WinningTrades > 0 {
		snap.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(snap.WinningTrades))).Round(2).InexactFloat64()
	}
	if snap.LosingTrades > 0 {
		snap.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(snap.LosingTrades))).Round(2).InexactFloat64()
	}

	switch {
	case grossLoss.IsPositive():
		snap.ProfitFactor = models.ProfitFactor(grossProfit.Div(grossLoss).Round(2).InexactFloat64())
	case grossProfit.IsPositive():
		snap.ProfitFactor = models.ProfitFactor(math.Inf(1))
	}

	return snap
}
