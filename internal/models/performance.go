package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ProfitFactor is gross profit over gross loss; +Inf when there are no losses.
type ProfitFactor float64

// IsInf reports whether the factor is unbounded.
func (f ProfitFactor) IsInf() bool {
	return math.IsInf(float64(f), 1)
}

// String renders the factor, using ∞ for the unbounded case.
func (f ProfitFactor) String() string {
	if f.IsInf() {
		return "∞"
	}
	return strconv.FormatFloat(float64(f), 'f', 2, 64)
}

// MarshalJSON encodes the unbounded case as null.
func (f ProfitFactor) MarshalJSON() ([]byte, error) {
	if f.IsInf() || math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// PerformanceSnapshot aggregates closed positions within a trailing window.
// It is always recomputed from the position ledger.
type PerformanceSnapshot struct {
	WindowDays    int          `json:"window_days"`
	TotalTrades   int          `json:"total_trades"`
	WinningTrades int          `json:"winning_trades"`
	LosingTrades  int          `json:"losing_trades"`
	WinRate       float64      `json:"win_rate"`
	TotalPnL      float64      `json:"total_pnl"`
	AvgPnL        float64      `json:"avg_pnl"`
	AvgWin        float64      `json:"avg_win"`
	AvgLoss       float64      `json:"avg_loss"`
	ProfitFactor  ProfitFactor `json:"profit_factor"`
	MaxDrawdown   float64      `json:"max_drawdown"`
}

// StrategyStatus is the status view exposed to collaborators.
type StrategyStatus struct {
	Performance       PerformanceSnapshot `json:"performance"`
	OpenPositionCount int                 `json:"open_positions"`
	RecentSignalCount int                 `json:"recent_signals"`
	Parameters        map[string]float64  `json:"parameters"`
	LastUpdated       time.Time           `json:"last_updated"`
}
