// Package store provides the position ledger interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"oi-reversal/internal/models"
)

// Ledger persists market snapshots, signals, positions, performance rollups
// and strategy parameters. It is the only owner of position state; callers
// mutate positions through OpenPosition and ClosePosition.
type Ledger interface {
	// Market data
	SaveMarketData(ctx context.Context, snap *models.Snapshot) (int64, error)

	// Signals
	SaveSignal(ctx context.Context, sig *models.Signal) (int64, error)
	UpdateSignalStatus(ctx context.Context, id int64, status models.SignalStatus) error
	GetRecentSignals(ctx context.Context, filter SignalFilter) ([]models.Signal, error)

	// Positions
	OpenPosition(ctx context.Context, pos *models.Position) (int64, error)
	ClosePosition(ctx context.Context, id int64, exit models.PositionExit) error
	GetPosition(ctx context.Context, id int64) (*models.Position, error)
	GetOpenPositions(ctx context.Context, symbol string) ([]models.Position, error)
	GetClosedPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error)

	// Performance
	UpsertDailyPerformance(ctx context.Context, date time.Time, perf models.PerformanceSnapshot) error
	GetPnLHistory(ctx context.Context, days int) ([]models.PnLPoint, error)

	// Parameters
	GetParameters(ctx context.Context) (map[string]float64, error)
	UpdateParameter(ctx context.Context, name string, value float64) error

	// Lifecycle
	Close() error
}

// SignalFilter represents filters for querying signals.
type SignalFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}

// PositionFilter represents filters for querying closed positions.
type PositionFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
