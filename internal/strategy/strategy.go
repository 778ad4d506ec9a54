// Package strategy implements the OI reversal strategy: extreme-concentration
// signal detection, position sizing and execution, exit evaluation and the
// per-symbol cycle that ties them together.
//
// The engine runs one cycle at a time against a single ledger and performs
// no locking of its own.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oi-reversal/internal/analysis"
	"oi-reversal/internal/models"
	"oi-reversal/internal/performance"
	"oi-reversal/internal/store"
)

// RecentSignalLimit bounds the signals counted by Status.
const RecentSignalLimit = 10

// Notifier receives position and cycle events. Delivery failures are
// logged and never fail a cycle.
type Notifier interface {
	SendPositionOpened(ctx context.Context, pos *models.Position, sig *models.Signal) error
	SendPositionClosed(ctx context.Context, pos *models.Position) error
	SendCycleSummary(ctx context.Context, results []models.CycleResult) error
	SendError(ctx context.Context, err error, errContext string) error
}

type nopNotifier struct{}

func (nopNotifier) SendPositionOpened(context.Context, *models.Position, *models.Signal) error {
	return nil
}
func (nopNotifier) SendPositionClosed(context.Context, *models.Position) error   { return nil }
func (nopNotifier) SendCycleSummary(context.Context, []models.CycleResult) error { return nil }
func (nopNotifier) SendError(context.Context, error, string) error               { return nil }

// Config holds engine settings that are not tunable strategy parameters.
type Config struct {
	Capital       float64
	DedupeSignals bool

	// StrikeInterval resolves the strike spacing for a symbol.
	// Nil means analysis.DefaultStrikeInterval for every symbol.
	StrikeInterval func(symbol string) float64
}

// DefaultConfig returns a 1,00,000 capital engine with de-duplication on.
func DefaultConfig() Config {
	return Config{Capital: 100000, DedupeSignals: true}
}

// Engine runs the reversal strategy against a ledger.
type Engine struct {
	ledger   store.Ledger
	cfg      Config
	params   models.StrategyParameters
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine loads strategy parameters from the ledger and returns an engine.
// Parameters are read once here and change only through UpdateParameter.
func NewEngine(ctx context.Context, ledger store.Ledger, cfg Config, logger zerolog.Logger) (*Engine, error) {
	stored, err := ledger.GetParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy parameters: %w", err)
	}

	return &Engine{
		ledger:   ledger,
		cfg:      cfg,
		params:   models.ParametersFromMap(stored),
		notifier: nopNotifier{},
		logger:   logger.With().Str("component", "strategy").Logger(),
		now:      time.Now,
	}, nil
}

// SetNotifier attaches an event notifier.
func (e *Engine) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	e.notifier = n
}

// Parameters returns a copy of the active parameters.
func (e *Engine) Parameters() models.StrategyParameters {
	return e.params
}

// GetParameters returns the active parameters keyed by name.
func (e *Engine) GetParameters() map[string]float64 {
	return e.params.AsMap()
}

// UpdateParameter validates, persists and activates one parameter. The
// in-memory copy changes only after the ledger accepts the value.
func (e *Engine) UpdateParameter(ctx context.Context, name string, value float64) error {
	next := e.params
	if err := next.Set(name, value); err != nil {
		return err
	}
	if err := e.ledger.UpdateParameter(ctx, name, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", name, err)
	}

	e.params = next
	e.logger.Info().Str("parameter", name).Float64("value", value).Msg("Strategy parameter updated")
	return nil
}

// Performance recomputes the trailing performance over the last days days.
func (e *Engine) Performance(ctx context.Context, days int) (models.PerformanceSnapshot, error) {
	since := e.now().AddDate(0, 0, -days)
	closed, err := e.ledger.GetClosedPositions(ctx, store.PositionFilter{Since: since})
	if err != nil {
		return models.PerformanceSnapshot{}, fmt.Errorf("failed to load closed positions: %w", err)
	}
	return performance.Summarize(closed, days), nil
}

// Status returns 30-day performance, open position and recent signal
// counts, and the active parameters.
func (e *Engine) Status(ctx context.Context) (models.StrategyStatus, error) {
	perf, err := e.Performance(ctx, performance.StatusWindowDays)
	if err != nil {
		return models.StrategyStatus{}, err
	}

	open, err := e.ledger.GetOpenPositions(ctx, "")
	if err != nil {
		return models.StrategyStatus{}, fmt.Errorf("failed to load open positions: %w", err)
	}

	recent, err := e.ledger.GetRecentSignals(ctx, store.SignalFilter{Limit: RecentSignalLimit})
	if err != nil {
		return models.StrategyStatus{}, fmt.Errorf("failed to load recent signals: %w", err)
	}

	return models.StrategyStatus{
		Performance:       perf,
		OpenPositionCount: len(open),
		RecentSignalCount: len(recent),
		Parameters:        e.params.AsMap(),
		LastUpdated:       e.now(),
	}, nil
}

func (e *Engine) strikeInterval(symbol string) float64 {
	if e.cfg.StrikeInterval != nil {
		if v := e.cfg.StrikeInterval(symbol); v > 0 {
			return v
		}
	}
	return analysis.DefaultStrikeInterval
}

func (e *Engine) normalizeOptions(symbol string) analysis.NormalizeOptions {
	return analysis.NormalizeOptions{
		ATMStrikesLimit: e.params.ATMStrikesLimit,
		StrikeInterval:  e.strikeInterval(symbol),
	}
}
