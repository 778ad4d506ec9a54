package strategy

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"oi-reversal/internal/models"
	"oi-reversal/internal/provider"
	"oi-reversal/pkg/utils"
)

// DefaultSymbolDelay spaces upstream fetches within a batch.
const DefaultSymbolDelay = 2 * time.Second

// RunnerConfig configures batch and timed runs.
type RunnerConfig struct {
	Symbols       []string
	SymbolDelay   time.Duration
	CycleInterval time.Duration

	// Duration bounds Run; zero runs until the context is cancelled.
	Duration time.Duration

	// MarketHoursOnly skips timed batches outside the NSE session.
	MarketHoursOnly bool
}

// SymbolFailure records a symbol whose cycle did not complete.
type SymbolFailure struct {
	Symbol string
	Err    error
}

// BatchResult is the outcome of one pass over all symbols.
type BatchResult struct {
	Results  []models.CycleResult
	Failures []SymbolFailure
	Started  time.Time
	Finished time.Time
}

// Totals sums the per-symbol counts.
func (b BatchResult) Totals() (signals, opened, closed int) {
	for _, r := range b.Results {
		signals += r.SignalsDetected
		opened += r.PositionsOpened
		closed += r.PositionsClosed
	}
	return signals, opened, closed
}

// Runner fetches snapshots and drives engine cycles, one symbol at a time.
type Runner struct {
	engine   *Engine
	provider provider.SnapshotProvider
	cfg      RunnerConfig
	logger   zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner. A zero SymbolDelay takes DefaultSymbolDelay;
// a negative one disables the delay.
func NewRunner(engine *Engine, p provider.SnapshotProvider, cfg RunnerConfig, logger zerolog.Logger) *Runner {
	if cfg.SymbolDelay == 0 {
		cfg.SymbolDelay = DefaultSymbolDelay
	}
	return &Runner{
		engine:   engine,
		provider: p,
		cfg:      cfg,
		logger:   logger.With().Str("component", "runner").Logger(),
		now:      time.Now,
		sleep:    utils.Sleep,
	}
}

// RunOnce runs one cycle per symbol. A failing or panicking symbol is
// logged, reported and skipped. Only context cancellation ends the batch
// early; the partial result is returned with the context error.
func (r *Runner) RunOnce(ctx context.Context) (BatchResult, error) {
	batch := BatchResult{Started: r.now()}

	for i, symbol := range r.cfg.Symbols {
		if i > 0 && r.cfg.SymbolDelay > 0 {
			if err := r.sleep(ctx, r.cfg.SymbolDelay); err != nil {
				batch.Finished = r.now()
				return batch, err
			}
		}
		if err := ctx.Err(); err != nil {
			batch.Finished = r.now()
			return batch, err
		}

		result, err := r.runSymbol(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				batch.Finished = r.now()
				return batch, ctx.Err()
			}
			r.logger.Error().Err(err).Str("symbol", symbol).Msg("Cycle failed, skipping symbol")
			if nerr := r.engine.notifier.SendError(ctx, err, symbol); nerr != nil {
				r.logger.Warn().Err(nerr).Msg("Error notification failed")
			}
			batch.Failures = append(batch.Failures, SymbolFailure{Symbol: symbol, Err: err})
			continue
		}
		batch.Results = append(batch.Results, result)
	}

	batch.Finished = r.now()
	signals, opened, closed := batch.Totals()
	r.logger.Info().
		Int("symbols", len(r.cfg.Symbols)).
		Int("failed", len(batch.Failures)).
		Int("signals", signals).
		Int("opened", opened).
		Int("closed", closed).
		Dur("duration", batch.Finished.Sub(batch.Started)).
		Msg("Batch complete")
	return batch, nil
}

func (r *Runner) runSymbol(ctx context.Context, symbol string) (result models.CycleResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("symbol", symbol).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in cycle")
			err = fmt.Errorf("panic in %s cycle: %v", symbol, rec)
		}
	}()

	raw, err := r.provider.Fetch(ctx, symbol)
	if err != nil {
		return models.CycleResult{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return r.engine.RunCycle(ctx, raw)
}

// Run repeats RunOnce every CycleInterval until Duration elapses or ctx is
// cancelled. The first batch runs immediately. Reaching Duration is a
// normal finish and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.CycleInterval <= 0 {
		return fmt.Errorf("cycle interval must be positive, got %s", r.cfg.CycleInterval)
	}

	runCtx := ctx
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	r.logger.Info().
		Strs("symbols", r.cfg.Symbols).
		Dur("interval", r.cfg.CycleInterval).
		Dur("duration", r.cfg.Duration).
		Msg("Runner started")

	ticker := time.NewTicker(r.cfg.CycleInterval)
	defer ticker.Stop()

	batches := 0
	for {
		if err := r.tick(runCtx); err != nil {
			return r.finish(ctx, err, batches)
		}
		batches++

		select {
		case <-runCtx.Done():
			return r.finish(ctx, runCtx.Err(), batches)
		case <-ticker.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context) error {
	if r.cfg.MarketHoursOnly {
		if now := r.now(); !utils.IsMarketOpen(now) {
			r.logger.Info().
				Time("next_open", utils.NextMarketOpen(now)).
				Msg("Market closed, skipping batch")
			return nil
		}
	}

	batch, err := r.RunOnce(ctx)
	if len(batch.Results) > 0 {
		if nerr := r.engine.notifier.SendCycleSummary(ctx, batch.Results); nerr != nil {
			r.logger.Warn().Err(nerr).Msg("Cycle summary notification failed")
		}
	}
	return err
}

// finish maps the loop's exit error: the configured duration running out
// is a clean stop, parent cancellation is returned.
func (r *Runner) finish(parent context.Context, err error, batches int) error {
	r.logger.Info().Int("batches", batches).Msg("Runner stopped")
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return nil
	}
	return err
}
