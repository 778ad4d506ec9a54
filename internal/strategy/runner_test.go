package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
)

// scriptedProvider serves canned snapshots, errors or panics per symbol.
type scriptedProvider struct {
	snapshots map[string]*models.RawSnapshot
	errs      map[string]error
	panics    map[string]bool
	fetches   []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Fetch(_ context.Context, symbol string) (*models.RawSnapshot, error) {
	p.fetches = append(p.fetches, symbol)
	if p.panics[symbol] {
		panic("malformed chain")
	}
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	return p.snapshots[symbol], nil
}

func newTestRunner(t *testing.T, p *scriptedProvider, cfg RunnerConfig) (*Runner, *recordingNotifier, *int) {
	t.Helper()
	notifier := &recordingNotifier{}
	e := newTestEngine(t, newMemLedger(), DefaultConfig())
	e.SetNotifier(notifier)

	r := NewRunner(e, p, cfg, zerolog.Nop())
	sleeps := 0
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return r, notifier, &sleeps
}

func TestRunOnceIsolatesSymbolFailures(t *testing.T) {
	p := &scriptedProvider{
		snapshots: map[string]*models.RawSnapshot{"NIFTY": reversalChain()},
		errs:      map[string]error{"TCS": apperrors.ErrSymbolNotFound},
		panics:    map[string]bool{"BANKNIFTY": true},
	}
	r, notifier, sleeps := newTestRunner(t, p, RunnerConfig{Symbols: []string{"BANKNIFTY", "NIFTY", "TCS"}})

	batch, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BANKNIFTY", "NIFTY", "TCS"}, p.fetches)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "NIFTY", batch.Results[0].Symbol)

	require.Len(t, batch.Failures, 2)
	assert.Equal(t, "BANKNIFTY", batch.Failures[0].Symbol)
	assert.Contains(t, batch.Failures[0].Err.Error(), "panic")
	assert.ErrorIs(t, batch.Failures[1].Err, apperrors.ErrSymbolNotFound)

	signals, opened, closed := batch.Totals()
	assert.Equal(t, 3, signals)
	assert.Equal(t, 3, opened)
	assert.Equal(t, 0, closed)

	assert.Equal(t, 2, *sleeps, "delay only between symbols")
	assert.Equal(t, []string{"BANKNIFTY", "TCS"}, notifier.errs)
}

func TestRunOnceStopsOnCancellation(t *testing.T) {
	p := &scriptedProvider{snapshots: map[string]*models.RawSnapshot{"NIFTY": reversalChain()}}
	r, _, _ := newTestRunner(t, p, RunnerConfig{Symbols: []string{"NIFTY", "NIFTY"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch.Results)
	assert.Empty(t, p.fetches)
}

func TestRunStopsAfterDuration(t *testing.T) {
	p := &scriptedProvider{snapshots: map[string]*models.RawSnapshot{"NIFTY": reversalChain()}}
	r, notifier, _ := newTestRunner(t, p, RunnerConfig{
		Symbols:       []string{"NIFTY"},
		SymbolDelay:   -1,
		CycleInterval: 10 * time.Millisecond,
		Duration:      45 * time.Millisecond,
	})

	require.NoError(t, r.Run(context.Background()))
	assert.GreaterOrEqual(t, len(p.fetches), 2)
	assert.GreaterOrEqual(t, notifier.summaries, 2)
}

func TestRunReturnsParentCancellation(t *testing.T) {
	p := &scriptedProvider{snapshots: map[string]*models.RawSnapshot{"NIFTY": reversalChain()}}
	r, _, _ := newTestRunner(t, p, RunnerConfig{
		Symbols:       []string{"NIFTY"},
		CycleInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, p.fetches, 1)
}

func TestRunSkipsClosedMarket(t *testing.T) {
	p := &scriptedProvider{snapshots: map[string]*models.RawSnapshot{"NIFTY": reversalChain()}}
	r, _, _ := newTestRunner(t, p, RunnerConfig{
		Symbols:         []string{"NIFTY"},
		CycleInterval:   10 * time.Millisecond,
		Duration:        25 * time.Millisecond,
		MarketHoursOnly: true,
	})
	// Sunday.
	r.now = func() time.Time { return time.Date(2025, 10, 19, 11, 0, 0, 0, time.UTC) }

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, p.fetches)
}

func TestRunRejectsZeroInterval(t *testing.T) {
	r, _, _ := newTestRunner(t, &scriptedProvider{}, RunnerConfig{Symbols: []string{"NIFTY"}})
	assert.Error(t, r.Run(context.Background()))
}
