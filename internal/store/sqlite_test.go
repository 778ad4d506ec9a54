package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), models.DefaultStrategyParameters())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPosition(symbol string, entry float64) *models.Position {
	return &models.Position{
		Symbol:      symbol,
		Type:        models.LongCall,
		StrikePrice: 25100,
		EntryPrice:  entry,
		EntryTime:   time.Now().Add(-time.Hour),
		Quantity:    2,
		StopLoss:    entry * 0.97,
		TargetPrice: entry * 1.15,
		Confidence:  93.3,
	}
}

func TestParametersSeededOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath, models.DefaultStrategyParameters())
	require.NoError(t, err)

	params, err := s.GetParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStrategyParameters().AsMap(), params)

	require.NoError(t, s.UpdateParameter(ctx, models.ParamMinConfidence, 80))
	require.NoError(t, s.Close())

	// Reopening must not reset the edited value.
	s, err = NewSQLiteStore(dbPath, models.DefaultStrategyParameters())
	require.NoError(t, err)
	defer s.Close()

	params, err = s.GetParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80.0, params[models.ParamMinConfidence])
}

func TestSeedsApplyOnlyToFreshLedger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	seeds := models.DefaultStrategyParameters()
	seeds.OIRatioThreshold = 2.5
	s, err := NewSQLiteStore(dbPath, seeds)
	require.NoError(t, err)
	params, err := s.GetParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.5, params[models.ParamOIRatioThreshold])
	require.NoError(t, s.Close())

	seeds.OIRatioThreshold = 4
	s, err = NewSQLiteStore(dbPath, seeds)
	require.NoError(t, err)
	defer s.Close()
	params, err = s.GetParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.5, params[models.ParamOIRatioThreshold])

	bad := models.DefaultStrategyParameters()
	bad.MinConfidence = 500
	_, err = NewSQLiteStore(filepath.Join(t.TempDir(), "bad.db"), bad)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
}

func TestUpdateUnknownParameter(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateParameter(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, apperrors.ErrUnknownParameter)
}

func TestSaveMarketData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap := &models.Snapshot{
		Symbol:    "NIFTY",
		SpotPrice: 25000,
		Timestamp: time.Now(),
		Records: []models.StrikeRecord{
			{Strike: 24950, CallOI: 100, PutOI: 200, OIRatio: 2},
			{Strike: 25000, CallOI: 300, PutOI: 100, OIRatio: 1.0 / 3},
		},
	}

	id, err := s.SaveMarketData(ctx, snap)
	require.NoError(t, err)
	assert.Positive(t, id)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM strike_data WHERE market_data_id = ? AND is_atm = 1", id).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSaveSignalRejectsDuplicateFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sig := &models.Signal{
		Fingerprint:  "fp-1",
		Symbol:       "NIFTY",
		Type:         models.OptionCall,
		Strike:       25100,
		EntryTrigger: models.TriggerOIRatio2X,
		Confidence:   90,
		OIRatio:      3.6,
		Strength:     models.StrengthVeryStrong,
		Timestamp:    time.Now(),
	}

	id, err := s.SaveSignal(ctx, sig)
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.SaveSignal(ctx, sig)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSignal)

	// Signals without a fingerprint never collide.
	sig.Fingerprint = ""
	_, err = s.SaveSignal(ctx, sig)
	require.NoError(t, err)
	_, err = s.SaveSignal(ctx, sig)
	require.NoError(t, err)

	require.NoError(t, s.UpdateSignalStatus(ctx, id, models.SignalExecuted))

	signals, err := s.GetRecentSignals(ctx, SignalFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, signals, 3)

	var found bool
	for _, got := range signals {
		if got.ID == id {
			found = true
			assert.Equal(t, models.SignalExecuted, got.Status)
			assert.Equal(t, models.SentimentNeutral, got.MarketSentiment)
			assert.Equal(t, models.VolatilityMedium, got.VolatilityRegime)
		}
	}
	assert.True(t, found)
}

func TestPositionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.OpenPosition(ctx, testPosition("NIFTY", 25000))
	require.NoError(t, err)

	open, err := s.GetOpenPositions(ctx, "NIFTY")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].IsOpen())
	assert.Equal(t, models.PositionOpen, open[0].Status())

	other, err := s.GetOpenPositions(ctx, "BANKNIFTY")
	require.NoError(t, err)
	assert.Empty(t, other)

	exit := models.PositionExit{
		Price:         28750,
		Time:          time.Now(),
		Reason:        models.ExitTargetHit,
		PnL:           7500,
		PnLPercentage: 15,
	}
	require.NoError(t, s.ClosePosition(ctx, id, exit))

	pos, err := s.GetPosition(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, pos.Exit)
	assert.Equal(t, models.PositionClosed, pos.Status())
	assert.Equal(t, models.ExitTargetHit, pos.Exit.Reason)
	assert.Equal(t, 7500.0, pos.Exit.PnL)

	err = s.ClosePosition(ctx, id, exit)
	assert.ErrorIs(t, err, apperrors.ErrPositionClosed)

	err = s.ClosePosition(ctx, id+100, exit)
	assert.ErrorIs(t, err, apperrors.ErrPositionNotFound)

	closed, err := s.GetClosedPositions(ctx, PositionFilter{Since: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, closed, 1)
}

func TestOpenPositionValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pos := testPosition("NIFTY", 25000)
	pos.Quantity = 0
	_, err := s.OpenPosition(ctx, pos)
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)

	pos = testPosition("NIFTY", 25000)
	pos.Type = "STRADDLE"
	_, err = s.OpenPosition(ctx, pos)
	assert.ErrorAs(t, err, &verr)
}

func TestPnLHistoryAndRollup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, pnl := range []float64{100, -40} {
		id, err := s.OpenPosition(ctx, testPosition("NIFTY", 25000))
		require.NoError(t, err)
		require.NoError(t, s.ClosePosition(ctx, id, models.PositionExit{
			Price: 25000, Time: time.Now(), Reason: models.ExitManual, PnL: pnl,
		}))
	}

	history, err := s.GetPnLHistory(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 60.0, history[0].DailyPnL, 1e-9)

	perf := models.PerformanceSnapshot{TotalTrades: 2, ProfitFactor: models.ProfitFactor(math.Inf(1))}
	require.NoError(t, s.UpsertDailyPerformance(ctx, time.Now(), perf))
	perf.TotalTrades = 3
	perf.ProfitFactor = 2.5
	require.NoError(t, s.UpsertDailyPerformance(ctx, time.Now(), perf))

	var rows, trades int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*), MAX(total_trades) FROM performance_metrics").Scan(&rows, &trades))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 3, trades)
}

// Property: a closed position reads back with the exit it was closed with.
func TestProperty_PositionCloseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("close then read preserves exit fields", prop.ForAll(
		func(entry, exitPrice float64, qty int) bool {
			pos := testPosition("NIFTY", entry)
			pos.Quantity = qty
			id, err := s.OpenPosition(ctx, pos)
			if err != nil {
				t.Logf("open failed: %v", err)
				return false
			}

			pnl := (exitPrice - entry) * float64(qty)
			exit := models.PositionExit{
				Price:         exitPrice,
				Time:          time.Now(),
				Reason:        models.ExitStopLoss,
				PnL:           pnl,
				PnLPercentage: pnl / (entry * float64(qty)) * 100,
			}
			if err := s.ClosePosition(ctx, id, exit); err != nil {
				t.Logf("close failed: %v", err)
				return false
			}

			got, err := s.GetPosition(ctx, id)
			if err != nil || got.Exit == nil {
				t.Logf("read failed: %v", err)
				return false
			}
			return got.Quantity == qty &&
				got.Exit.Price == exitPrice &&
				got.Exit.PnL == pnl &&
				got.Exit.Reason == models.ExitStopLoss
		},
		gen.Float64Range(1000, 60000),
		gen.Float64Range(1000, 60000),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
