package strategy

import (
	"context"
	"errors"
	"time"

	"oi-reversal/internal/analysis"
	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/logging"
	"oi-reversal/internal/models"
	"oi-reversal/internal/performance"
	"oi-reversal/internal/store"
)

// RunCycle runs one strategy pass for a raw snapshot: normalize, persist,
// detect, execute, monitor exits and recompute trailing P&L.
//
// Failures on a single signal or a single close are logged and skipped.
// A snapshot without spot or strikes is recorded as an empty cycle.
// Ledger read failures abort the cycle and are returned.
func (e *Engine) RunCycle(ctx context.Context, raw *models.RawSnapshot) (models.CycleResult, error) {
	if raw == nil {
		return models.CycleResult{}, apperrors.ErrEmptyChain
	}
	if err := ctx.Err(); err != nil {
		return models.CycleResult{}, err
	}

	start := e.now()
	logger := logging.WithSymbol(e.logger, raw.Symbol)
	result := models.CycleResult{Symbol: raw.Symbol, Timestamp: start}

	snap := analysis.Normalize(raw, e.normalizeOptions(raw.Symbol))

	if snap.SpotPrice > 0 && len(snap.Records) > 0 {
		if _, err := e.ledger.SaveMarketData(ctx, &snap); err != nil {
			logger.Error().Err(err).Msg("Failed to save market data")
		}

		sentiment := analysis.ComputeSentiment(snap.Records)
		volatility := analysis.ComputeVolatility(snap.Records, snap.SpotPrice)

		signals := DetectReversals(&snap, e.params, e.strikeInterval(snap.Symbol))
		result.SignalsDetected = len(signals)

		for i := range signals {
			sig := &signals[i]
			sig.MarketSentiment = sentiment.Direction
			sig.VolatilityRegime = volatility.Regime
			logging.LogSignal(logger, sig)

			if _, err := e.ExecuteSignal(ctx, sig, snap.SpotPrice); err != nil {
				if errors.Is(err, apperrors.ErrDuplicateSignal) {
					logger.Debug().Float64("strike", sig.Strike).Msg("Signal already recorded, skipping")
				} else {
					logger.Error().Err(err).Float64("strike", sig.Strike).Msg("Failed to execute signal")
				}
				continue
			}
			result.PositionsOpened++
		}
	} else {
		logger.Warn().
			Float64("spot", snap.SpotPrice).
			Int("strikes", len(snap.Records)).
			Msg("No usable ATM data, skipping detection")
	}

	// Target and stop only need spot; missing strike data holds the OI check.
	if snap.SpotPrice > 0 {
		closed, err := e.MonitorPositions(ctx, &snap)
		if err != nil {
			return result, err
		}
		result.PositionsClosed = closed
	}

	perf, err := e.Performance(ctx, performance.CycleWindowDays)
	if err != nil {
		return result, err
	}
	result.TotalPnL = perf.TotalPnL

	e.rollupToday(ctx)

	logging.LogCycle(logger, result, e.now().Sub(start))
	return result, nil
}

// rollupToday upserts today's performance row. Failures are logged only.
func (e *Engine) rollupToday(ctx context.Context) {
	now := e.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := e.ledger.GetClosedPositions(ctx, store.PositionFilter{Since: midnight})
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to load today's closes for rollup")
		return
	}
	if err := e.ledger.UpsertDailyPerformance(ctx, midnight, performance.Summarize(closed, 1)); err != nil {
		e.logger.Warn().Err(err).Str("date", midnight.Format("2006-01-02")).Msg("Failed to upsert daily rollup")
	}
}
