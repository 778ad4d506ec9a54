package strategy

import (
	"context"
	"fmt"

	"oi-reversal/internal/logging"
	"oi-reversal/internal/models"
)

// ExitDecision is the outcome of evaluating one open position.
type ExitDecision struct {
	Exit   bool
	Reason models.ExitReason
	Detail string
}

// Hold reports whether the position stays open.
func (d ExitDecision) Hold() bool {
	return !d.Exit
}

// EvaluateExit checks, in priority order, the profit target, OI
// normalization at the position's strike and the stop loss. Without a spot
// price the position is held. Without strike data at the position's strike
// only the price checks apply.
func EvaluateExit(pos *models.Position, snap *models.Snapshot, params models.StrategyParameters) ExitDecision {
	spot := snap.SpotPrice
	if spot <= 0 {
		return ExitDecision{Detail: "no current market data"}
	}

	if pct := pos.PnLPercentAt(spot); pct >= params.ProfitTargetPct {
		return ExitDecision{
			Exit:   true,
			Reason: models.ExitTargetHit,
			Detail: fmt.Sprintf("profit target hit (%.1f%%)", pct),
		}
	}

	if r, ok := snap.RecordAt(pos.StrikePrice); ok && r.CallOI > 0 {
		ratio := float64(r.PutOI) / float64(r.CallOI)
		normalized := false
		if pos.Type.Bullish() {
			// Bet against put crowding; puts have unwound.
			normalized = ratio <= 1/params.OINormalizationThreshold
		} else {
			// Bet against call crowding; calls have unwound.
			normalized = ratio >= params.OINormalizationThreshold
		}
		if normalized {
			return ExitDecision{
				Exit:   true,
				Reason: models.ExitOINormalized,
				Detail: fmt.Sprintf("OI normalized (ratio: %.2f)", ratio),
			}
		}
	}

	if pos.StopLoss > 0 {
		hit := spot >= pos.StopLoss
		if pos.Type.Bullish() {
			hit = spot <= pos.StopLoss
		}
		if hit {
			return ExitDecision{
				Exit:   true,
				Reason: models.ExitStopLoss,
				Detail: fmt.Sprintf("stop loss hit at %.2f", spot),
			}
		}
	}

	return ExitDecision{Detail: "hold position"}
}

// MonitorPositions evaluates every open position of the snapshot's symbol
// and closes those that meet an exit condition at spot. A failed close is
// logged and the remaining positions are still evaluated.
func (e *Engine) MonitorPositions(ctx context.Context, snap *models.Snapshot) (int, error) {
	open, err := e.ledger.GetOpenPositions(ctx, snap.Symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to load open positions: %w", err)
	}

	closed := 0
	for i := range open {
		pos := &open[i]
		decision := EvaluateExit(pos, snap, e.params)
		if decision.Hold() {
			continue
		}

		if _, err := e.closePosition(ctx, pos, snap.SpotPrice, decision.Reason, decision.Detail); err != nil {
			plog := logging.WithPositionID(e.logger, pos.ID)
			plog.Error().Err(err).Msg("Failed to close position")
			continue
		}
		closed++
	}
	return closed, nil
}
