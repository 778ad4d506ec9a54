package strategy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/logging"
	"oi-reversal/internal/models"
	"oi-reversal/internal/performance"
)

// signalNamespace scopes signal fingerprints.
var signalNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("oi-reversal.signal"))

// Fingerprint identifies a signal by symbol, side, strike and snapshot time.
// Replaying the same snapshot yields the same fingerprint.
func Fingerprint(sig *models.Signal) string {
	key := strings.Join([]string{
		strings.ToUpper(sig.Symbol),
		string(sig.Type),
		strconv.FormatFloat(sig.Strike, 'f', 2, 64),
		strconv.FormatInt(sig.Timestamp.UTC().UnixNano(), 10),
	}, "|")
	return uuid.NewSHA1(signalNamespace, []byte(key)).String()
}

// ExecuteSignal persists sig, sizes it and opens a long position using spot
// as the entry-price proxy. It returns the new position id. With
// de-duplication on, a replayed signal fails with ErrDuplicateSignal and
// opens nothing.
func (e *Engine) ExecuteSignal(ctx context.Context, sig *models.Signal, spot float64) (int64, error) {
	if spot <= 0 {
		return 0, apperrors.NewDataError("spot", sig.Symbol, "cannot execute signal", apperrors.ErrNoSpotPrice)
	}

	if e.cfg.DedupeSignals && sig.Fingerprint == "" {
		sig.Fingerprint = Fingerprint(sig)
	}
	if sig.Status == "" {
		sig.Status = models.SignalActive
	}

	signalID, err := e.ledger.SaveSignal(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("failed to save signal: %w", err)
	}
	sig.ID = signalID

	size := e.CalculatePositionSize(sig, spot)
	pos := &models.Position{
		SignalID:    signalID,
		Symbol:      sig.Symbol,
		Type:        models.PositionTypeFor(sig.Type),
		StrikePrice: sig.Strike,
		EntryPrice:  spot,
		EntryTime:   e.now(),
		Quantity:    size.Quantity,
		StopLoss:    size.StopLoss,
		TargetPrice: size.TargetPrice,
		Confidence:  sig.Confidence,
	}

	id, err := e.ledger.OpenPosition(ctx, pos)
	if err != nil {
		return 0, fmt.Errorf("failed to open position: %w", err)
	}
	pos.ID = id

	if err := e.ledger.UpdateSignalStatus(ctx, signalID, models.SignalExecuted); err != nil {
		e.logger.Warn().Err(err).Int64("signal_id", signalID).Msg("Failed to mark signal executed")
	} else {
		sig.Status = models.SignalExecuted
	}

	logging.LogPositionOpened(logging.WithSymbol(e.logger, pos.Symbol), pos)
	if err := e.notifier.SendPositionOpened(ctx, pos, sig); err != nil {
		e.logger.Warn().Err(err).Msg("Position notification failed")
	}
	return id, nil
}

// ClosePosition closes an open position at price with the given reason.
// P&L is computed here; the ledger only records it.
func (e *Engine) ClosePosition(ctx context.Context, id int64, price float64, reason models.ExitReason, detail string) (*models.Position, error) {
	pos, err := e.ledger.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.closePosition(ctx, pos, price, reason, detail)
}

func (e *Engine) closePosition(ctx context.Context, pos *models.Position, price float64, reason models.ExitReason, detail string) (*models.Position, error) {
	if !pos.IsOpen() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrPositionClosed, pos.ID)
	}
	if price <= 0 {
		return nil, apperrors.NewValidationError("exit_price", price, "must be positive")
	}

	pnl, pct := performance.RealizedPnL(pos, price)
	exit := models.PositionExit{
		Price:         price,
		Time:          e.now(),
		Reason:        reason,
		Detail:        detail,
		PnL:           pnl,
		PnLPercentage: pct,
	}
	if err := e.ledger.ClosePosition(ctx, pos.ID, exit); err != nil {
		return nil, fmt.Errorf("failed to close position %d: %w", pos.ID, err)
	}

	closed := *pos
	closed.Exit = &exit

	logging.LogPositionClosed(logging.WithSymbol(e.logger, closed.Symbol), &closed)
	if err := e.notifier.SendPositionClosed(ctx, &closed); err != nil {
		e.logger.Warn().Err(err).Msg("Position notification failed")
	}
	return &closed, nil
}
