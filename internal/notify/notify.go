// Package notify delivers position, cycle and error events to webhook,
// Telegram and terminal channels.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"oi-reversal/internal/config"
	"oi-reversal/internal/models"
	"oi-reversal/pkg/utils"
)

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade   NotificationType = "trade"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the enabled channels of cfg.
// Terminal events go to out. A disabled config yields no channels.
func NewMultiNotifier(cfg config.NotificationConfig, out io.Writer) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
		now:      time.Now,
	}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if !cfg.Enabled {
		return mn
	}

	if cfg.Webhook.Enabled {
		mn.AddChannel(NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.AddChannel(NewTelegramNotifier(cfg.Telegram))
	}
	if cfg.Terminal.Enabled && out != nil {
		mn.AddChannel(NewTerminalNotifier(out, cfg.Terminal))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the configured channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	names := make([]string, 0, len(mn.channels))
	for _, ch := range mn.channels {
		names = append(names, ch.Name())
	}
	return names
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationTrade
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels. Every channel is
// tried; failures are joined into one error.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = mn.now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendPositionOpened announces a new position and the signal behind it.
func (mn *MultiNotifier) SendPositionOpened(ctx context.Context, pos *models.Position, sig *models.Signal) error {
	title := fmt.Sprintf("📥 Position Opened: %s %s %s", pos.Symbol, utils.FormatStrike(pos.StrikePrice), pos.Type)
	message := fmt.Sprintf(
		"Symbol: %s\nPosition: %s @ strike %s\nQuantity: %d\nEntry: %s\nStop: %s | Target: %s",
		pos.Symbol,
		pos.Type,
		utils.FormatStrike(pos.StrikePrice),
		pos.Quantity,
		utils.FormatIndianCurrency(pos.EntryPrice),
		utils.FormatIndianCurrency(pos.StopLoss),
		utils.FormatIndianCurrency(pos.TargetPrice),
	)

	data := map[string]interface{}{
		"position_id":   pos.ID,
		"symbol":        pos.Symbol,
		"position_type": pos.Type,
		"strike_price":  pos.StrikePrice,
		"entry_price":   pos.EntryPrice,
		"quantity":      pos.Quantity,
		"stop_loss":     pos.StopLoss,
		"target_price":  pos.TargetPrice,
	}

	if sig != nil {
		message += fmt.Sprintf("\n\nSignal: %s %s, OI ratio %.2f, confidence %.1f%%",
			sig.Strength, sig.Type, sig.OIRatio, sig.Confidence)
		data["signal_id"] = sig.ID
		data["oi_ratio"] = sig.OIRatio
		data["confidence"] = sig.Confidence
		data["signal_strength"] = sig.Strength
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Symbol:  pos.Symbol,
		Data:    data,
	})
}

// SendPositionClosed announces a closed position with its realized P&L.
func (mn *MultiNotifier) SendPositionClosed(ctx context.Context, pos *models.Position) error {
	if pos.Exit == nil {
		return fmt.Errorf("position %d has no exit", pos.ID)
	}
	exit := pos.Exit

	emoji := "🎯"
	switch exit.Reason {
	case models.ExitStopLoss:
		emoji = "🛑"
	case models.ExitOINormalized:
		emoji = "🔄"
	case models.ExitManual:
		emoji = "✋"
	}

	title := fmt.Sprintf("%s Position Closed: %s %s (%s)", emoji, pos.Symbol, pos.Type, exit.Reason)
	message := fmt.Sprintf(
		"Symbol: %s\nPosition: %s @ strike %s\nQuantity: %d\nEntry: %s\nExit: %s\nP&L: %s (%s)",
		pos.Symbol,
		pos.Type,
		utils.FormatStrike(pos.StrikePrice),
		pos.Quantity,
		utils.FormatIndianCurrency(pos.EntryPrice),
		utils.FormatIndianCurrency(exit.Price),
		utils.FormatPnL(exit.PnL),
		utils.FormatPercent(exit.PnLPercentage),
	)
	if exit.Detail != "" {
		message += "\nReason: " + exit.Detail
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Symbol:  pos.Symbol,
		Data: map[string]interface{}{
			"position_id":    pos.ID,
			"symbol":         pos.Symbol,
			"position_type":  pos.Type,
			"exit_price":     exit.Price,
			"exit_reason":    exit.Reason,
			"pnl":            exit.PnL,
			"pnl_percentage": exit.PnLPercentage,
		},
	})
}

// SendCycleSummary reports the per-symbol counts of one batch.
func (mn *MultiNotifier) SendCycleSummary(ctx context.Context, results []models.CycleResult) error {
	if len(results) == 0 {
		return nil
	}

	var signals, opened, closed int
	var sb strings.Builder
	for _, r := range results {
		signals += r.SignalsDetected
		opened += r.PositionsOpened
		closed += r.PositionsClosed
		sb.WriteString(fmt.Sprintf("%s: %d signals, %d opened, %d closed, P&L %s\n",
			r.Symbol, r.SignalsDetected, r.PositionsOpened, r.PositionsClosed, utils.FormatPnL(r.TotalPnL)))
	}

	title := fmt.Sprintf("📊 Cycle Summary - %d symbols", len(results))
	sb.WriteString(fmt.Sprintf("\nTotal: %d signals, %d opened, %d closed", signals, opened, closed))

	return mn.Send(ctx, Notification{
		Type:    NotificationSummary,
		Title:   title,
		Message: sb.String(),
		Data: map[string]interface{}{
			"symbols":          len(results),
			"signals_detected": signals,
			"positions_opened": opened,
			"positions_closed": closed,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	title := "❌ Error Occurred"
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, mn.now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}
