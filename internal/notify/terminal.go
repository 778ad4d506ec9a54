package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"oi-reversal/internal/config"
)

// TerminalNotifier prints notifications to a terminal, one block per event.
type TerminalNotifier struct {
	out          io.Writer
	enabled      bool
	bellEnabled  bool
	colorEnabled bool
	mu           sync.Mutex
}

// NewTerminalNotifier creates a terminal channel writing to out.
func NewTerminalNotifier(out io.Writer, cfg config.TerminalConfig) *TerminalNotifier {
	return &TerminalNotifier{
		out:          out,
		enabled:      cfg.Enabled,
		bellEnabled:  cfg.Bell,
		colorEnabled: !color.NoColor,
	}
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	return tn.enabled
}

// Send prints the notification. Trade and error events ring the bell when
// enabled.
func (tn *TerminalNotifier) Send(_ context.Context, n Notification) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	text := FormatNotification(n, tn.colorEnabled)
	if tn.bellEnabled && n.Type != NotificationSummary {
		text = "\a" + text
	}
	_, err := fmt.Fprintln(tn.out, text)
	return err
}

// FormatNotification renders a notification as terminal text.
func FormatNotification(n Notification, colorEnabled bool) string {
	var indicator string
	var c *color.Color

	switch n.Type {
	case NotificationTrade:
		indicator = "💹 TRADE"
		c = color.New(color.FgMagenta, color.Bold)
	case NotificationError:
		indicator = "❌ ERROR"
		c = color.New(color.FgRed, color.Bold)
	case NotificationSummary:
		indicator = "📊 SUMMARY"
		c = color.New(color.FgCyan)
	default:
		indicator = "ℹ️  INFO"
		c = color.New(color.FgWhite)
	}

	header := fmt.Sprintf("[%s] %s", n.Timestamp.Format("15:04:05"), indicator)
	if colorEnabled {
		c.EnableColor()
		header = c.Sprint(header)
	} else {
		c.DisableColor()
	}

	var sb strings.Builder
	sb.WriteString(header)
	if n.Symbol != "" {
		sb.WriteString(" | " + n.Symbol)
	}
	sb.WriteString(" | " + n.Title)
	for _, line := range strings.Split(strings.TrimRight(n.Message, "\n"), "\n") {
		if line == "" {
			continue
		}
		sb.WriteString("\n    " + line)
	}
	return sb.String()
}
