package cli

import (
	"fmt"
	"strings"
	"time"

	"oi-reversal/internal/models"
	"oi-reversal/pkg/utils"
)

// FormatOI formats open interest in compact Indian units.
func FormatOI(oi int64) string {
	return utils.FormatCount(oi)
}

// FormatCapital formats a capital amount in lakhs or crores.
func FormatCapital(amount float64) string {
	return utils.FormatCompact(amount)
}

// FormatDateTime formats a datetime in IST.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.IndiaLocation).Format("02-Jan-2006 15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatConfidence formats a confidence percentage.
func FormatConfidence(conf float64) string {
	return fmt.Sprintf("%.1f%%", conf)
}

// FormatRatio formats an OI ratio.
func FormatRatio(r float64) string {
	return fmt.Sprintf("%.2f", r)
}

// FormatParameter renders a parameter value; whole-number parameters
// print without decimals.
func FormatParameter(name string, value float64) string {
	if spec, ok := models.LookupParameter(name); ok && spec.Integer {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%.2f", value)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if n := len([]rune(s)); n < length {
		return s + strings.Repeat(" ", length-n)
	}
	return s
}
