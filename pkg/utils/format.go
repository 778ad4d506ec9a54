// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// indianScale is a named power of ten in the Indian numbering system.
type indianScale struct {
	size   float64
	suffix string
}

var (
	moneyScales = []indianScale{{1e7, "Cr"}, {1e5, "L"}}
	countScales = []indianScale{{1e7, "Cr"}, {1e5, "L"}, {1e3, "K"}}
)

// scaled renders v against the first scale its magnitude reaches.
func scaled(v float64, scales []indianScale) (string, bool) {
	for _, s := range scales {
		if math.Abs(v) >= s.size {
			return fmt.Sprintf("%.2f %s", v/s.size, s.suffix), true
		}
	}
	return "", false
}

// groupIndian inserts separators into a run of digits: the last three, then
// pairs (12,34,567).
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var b strings.Builder
	if len(head)%2 == 1 {
		b.WriteString(head[:1])
		b.WriteByte(',')
		head = head[1:]
	}
	for i := 0; i < len(head); i += 2 {
		b.WriteString(head[i : i+2])
		b.WriteByte(',')
	}
	b.WriteString(tail)
	return b.String()
}

// FormatIndianCurrency formats a rupee amount with lakh/crore grouping,
// e.g. ₹1,23,456.70.
func FormatIndianCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole, frac, _ := strings.Cut(strconv.FormatFloat(amount, 'f', 2, 64), ".")
	return sign + "₹" + groupIndian(whole) + "." + frac
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatPnL is FormatIndianCurrency with an explicit + on gains.
func FormatPnL(pnl float64) string {
	if pnl > 0 {
		return "+" + FormatIndianCurrency(pnl)
	}
	return FormatIndianCurrency(pnl)
}

// FormatCompact renders capital in lakhs or crores, or in rupees below a lakh.
func FormatCompact(amount float64) string {
	if s, ok := scaled(amount, moneyScales); ok {
		return s
	}
	return FormatIndianCurrency(amount)
}

// FormatCount renders an open interest or volume count with a K/L/Cr suffix.
func FormatCount(n int64) string {
	if s, ok := scaled(float64(n), countScales); ok {
		return s
	}
	return strconv.FormatInt(n, 10)
}

// FormatStrike formats a strike price, dropping a zero fraction.
func FormatStrike(strike float64) string {
	if strike == math.Trunc(strike) && math.Abs(strike) < 1e15 {
		return groupIndian(strconv.FormatInt(int64(strike), 10))
	}
	return strconv.FormatFloat(strike, 'f', 2, 64)
}
