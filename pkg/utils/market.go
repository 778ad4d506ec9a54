package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// MarketSession is the NSE cash/derivatives session at an instant.
type MarketSession string

const (
	SessionPreOpen MarketSession = "PRE_OPEN"
	SessionOpen    MarketSession = "OPEN"
	SessionClosed  MarketSession = "CLOSED"
)

// Session boundaries in minutes after midnight IST.
const (
	preOpenStart = 9 * 60
	marketOpen   = 9*60 + 15
	marketClose  = 15*60 + 30
)

// SessionAt returns the market session at t. Exchange holidays are not
// modeled; weekends are closed.
func SessionAt(t time.Time) MarketSession {
	now := t.In(IndiaLocation)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return SessionClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= preOpenStart && minutes < marketOpen:
		return SessionPreOpen
	case minutes >= marketOpen && minutes < marketClose:
		return SessionOpen
	default:
		return SessionClosed
	}
}

// IsMarketOpen reports whether the regular session is open at t.
func IsMarketOpen(t time.Time) bool {
	return SessionAt(t) == SessionOpen
}

// NextMarketOpen returns the next 9:15 IST open strictly after t.
func NextMarketOpen(t time.Time) time.Time {
	now := t.In(IndiaLocation)

	// Start with today at 9:15
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 15, 0, 0, IndiaLocation)

	// If already past today's open, move to tomorrow
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	// Skip weekends
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
