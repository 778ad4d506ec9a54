package models

import "time"

// PositionType is the hypothetical option position held.
type PositionType string

const (
	LongCall  PositionType = "LONG_CALL"
	LongPut   PositionType = "LONG_PUT"
	ShortCall PositionType = "SHORT_CALL"
	ShortPut  PositionType = "SHORT_PUT"
)

// Bullish reports whether the position profits from a rising underlying.
// LONG_CALL and SHORT_PUT bet against put concentration; the other two bet
// against call concentration.
func (t PositionType) Bullish() bool {
	return t == LongCall || t == ShortPut
}

// Valid reports whether t is a known position type.
func (t PositionType) Valid() bool {
	switch t {
	case LongCall, LongPut, ShortCall, ShortPut:
		return true
	}
	return false
}

// PositionTypeFor returns the long position taken for a signal side.
func PositionTypeFor(side OptionType) PositionType {
	if side == OptionCall {
		return LongCall
	}
	return LongPut
}

// PositionStatus is OPEN until an exit is recorded.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitTargetHit    ExitReason = "TARGET_HIT"
	ExitOINormalized ExitReason = "OI_NORMALIZED"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitManual       ExitReason = "MANUAL"
)

// Position is a hypothetical trade opened from a signal.
// Exit is nil while the position is open and fully populated once closed.
type Position struct {
	ID          int64         `json:"id"`
	SignalID    int64         `json:"signal_id"`
	Symbol      string        `json:"symbol"`
	Type        PositionType  `json:"position_type"`
	StrikePrice float64       `json:"strike_price"`
	EntryPrice  float64       `json:"entry_price"`
	EntryTime   time.Time     `json:"entry_time"`
	Quantity    int           `json:"quantity"`
	StopLoss    float64       `json:"stop_loss"`
	TargetPrice float64       `json:"target_price"`
	Confidence  float64       `json:"confidence,omitempty"`
	Exit        *PositionExit `json:"exit,omitempty"`
}

// PositionExit holds the fields recorded when a position closes.
type PositionExit struct {
	Price         float64    `json:"exit_price"`
	Time          time.Time  `json:"exit_time"`
	Reason        ExitReason `json:"exit_reason"`
	Detail        string     `json:"exit_detail,omitempty"`
	PnL           float64    `json:"pnl"`
	PnLPercentage float64    `json:"pnl_percentage"`
}

// Status derives the lifecycle state from the presence of exit fields.
func (p *Position) Status() PositionStatus {
	if p.Exit == nil {
		return PositionOpen
	}
	return PositionClosed
}

// IsOpen reports whether the position has not been closed.
func (p *Position) IsOpen() bool {
	return p.Exit == nil
}

// PnLPercentAt returns the directional P&L percentage at the given price.
func (p *Position) PnLPercentAt(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Type.Bullish() {
		return (price - p.EntryPrice) / p.EntryPrice * 100
	}
	return (p.EntryPrice - price) / p.EntryPrice * 100
}

// PnLPoint is one day of realized P&L.
type PnLPoint struct {
	Date     string  `json:"date"`
	DailyPnL float64 `json:"daily_pnl"`
}
