package models

import "time"

// SignalStrength classifies how extreme the OI imbalance behind a signal is.
type SignalStrength string

const (
	StrengthWeak       SignalStrength = "WEAK"
	StrengthModerate   SignalStrength = "MODERATE"
	StrengthStrong     SignalStrength = "STRONG"
	StrengthVeryStrong SignalStrength = "VERY_STRONG"
)

// EntryTrigger tags the rule that produced a signal.
type EntryTrigger string

const (
	TriggerOIRatio2X    EntryTrigger = "OI_RATIO_2X"
	TriggerExtremeRatio EntryTrigger = "EXTREME_RATIO"
)

// SignalStatus is the persisted lifecycle state of a signal.
type SignalStatus string

const (
	SignalActive   SignalStatus = "ACTIVE"
	SignalExecuted SignalStatus = "EXECUTED"
)

// ExpectedWinRate is the strategy's target win rate, not a measured value.
const ExpectedWinRate = 88.0

// Signal is a directional trading hypothesis derived from one strike.
// Type is the side to take, opposite the concentrated side.
type Signal struct {
	ID               int64              `json:"id,omitempty"`
	Fingerprint      string             `json:"fingerprint,omitempty"`
	Symbol           string             `json:"symbol"`
	Type             OptionType         `json:"type"`
	Strike           float64            `json:"strike"`
	EntryTrigger     EntryTrigger       `json:"entry_trigger"`
	Label            string             `json:"signal,omitempty"`
	Confidence       float64            `json:"confidence"`
	OIRatio          float64            `json:"oi_ratio"`
	CallOI           int64              `json:"call_oi"`
	PutOI            int64              `json:"put_oi"`
	SpotPrice        float64            `json:"spot_price"`
	Strength         SignalStrength     `json:"signal_strength"`
	ExpectedWinRate  float64            `json:"expected_win_rate"`
	MarketSentiment  SentimentDirection `json:"market_sentiment,omitempty"`
	VolatilityRegime VolatilityRegime   `json:"volatility_regime,omitempty"`
	Status           SignalStatus       `json:"status,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}
