// Package models provides domain models for the OI reversal trading engine.
package models

import (
	"time"
)

// OptionType is the option side a signal recommends taking.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// SentimentDirection represents aggregate market sentiment.
type SentimentDirection string

const (
	SentimentBullish SentimentDirection = "BULLISH"
	SentimentBearish SentimentDirection = "BEARISH"
	SentimentNeutral SentimentDirection = "NEUTRAL"
)

// Agrees reports whether the sentiment points the same way as the option side.
func (s SentimentDirection) Agrees(t OptionType) bool {
	return (s == SentimentBullish && t == OptionCall) || (s == SentimentBearish && t == OptionPut)
}

// VolatilityRegime is the OI-balance volatility bucket.
type VolatilityRegime string

const (
	VolatilityHigh    VolatilityRegime = "HIGH"
	VolatilityMedium  VolatilityRegime = "MEDIUM"
	VolatilityLow     VolatilityRegime = "LOW"
	VolatilityUnknown VolatilityRegime = "UNKNOWN"
)

// Sentiment is the put/call OI read for one snapshot.
type Sentiment struct {
	Direction    SentimentDirection `json:"sentiment"`
	Score        float64            `json:"score"`
	Confidence   float64            `json:"confidence"`
	PutCallRatio float64            `json:"put_call_ratio"`
	TotalCallOI  int64              `json:"total_call_oi"`
	TotalPutOI   int64              `json:"total_put_oi"`
}

// NeutralSentiment is returned when there is no open interest to read.
func NeutralSentiment() Sentiment {
	return Sentiment{Direction: SentimentNeutral, Score: 50, Confidence: 0}
}

// Volatility is a heuristic proxy derived from near-the-money OI balance.
// IV is not a market implied volatility.
type Volatility struct {
	IV            float64          `json:"iv"`
	Regime        VolatilityRegime `json:"volatility_regime"`
	Concentration float64          `json:"oi_concentration"`
}

// UnknownVolatility is returned when no strikes sit close enough to spot.
func UnknownVolatility() Volatility {
	return Volatility{IV: 0, Regime: VolatilityUnknown}
}

// CycleResult summarizes one strategy cycle for a symbol.
type CycleResult struct {
	Symbol          string    `json:"symbol"`
	SignalsDetected int       `json:"signals_detected"`
	PositionsOpened int       `json:"positions_opened"`
	PositionsClosed int       `json:"positions_closed"`
	TotalPnL        float64   `json:"total_pnl"`
	Timestamp       time.Time `json:"timestamp"`
}
