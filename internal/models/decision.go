package models

import "time"

// Action is the recommendation of the snapshot decision view.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionWatch Action = "WATCH"
	ActionHold  Action = "HOLD"
)

// RiskLevel grades a decision by its position size.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
)

// Decision is the single best-signal trading decision for a snapshot.
// PositionSize is a percentage of capital. StopLoss and Target are zero
// when no signal backs the decision.
type Decision struct {
	Action          Action     `json:"action"`
	Confidence      float64    `json:"confidence"`
	Reason          string     `json:"reason"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	PositionSize    float64    `json:"position_size"`
	StopLoss        float64    `json:"stop_loss,omitempty"`
	Target          float64    `json:"target,omitempty"`
	RewardRiskRatio float64    `json:"reward_risk_ratio,omitempty"`
	SignalType      OptionType `json:"signal_type,omitempty"`
	StrikePrice     float64    `json:"strike_price,omitempty"`
}

// SnapshotAnalysis is the full analytics view for one symbol.
type SnapshotAnalysis struct {
	Symbol     string         `json:"symbol"`
	SpotPrice  float64        `json:"spot_price"`
	Records    []StrikeRecord `json:"data"`
	Signals    []Signal       `json:"signals"`
	Sentiment  Sentiment      `json:"sentiment"`
	Volatility Volatility     `json:"volatility"`
	Decision   Decision       `json:"trading_decision"`
	Timestamp  time.Time      `json:"timestamp"`
}
