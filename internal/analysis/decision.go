package analysis

import (
	"fmt"
	"math"

	"oi-reversal/internal/models"
)

// Stop and target bands around spot for the single-decision view.
const (
	decisionStopBand   = 0.03
	decisionTargetBand = 0.06

	holdConfidence  = 60.0
	buyConfidence   = 80.0
	watchConfidence = 70.0

	mediumRiskSize = 0.05
)

// DecisionConfig holds the sizing limits of the decision synthesizer.
// MaxRiskPerTrade and MaxPositionSize are fractions of capital.
type DecisionConfig struct {
	MaxRiskPerTrade float64
	MaxPositionSize float64
	MinRewardRatio  float64
}

// DefaultDecisionConfig returns the moderate risk profile.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		MaxRiskPerTrade: 0.02,
		MaxPositionSize: 0.10,
		MinRewardRatio:  1.5,
	}
}

// Decide picks the highest-confidence signal and turns it into an action.
func Decide(signals []models.Signal, sentiment models.Sentiment, vol models.Volatility, spot float64, cfg DecisionConfig) models.Decision {
	if len(signals) == 0 {
		return models.Decision{
			Action:     models.ActionHold,
			Confidence: holdConfidence,
			Reason:     "No strong signals detected",
			RiskLevel:  models.RiskLow,
		}
	}

	best := signals[0]
	for _, s := range signals[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}

	multiplier := 1.0
	switch {
	case vol.Regime == models.VolatilityHigh:
		multiplier = 0.7
	case sentiment.Direction.Agrees(best.Type):
		multiplier = 1.2
	}
	size := math.Min(cfg.MaxPositionSize, cfg.MaxRiskPerTrade*(best.Confidence/100)*multiplier)

	var stop, target float64
	if best.Type == models.OptionCall {
		stop = spot * (1 - decisionStopBand)
		target = spot * (1 + decisionTargetBand)
	} else {
		stop = spot * (1 + decisionStopBand)
		target = spot * (1 - decisionTargetBand)
	}
	riskAmount := math.Abs(spot - stop)
	rewardAmount := math.Abs(target - spot)
	var rr float64
	if riskAmount > 0 {
		rr = rewardAmount / riskAmount
	}

	d := models.Decision{
		Confidence:      best.Confidence,
		Reason:          fmt.Sprintf("Strong %s signal at ₹%g with OI ratio %.2f", best.Type, best.Strike, best.OIRatio),
		RiskLevel:       models.RiskLow,
		StopLoss:        round(stop, 2),
		Target:          round(target, 2),
		RewardRiskRatio: round(rr, 1),
		SignalType:      best.Type,
		StrikePrice:     best.Strike,
	}

	switch {
	case best.Confidence >= buyConfidence && rr >= cfg.MinRewardRatio:
		d.Action = models.ActionBuy
		if best.Type == models.OptionPut {
			d.Action = models.ActionSell
		}
		d.PositionSize = round(size*100, 1)
		if size > mediumRiskSize {
			d.RiskLevel = models.RiskMedium
		}
	case best.Confidence >= watchConfidence:
		d.Action = models.ActionWatch
	default:
		d.Action = models.ActionHold
	}
	return d
}
