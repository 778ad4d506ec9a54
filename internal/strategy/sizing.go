package strategy

import (
	"math"

	"oi-reversal/internal/models"
)

// Reversal sizing bands around spot.
const (
	unitRiskFraction = 0.03
	stopBand         = 0.03
	targetBand       = 0.15
)

// Sizing is the output of the position sizer.
type Sizing struct {
	Quantity    int
	RiskAmount  float64
	StopLoss    float64
	TargetPrice float64
}

// CalculatePositionSize risks max_risk_per_trade percent of capital, treating
// 3% of spot as the risk per unit. Quantity is at least 1.
func (e *Engine) CalculatePositionSize(sig *models.Signal, spot float64) Sizing {
	return PositionSize(e.cfg.Capital, e.params.MaxRiskPerTrade, sig.Type, spot)
}

// PositionSize is the stateless form of CalculatePositionSize.
func PositionSize(capital, maxRiskPct float64, side models.OptionType, spot float64) Sizing {
	s := Sizing{
		Quantity:   1,
		RiskAmount: capital * maxRiskPct / 100,
	}
	if spot <= 0 {
		return s
	}

	if q := int(math.Floor(s.RiskAmount / (spot * unitRiskFraction))); q > 1 {
		s.Quantity = q
	}

	if side == models.OptionCall {
		s.StopLoss = spot * (1 - stopBand)
		s.TargetPrice = spot * (1 + targetBand)
	} else {
		s.StopLoss = spot * (1 + stopBand)
		s.TargetPrice = spot * (1 - targetBand)
	}
	return s
}
