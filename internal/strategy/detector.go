package strategy

import (
	"math"

	"oi-reversal/internal/models"
)

// Confidence weights of the extreme-concentration detector.
const (
	baseConfidence      = 60.0
	proximityWeight     = 20.0
	extremityWeight     = 20.0
	volumeWeight        = 10.0
	maxSignalConfidence = 95.0

	// volumeReference is the combined volume that earns full volume credit.
	volumeReference = 10000.0
)

// DetectReversals scans an ATM-filtered snapshot for extreme OI concentration.
// A put/call ratio below 1/threshold emits a PUT (against call crowding); a
// ratio above threshold emits a CALL (against put crowding). Strikes with no
// call OI are skipped and signals under min_confidence are dropped.
// interval only scales the proximity credit; the ATM window itself is the
// normalizer's.
func DetectReversals(snap *models.Snapshot, params models.StrategyParameters, interval float64) []models.Signal {
	signals := make([]models.Signal, 0)
	threshold := params.OIRatioThreshold
	if threshold <= 0 {
		return signals
	}

	for _, r := range snap.Records {
		if r.CallOI == 0 {
			continue
		}
		ratio := float64(r.PutOI) / float64(r.CallOI)

		var side models.OptionType
		switch {
		case ratio < 1/threshold:
			side = models.OptionPut
		case ratio > threshold:
			side = models.OptionCall
		default:
			continue
		}

		confidence := SignalConfidence(r, snap.SpotPrice, ratio, side, params, interval)
		if confidence < params.MinConfidence {
			continue
		}

		ts := r.Timestamp
		if ts.IsZero() {
			ts = snap.Timestamp
		}

		signals = append(signals, models.Signal{
			Symbol:          snap.Symbol,
			Type:            side,
			Strike:          r.Strike,
			EntryTrigger:    models.TriggerOIRatio2X,
			Confidence:      confidence,
			OIRatio:         ratio,
			CallOI:          r.CallOI,
			PutOI:           r.PutOI,
			SpotPrice:       snap.SpotPrice,
			Strength:        ClassifyStrength(ratio, side),
			ExpectedWinRate: models.ExpectedWinRate,
			Status:          models.SignalActive,
			Timestamp:       ts,
		})
	}
	return signals
}

// SignalConfidence scores a reversal candidate: a base of 60 plus credit
// for ATM proximity, ratio extremity against the threshold and combined
// volume, capped at 95.
func SignalConfidence(r models.StrikeRecord, spot, ratio float64, side models.OptionType, params models.StrategyParameters, interval float64) float64 {
	confidence := baseConfidence

	if window := float64(params.ATMStrikesLimit) * interval; window > 0 {
		proximity := math.Max(0, 1-math.Abs(r.Strike-spot)/window)
		confidence += proximity * proximityWeight
	}

	extremity := 1.0
	if side == models.OptionPut && ratio > 0 {
		extremity = math.Min(1, (1/ratio)/params.OIRatioThreshold)
	} else if side == models.OptionCall {
		extremity = math.Min(1, ratio/params.OIRatioThreshold)
	}
	confidence += extremity * extremityWeight

	volume := math.Min(1, float64(r.TotalVolume())/volumeReference)
	confidence += volume * volumeWeight

	return math.Round(math.Min(maxSignalConfidence, confidence)*100) / 100
}

// ClassifyStrength grades a signal by its effective ratio: the put/call
// ratio for PUT signals and its inverse for CALL signals.
func ClassifyStrength(ratio float64, side models.OptionType) models.SignalStrength {
	effective := ratio
	if side == models.OptionCall && ratio > 0 {
		effective = 1 / ratio
	}

	switch {
	case effective <= 0.3:
		return models.StrengthVeryStrong
	case effective <= 0.4:
		return models.StrengthStrong
	case effective <= 0.5:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}
