package analysis

import (
	"math"

	"oi-reversal/internal/models"
)

// Best-signal ratio bands.
const (
	veryStrongPutRatio  = 2.5
	strongPutRatio      = 2.0
	veryStrongCallRatio = 0.4
	strongCallRatio     = 0.5
)

// Signal labels shown in the analytics view.
const (
	LabelStrongBearish = "STRONG BEARISH REVERSAL"
	LabelBearish       = "BEARISH REVERSAL"
	LabelStrongBullish = "STRONG BULLISH REVERSAL"
	LabelBullish       = "BULLISH REVERSAL"
)

// DetectBestSignals evaluates each record against the fixed ratio bands and
// returns every signal that fires, in strike order. Records are assumed to
// be ATM-filtered already. A zero-sentinel ratio (no call OI) reads as the
// most extreme call-side band.
func DetectBestSignals(records []models.StrikeRecord) []models.Signal {
	signals := make([]models.Signal, 0)
	for _, r := range records {
		sig, ok := bestSignalFor(r)
		if ok {
			signals = append(signals, sig)
		}
	}
	return signals
}

func bestSignalFor(r models.StrikeRecord) (models.Signal, bool) {
	ratio := r.OIRatio
	sig := models.Signal{
		Strike:          r.Strike,
		EntryTrigger:    models.TriggerExtremeRatio,
		OIRatio:         round(ratio, 2),
		CallOI:          r.CallOI,
		PutOI:           r.PutOI,
		SpotPrice:       r.SpotPrice,
		ExpectedWinRate: models.ExpectedWinRate,
		Status:          models.SignalActive,
		Timestamp:       r.Timestamp,
	}

	switch {
	case ratio > veryStrongPutRatio:
		sig.Type = models.OptionPut
		sig.Label = LabelStrongBearish
		sig.Strength = models.StrengthVeryStrong
		sig.Confidence = math.Min(95, 70+(ratio-2.5)*10)
	case ratio > strongPutRatio:
		sig.Type = models.OptionPut
		sig.Label = LabelBearish
		sig.Strength = models.StrengthStrong
		sig.Confidence = math.Min(85, 60+(ratio-2)*12)
	case ratio < veryStrongCallRatio:
		sig.Type = models.OptionCall
		sig.Label = LabelStrongBullish
		sig.Strength = models.StrengthVeryStrong
		if ratio <= 0 {
			sig.Confidence = 95
		} else {
			sig.Confidence = math.Min(95, 70+(1/ratio-2.5)*10)
		}
	case ratio < strongCallRatio:
		sig.Type = models.OptionCall
		sig.Label = LabelBullish
		sig.Strength = models.StrengthStrong
		sig.Confidence = math.Min(85, 60+(1/ratio-2)*12)
	default:
		return models.Signal{}, false
	}

	sig.Confidence = round(sig.Confidence, 1)
	return sig, true
}
