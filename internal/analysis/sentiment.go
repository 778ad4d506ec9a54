package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"oi-reversal/internal/models"
)

// Sentiment classification bands on the aggregate put/call ratio.
const (
	bearishPCR = 1.2
	bullishPCR = 0.8

	// confidenceOIScale is the total OI treated as full liquidity.
	confidenceOIScale = 1_000_000.0

	// nearSpotFraction bounds the volatility proxy's strike set.
	nearSpotFraction = 0.02
)

// ComputeSentiment reads aggregate put/call OI across records.
// Confidence scales with total OI and is not a statistical measure.
func ComputeSentiment(records []models.StrikeRecord) models.Sentiment {
	var callOI, putOI int64
	for _, r := range records {
		callOI += r.CallOI
		putOI += r.PutOI
	}

	total := callOI + putOI
	if total == 0 {
		return models.NeutralSentiment()
	}

	s := models.Sentiment{
		Direction:   models.SentimentNeutral,
		Score:       50,
		TotalCallOI: callOI,
		TotalPutOI:  putOI,
		Confidence:  round(math.Min(100, float64(total)/confidenceOIScale*100), 1),
	}

	// All-put books are maximally bearish; the ratio itself is unbounded.
	if callOI == 0 {
		s.Direction = models.SentimentBearish
		s.Score = 100
		return s
	}

	ratio := float64(putOI) / float64(callOI)
	s.PutCallRatio = round(ratio, 2)

	switch {
	case ratio > bearishPCR:
		s.Direction = models.SentimentBearish
		s.Score = math.Min(100, 50+(ratio-1)*25)
	case ratio < bullishPCR:
		s.Direction = models.SentimentBullish
		if ratio == 0 {
			s.Score = 0
		} else {
			s.Score = math.Max(0, 50-(1/ratio-1)*25)
		}
	}
	s.Score = round(s.Score, 1)
	return s
}

// ComputeVolatility buckets the call/put OI balance of strikes within 2% of
// spot into a regime. Balanced books read as HIGH.
func ComputeVolatility(records []models.StrikeRecord, spot float64) models.Volatility {
	if spot <= 0 {
		return models.UnknownVolatility()
	}

	var calls, puts []float64
	for _, r := range records {
		if math.Abs(r.Strike-spot) < spot*nearSpotFraction {
			calls = append(calls, float64(r.CallOI))
			puts = append(puts, float64(r.PutOI))
		}
	}
	if len(calls) == 0 {
		return models.UnknownVolatility()
	}

	meanCall := stat.Mean(calls, nil)
	meanPut := stat.Mean(puts, nil)

	var concentration float64
	if hi := math.Max(meanCall, meanPut); hi > 0 {
		concentration = math.Min(meanCall, meanPut) / hi
	}

	v := models.Volatility{Concentration: round(concentration, 2)}
	switch {
	case concentration > 0.7:
		v.Regime = models.VolatilityHigh
		v.IV = 25 + concentration*15
	case concentration > 0.4:
		v.Regime = models.VolatilityMedium
		v.IV = 15 + concentration*10
	default:
		v.Regime = models.VolatilityLow
		v.IV = 5 + concentration*10
	}
	v.IV = round(v.IV, 1)
	return v
}
