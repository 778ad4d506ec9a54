package analysis

import (
	"math"
	"sort"
	"time"

	"oi-reversal/internal/models"
)

// DefaultStrikeInterval is the strike spacing assumed for index options.
const DefaultStrikeInterval = 50.0

// NormalizeOptions bounds the ATM window.
type NormalizeOptions struct {
	ATMStrikesLimit int
	StrikeInterval  float64
}

// DefaultNormalizeOptions returns a six-strike window at 50-point spacing.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{ATMStrikesLimit: 6, StrikeInterval: DefaultStrikeInterval}
}

// MaxDistance is the widest distance from spot still considered ATM.
func (o NormalizeOptions) MaxDistance() float64 {
	return float64(o.ATMStrikesLimit) * o.StrikeInterval
}

// Normalize converts a raw capture into ascending StrikeRecords within the
// ATM window. Strikes with no open interest are dropped. A missing spot
// price leaves the window empty.
func Normalize(raw *models.RawSnapshot, opts NormalizeOptions) models.Snapshot {
	snap := models.Snapshot{}
	if raw == nil {
		return snap
	}

	snap.Symbol = raw.Symbol
	snap.SpotPrice = raw.SpotPrice
	snap.Timestamp = raw.Timestamp
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	if raw.SpotPrice <= 0 || opts.StrikeInterval <= 0 || opts.ATMStrikesLimit <= 0 {
		return snap
	}

	maxDistance := opts.MaxDistance()
	records := make([]models.StrikeRecord, 0, len(raw.Strikes))
	for _, s := range raw.Strikes {
		if math.Abs(s.Strike-raw.SpotPrice) > maxDistance {
			continue
		}

		r := models.StrikeRecord{
			Strike:     s.Strike,
			CallOI:     nonNegative(s.CallOI),
			PutOI:      nonNegative(s.PutOI),
			CallVolume: nonNegative(s.CallVolume),
			PutVolume:  nonNegative(s.PutVolume),
			SpotPrice:  raw.SpotPrice,
			Timestamp:  snap.Timestamp,
		}
		if r.TotalOI() == 0 {
			continue
		}
		r.OIRatio = OIRatio(r.CallOI, r.PutOI)
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Strike < records[j].Strike
	})
	snap.Records = records
	return snap
}

// OIRatio returns put/call open interest, or 0 when there is no call OI.
func OIRatio(callOI, putOI int64) float64 {
	if callOI == 0 {
		return 0
	}
	return float64(putOI) / float64(callOI)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
