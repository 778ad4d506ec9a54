package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"oi-reversal/internal/models"
)

// recordsGen generates strike records with arbitrary non-negative OI.
func recordsGen() gopter.Gen {
	recordGen := gen.Struct(reflect.TypeOf(models.StrikeRecord{}), map[string]gopter.Gen{
		"CallOI":     gen.Int64Range(0, 5_000_000),
		"PutOI":      gen.Int64Range(0, 5_000_000),
		"CallVolume": gen.Int64Range(0, 50_000),
		"PutVolume":  gen.Int64Range(0, 50_000),
	})
	return gen.SliceOfN(12, recordGen).Map(func(records []models.StrikeRecord) []models.StrikeRecord {
		for i := range records {
			records[i].Strike = 24700 + float64(i)*50
			records[i].SpotPrice = 25000
			records[i].OIRatio = OIRatio(records[i].CallOI, records[i].PutOI)
		}
		return records
	})
}

// Property: sentiment score and confidence stay within [0, 100].
func TestSentimentBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("score and confidence bounded", prop.ForAll(
		func(records []models.StrikeRecord) bool {
			s := ComputeSentiment(records)
			if s.Score < 0 || s.Score > 100 {
				t.Logf("score out of range: %v", s.Score)
				return false
			}
			if s.Confidence < 0 || s.Confidence > 100 {
				t.Logf("confidence out of range: %v", s.Confidence)
				return false
			}
			return true
		},
		recordsGen(),
	))

	properties.TestingRun(t)
}

// Property: normalized records are ascending, non-empty in OI and inside the ATM window.
func TestNormalizeWindowProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("records ordered and within window", prop.ForAll(
		func(spot float64, limit int, strikes []float64) bool {
			raw := &models.RawSnapshot{Symbol: "NIFTY", SpotPrice: spot}
			for i, k := range strikes {
				raw.Strikes = append(raw.Strikes, models.RawStrike{
					Strike: k, CallOI: int64(i % 3 * 100), PutOI: int64(i % 2 * 100),
				})
			}
			opts := NormalizeOptions{ATMStrikesLimit: limit, StrikeInterval: 50}
			snap := Normalize(raw, opts)

			for i, r := range snap.Records {
				if r.TotalOI() == 0 {
					t.Logf("zero-OI record kept at %v", r.Strike)
					return false
				}
				if d := r.Strike - spot; d > opts.MaxDistance() || -d > opts.MaxDistance() {
					t.Logf("strike %v outside window around %v", r.Strike, spot)
					return false
				}
				if i > 0 && snap.Records[i-1].Strike > r.Strike {
					t.Logf("records not ascending at %d", i)
					return false
				}
			}
			return true
		},
		gen.Float64Range(20000, 30000),
		gen.IntRange(1, 10),
		gen.SliceOf(gen.Float64Range(19000, 31000)),
	))

	properties.TestingRun(t)
}

// Property: best-signal confidence never exceeds 95.
func TestBestSignalConfidenceCapProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("confidence capped", prop.ForAll(
		func(records []models.StrikeRecord) bool {
			for _, s := range DetectBestSignals(records) {
				if s.Confidence > 95 || s.Confidence < 0 {
					t.Logf("confidence %v at strike %v", s.Confidence, s.Strike)
					return false
				}
			}
			return true
		},
		recordsGen(),
	))

	properties.TestingRun(t)
}
