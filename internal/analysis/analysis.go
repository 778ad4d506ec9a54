// Package analysis turns an options-chain snapshot into sentiment, a
// volatility-regime proxy, best-signal candidates and a single trading
// decision. Every figure here is a heuristic over OI and volume
// distribution, not an option-pricing model.
package analysis

import (
	"math"
	"time"

	"oi-reversal/internal/models"
)

// DefaultDisplayRecords is how many normalized strikes Analyze returns.
const DefaultDisplayRecords = 20

// Options configures the snapshot analytics view.
type Options struct {
	Normalize      NormalizeOptions
	Decision       DecisionConfig
	DisplayRecords int
}

// DefaultOptions returns the index-instrument defaults.
func DefaultOptions() Options {
	return Options{
		Normalize:      DefaultNormalizeOptions(),
		Decision:       DefaultDecisionConfig(),
		DisplayRecords: DefaultDisplayRecords,
	}
}

// Analyze runs the snapshot analytics pipeline for one raw capture.
// An empty or spot-less capture yields neutral defaults and a HOLD decision.
func Analyze(raw *models.RawSnapshot, opts Options) models.SnapshotAnalysis {
	snap := Normalize(raw, opts.Normalize)

	signals := DetectBestSignals(snap.Records)
	for i := range signals {
		signals[i].Symbol = snap.Symbol
	}
	sentiment := ComputeSentiment(snap.Records)
	volatility := ComputeVolatility(snap.Records, snap.SpotPrice)
	decision := Decide(signals, sentiment, volatility, snap.SpotPrice, opts.Decision)

	records := snap.Records
	if opts.DisplayRecords > 0 && len(records) > opts.DisplayRecords {
		records = records[:opts.DisplayRecords]
	}

	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return models.SnapshotAnalysis{
		Symbol:     snap.Symbol,
		SpotPrice:  snap.SpotPrice,
		Records:    records,
		Signals:    signals,
		Sentiment:  sentiment,
		Volatility: volatility,
		Decision:   decision,
		Timestamp:  ts,
	}
}

func round(v float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Round(v*m) / m
}
