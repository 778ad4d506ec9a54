package models

import "time"

// RawStrike is one strike row as delivered by a snapshot provider.
type RawStrike struct {
	Strike     float64 `json:"strike"`
	CallOI     int64   `json:"call_oi"`
	PutOI      int64   `json:"put_oi"`
	CallVolume int64   `json:"call_volume"`
	PutVolume  int64   `json:"put_volume"`
}

// RawSnapshot is an options-chain capture before normalization.
// SpotPrice is zero when the provider did not report one.
type RawSnapshot struct {
	Symbol    string      `json:"symbol"`
	SpotPrice float64     `json:"spot_price"`
	Strikes   []RawStrike `json:"strikes"`
	Timestamp time.Time   `json:"timestamp"`
}

// StrikeRecord is one normalized strike at one snapshot instant.
// OIRatio is put_oi/call_oi, or 0 when call_oi is 0.
type StrikeRecord struct {
	Strike     float64   `json:"strike"`
	CallOI     int64     `json:"call_oi"`
	PutOI      int64     `json:"put_oi"`
	CallVolume int64     `json:"call_volume"`
	PutVolume  int64     `json:"put_volume"`
	OIRatio    float64   `json:"oi_ratio"`
	SpotPrice  float64   `json:"spot_price"`
	Timestamp  time.Time `json:"timestamp"`
}

// TotalOI returns combined call and put open interest.
func (r StrikeRecord) TotalOI() int64 {
	return r.CallOI + r.PutOI
}

// TotalVolume returns combined call and put volume.
func (r StrikeRecord) TotalVolume() int64 {
	return r.CallVolume + r.PutVolume
}

// Snapshot is a normalized, ATM-filtered chain ordered by ascending strike.
type Snapshot struct {
	Symbol    string         `json:"symbol"`
	SpotPrice float64        `json:"spot_price"`
	Timestamp time.Time      `json:"timestamp"`
	Records   []StrikeRecord `json:"data"`
}

// RecordAt returns the record for the given strike, if present.
func (s *Snapshot) RecordAt(strike float64) (StrikeRecord, bool) {
	for _, r := range s.Records {
		if r.Strike == strike {
			return r, true
		}
	}
	return StrikeRecord{}, false
}
