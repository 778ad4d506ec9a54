package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oi-reversal/internal/models"
)

func record(strike float64, callOI, putOI int64) models.StrikeRecord {
	return models.StrikeRecord{Strike: strike, CallOI: callOI, PutOI: putOI, OIRatio: OIRatio(callOI, putOI)}
}

func TestNormalizeFiltersAndSorts(t *testing.T) {
	raw := &models.RawSnapshot{
		Symbol:    "NIFTY",
		SpotPrice: 25000,
		Timestamp: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		Strikes: []models.RawStrike{
			{Strike: 25100, CallOI: 500, PutOI: 1800},
			{Strike: 24000, CallOI: 100, PutOI: 100},
			{Strike: 24900, CallOI: 1000, PutOI: 100},
			{Strike: 25050, CallOI: 0, PutOI: 0},
			{Strike: 25300, CallOI: 0, PutOI: 40},
		},
	}

	snap := Normalize(raw, DefaultNormalizeOptions())

	require.Len(t, snap.Records, 3)
	assert.Equal(t, 24900.0, snap.Records[0].Strike)
	assert.Equal(t, 25100.0, snap.Records[1].Strike)
	assert.Equal(t, 25300.0, snap.Records[2].Strike)
	assert.InDelta(t, 3.6, snap.Records[1].OIRatio, 1e-9)
	assert.Zero(t, snap.Records[2].OIRatio, "no call OI yields the zero sentinel")
	assert.Equal(t, raw.Timestamp, snap.Records[0].Timestamp)
}

func TestNormalizeWithoutSpot(t *testing.T) {
	raw := &models.RawSnapshot{
		Symbol:  "NIFTY",
		Strikes: []models.RawStrike{{Strike: 25000, CallOI: 10, PutOI: 10}},
	}

	snap := Normalize(raw, DefaultNormalizeOptions())
	assert.Empty(t, snap.Records)
	assert.Empty(t, Normalize(nil, DefaultNormalizeOptions()).Records)
}

func TestComputeSentiment(t *testing.T) {
	tests := []struct {
		name      string
		records   []models.StrikeRecord
		direction models.SentimentDirection
		score     float64
	}{
		{"empty", nil, models.SentimentNeutral, 50},
		{"bearish", []models.StrikeRecord{record(25000, 1000, 2000)}, models.SentimentBearish, 75},
		{"bullish", []models.StrikeRecord{record(25000, 2000, 1000)}, models.SentimentBullish, 25},
		{"balanced", []models.StrikeRecord{record(25000, 1000, 1000)}, models.SentimentNeutral, 50},
		{"all puts", []models.StrikeRecord{record(25000, 0, 1000)}, models.SentimentBearish, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeSentiment(tt.records)
			assert.Equal(t, tt.direction, s.Direction)
			assert.InDelta(t, tt.score, s.Score, 0.05)
		})
	}
}

func TestSentimentConfidenceScalesWithOI(t *testing.T) {
	s := ComputeSentiment([]models.StrikeRecord{record(25000, 250_000, 250_000)})
	assert.InDelta(t, 50.0, s.Confidence, 1e-9)

	s = ComputeSentiment([]models.StrikeRecord{record(25000, 3_000_000, 3_000_000)})
	assert.Equal(t, 100.0, s.Confidence)
}

func TestComputeVolatility(t *testing.T) {
	spot := 25000.0

	v := ComputeVolatility([]models.StrikeRecord{record(25000, 1000, 900)}, spot)
	assert.Equal(t, models.VolatilityHigh, v.Regime)
	assert.InDelta(t, 25+0.9*15, v.IV, 0.05)

	v = ComputeVolatility([]models.StrikeRecord{record(25000, 1000, 500)}, spot)
	assert.Equal(t, models.VolatilityMedium, v.Regime)

	v = ComputeVolatility([]models.StrikeRecord{record(25000, 1000, 100)}, spot)
	assert.Equal(t, models.VolatilityLow, v.Regime)

	v = ComputeVolatility([]models.StrikeRecord{record(26000, 1000, 1000)}, spot)
	assert.Equal(t, models.VolatilityUnknown, v.Regime)
	assert.Zero(t, v.IV)

	v = ComputeVolatility([]models.StrikeRecord{record(25000, 1000, 1000)}, 0)
	assert.Equal(t, models.VolatilityUnknown, v.Regime)
}

func TestDetectBestSignalsBands(t *testing.T) {
	records := []models.StrikeRecord{
		record(24800, 100, 300),  // 3.0 very strong put
		record(24850, 100, 220),  // 2.2 strong put
		record(24900, 100, 30),   // 0.3 very strong call
		record(24950, 100, 45),   // 0.45 strong call
		record(25000, 100, 100),  // 1.0 none
		record(25050, 0, 100),    // sentinel
		record(25100, 1000, 500), // 0.5 none
	}

	signals := DetectBestSignals(records)
	require.Len(t, signals, 5)

	assert.Equal(t, models.OptionPut, signals[0].Type)
	assert.Equal(t, models.StrengthVeryStrong, signals[0].Strength)
	assert.InDelta(t, 75.0, signals[0].Confidence, 0.05)

	assert.Equal(t, models.OptionPut, signals[1].Type)
	assert.Equal(t, models.StrengthStrong, signals[1].Strength)
	assert.InDelta(t, 62.4, signals[1].Confidence, 0.05)

	assert.Equal(t, models.OptionCall, signals[2].Type)
	assert.Equal(t, LabelStrongBullish, signals[2].Label)

	assert.Equal(t, models.OptionCall, signals[3].Type)
	assert.Equal(t, models.StrengthStrong, signals[3].Strength)

	assert.Equal(t, 25050.0, signals[4].Strike)
	assert.Equal(t, 95.0, signals[4].Confidence)
	assert.Equal(t, models.ExpectedWinRate, signals[4].ExpectedWinRate)
}

func TestDecideHoldWithoutSignals(t *testing.T) {
	d := Decide(nil, models.NeutralSentiment(), models.UnknownVolatility(), 25000, DefaultDecisionConfig())
	assert.Equal(t, models.ActionHold, d.Action)
	assert.Equal(t, 60.0, d.Confidence)
	assert.Zero(t, d.PositionSize)
}

func TestDecideBuysOnStrongCall(t *testing.T) {
	signals := []models.Signal{
		{Type: models.OptionPut, Strike: 25100, Confidence: 75, OIRatio: 3.0},
		{Type: models.OptionCall, Strike: 25000, Confidence: 95, OIRatio: 0.1},
	}
	sentiment := models.Sentiment{Direction: models.SentimentBullish}
	vol := models.Volatility{Regime: models.VolatilityLow}

	d := Decide(signals, sentiment, vol, 25000, DefaultDecisionConfig())

	assert.Equal(t, models.ActionBuy, d.Action)
	assert.Equal(t, models.OptionCall, d.SignalType)
	assert.Equal(t, 25000.0, d.StrikePrice)
	assert.InDelta(t, 24250.0, d.StopLoss, 1e-6)
	assert.InDelta(t, 26500.0, d.Target, 1e-6)
	assert.InDelta(t, 2.0, d.RewardRiskRatio, 1e-9)
	// 0.02 * 0.95 * 1.2
	assert.InDelta(t, 2.3, d.PositionSize, 1e-9)
	assert.Equal(t, models.RiskLow, d.RiskLevel)
	assert.Contains(t, d.Reason, "Strong CALL signal")
}

func TestDecideSellsOnStrongPutInHighVolatility(t *testing.T) {
	signals := []models.Signal{{Type: models.OptionPut, Strike: 25000, Confidence: 90, OIRatio: 4.5}}
	cfg := DecisionConfig{MaxRiskPerTrade: 0.5, MaxPositionSize: 0.2, MinRewardRatio: 1.5}

	d := Decide(signals, models.NeutralSentiment(), models.Volatility{Regime: models.VolatilityHigh}, 25000, cfg)

	assert.Equal(t, models.ActionSell, d.Action)
	assert.InDelta(t, 25750.0, d.StopLoss, 1e-6)
	assert.InDelta(t, 23500.0, d.Target, 1e-6)
	// min(0.2, 0.5*0.9*0.7)
	assert.InDelta(t, 20.0, d.PositionSize, 1e-9)
	assert.Equal(t, models.RiskMedium, d.RiskLevel)
}

func TestDecideWatchAndHoldBands(t *testing.T) {
	cfg := DefaultDecisionConfig()

	d := Decide([]models.Signal{{Type: models.OptionPut, Confidence: 75}}, models.NeutralSentiment(), models.UnknownVolatility(), 25000, cfg)
	assert.Equal(t, models.ActionWatch, d.Action)
	assert.Zero(t, d.PositionSize)

	d = Decide([]models.Signal{{Type: models.OptionPut, Confidence: 62}}, models.NeutralSentiment(), models.UnknownVolatility(), 25000, cfg)
	assert.Equal(t, models.ActionHold, d.Action)

	// No spot means no reward/risk, so even a 95 signal cannot be acted on.
	d = Decide([]models.Signal{{Type: models.OptionCall, Confidence: 95}}, models.NeutralSentiment(), models.UnknownVolatility(), 0, cfg)
	assert.Equal(t, models.ActionWatch, d.Action)
}

func TestAnalyzeZeroOIDegradesToNeutral(t *testing.T) {
	raw := &models.RawSnapshot{
		Symbol:    "NIFTY",
		SpotPrice: 25000,
		Strikes: []models.RawStrike{
			{Strike: 24950}, {Strike: 25000}, {Strike: 25050},
		},
	}

	a := Analyze(raw, DefaultOptions())

	assert.Empty(t, a.Records)
	assert.Empty(t, a.Signals)
	assert.Equal(t, models.SentimentNeutral, a.Sentiment.Direction)
	assert.Equal(t, 50.0, a.Sentiment.Score)
	assert.Zero(t, a.Sentiment.Confidence)
	assert.Equal(t, models.VolatilityUnknown, a.Volatility.Regime)
	assert.Equal(t, models.ActionHold, a.Decision.Action)
}

func TestAnalyzeLimitsDisplayedRecords(t *testing.T) {
	raw := &models.RawSnapshot{Symbol: "NIFTY", SpotPrice: 25000}
	for i := -15; i <= 15; i++ {
		raw.Strikes = append(raw.Strikes, models.RawStrike{Strike: 25000 + float64(i)*50, CallOI: 100, PutOI: 100})
	}
	opts := DefaultOptions()
	opts.Normalize.ATMStrikesLimit = 15

	a := Analyze(raw, opts)
	assert.Len(t, a.Records, DefaultDisplayRecords)
	assert.Equal(t, "NIFTY", a.Symbol)
}
