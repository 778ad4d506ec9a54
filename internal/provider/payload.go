package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
	"oi-reversal/pkg/utils"
)

// nseTimestampLayout is the records.timestamp format, in IST.
const nseTimestampLayout = "02-Jan-2006 15:04:05"

// nseChain is the subset of the NSE option-chain response we read.
type nseChain struct {
	Records struct {
		ExpiryDates     []string `json:"expiryDates"`
		Timestamp       string   `json:"timestamp"`
		UnderlyingValue float64  `json:"underlyingValue"`
		Data            []nseRow `json:"data"`
	} `json:"records"`
}

type nseRow struct {
	StrikePrice float64 `json:"strikePrice"`
	ExpiryDate  string  `json:"expiryDate"`
	CE          *nseLeg `json:"CE"`
	PE          *nseLeg `json:"PE"`
}

type nseLeg struct {
	OpenInterest      float64 `json:"openInterest"`
	TotalTradedVolume float64 `json:"totalTradedVolume"`
}

// DecodeNSE parses an NSE option-chain body into a raw snapshot. Only the
// nearest expiry is kept when the payload lists expiries. A body without
// records is ErrUnexpectedPayload; an empty row set is not an error.
func DecodeNSE(symbol string, body []byte) (*models.RawSnapshot, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<") {
		return nil, apperrors.NewDataError("option_chain", symbol, "upstream returned HTML", apperrors.ErrUnexpectedPayload)
	}

	var chain nseChain
	if err := json.Unmarshal(body, &chain); err != nil {
		return nil, apperrors.NewDataError("option_chain", symbol, "invalid JSON", fmt.Errorf("%w: %v", apperrors.ErrUnexpectedPayload, err))
	}
	if chain.Records.Data == nil && chain.Records.UnderlyingValue == 0 {
		return nil, apperrors.NewDataError("option_chain", symbol, "missing records", apperrors.ErrUnexpectedPayload)
	}

	snap := &models.RawSnapshot{
		Symbol:    CleanSymbol(symbol),
		SpotPrice: chain.Records.UnderlyingValue,
		Timestamp: parseNSETimestamp(chain.Records.Timestamp),
	}

	var nearest string
	if len(chain.Records.ExpiryDates) > 0 {
		nearest = chain.Records.ExpiryDates[0]
	}

	for _, row := range chain.Records.Data {
		if nearest != "" && row.ExpiryDate != "" && row.ExpiryDate != nearest {
			continue
		}
		strike := models.RawStrike{Strike: row.StrikePrice}
		if row.CE != nil {
			strike.CallOI = int64(row.CE.OpenInterest)
			strike.CallVolume = int64(row.CE.TotalTradedVolume)
		}
		if row.PE != nil {
			strike.PutOI = int64(row.PE.OpenInterest)
			strike.PutVolume = int64(row.PE.TotalTradedVolume)
		}
		snap.Strikes = append(snap.Strikes, strike)
	}

	return snap, nil
}

func parseNSETimestamp(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.ParseInLocation(nseTimestampLayout, s, utils.IndiaLocation)
	if err != nil {
		return time.Now()
	}
	return t
}
