package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oi-reversal/internal/models"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	buf.Reset()
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
}

func TestNewLoggerWithConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oitrader.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:      "info",
		File:       true,
		FilePath:   path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})

	logger.Info().Str("symbol", "NIFTY").Msg("hello")
	logger.Debug().Msg("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"NIFTY"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestEventLoggers(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := WithSymbol(zerolog.New(&buf), "NIFTY")

	LogSignal(logger, &models.Signal{Symbol: "NIFTY", Type: models.OptionPut, Strike: 25000, OIRatio: 0.1, Confidence: 95})
	entry := decodeLine(t, &buf)
	assert.Equal(t, "signal", entry["event"])
	assert.Equal(t, "PUT", entry["type"])
	assert.Equal(t, 95.0, entry["confidence"])

	pos := &models.Position{ID: 4, Symbol: "NIFTY", Type: models.LongPut, EntryPrice: 25000, Quantity: 2}
	LogPositionClosed(WithPositionID(logger, pos.ID), pos)
	entry = decodeLine(t, &buf)
	assert.Equal(t, "position_closed", entry["event"])
	assert.NotContains(t, entry, "pnl", "open position has no exit fields")

	pos.Exit = &models.PositionExit{Price: 24000, Reason: models.ExitTargetHit, PnL: 2000, PnLPercentage: 4}
	LogPositionClosed(logger, pos)
	entry = decodeLine(t, &buf)
	assert.Equal(t, "TARGET_HIT", entry["reason"])
	assert.Equal(t, 2000.0, entry["pnl"])

	LogCycle(logger, models.CycleResult{Symbol: "NIFTY", SignalsDetected: 3, PositionsOpened: 2}, time.Second)
	entry = decodeLine(t, &buf)
	assert.Equal(t, 3.0, entry["signals"])
	assert.Equal(t, 2.0, entry["opened"])

	LogAPICall(logger, "GET", "/api/option-chain-indices", 10*time.Millisecond, errors.New("forbidden"))
	entry = decodeLine(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "forbidden", entry["error"])
	assert.Equal(t, "API call failed", entry["message"])
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.Equal(t, "oitrader.log", filepath.Base(cfg.FilePath))
}
