// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"oi-reversal/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "oi-reversal", "logs", "oitrader.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	// Create multi-writer
	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stderr
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	// Set log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Create logger
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithPositionID adds a position ID to the logger context.
func WithPositionID(logger zerolog.Logger, id int64) zerolog.Logger {
	return logger.With().Int64("position_id", id).Logger()
}

// LogSignal logs a detected signal.
func LogSignal(logger zerolog.Logger, sig *models.Signal) {
	logger.Info().
		Str("event", "signal").
		Str("symbol", sig.Symbol).
		Str("type", string(sig.Type)).
		Float64("strike", sig.Strike).
		Float64("oi_ratio", sig.OIRatio).
		Float64("confidence", sig.Confidence).
		Str("strength", string(sig.Strength)).
		Msg("Signal detected")
}

// LogPositionOpened logs a position entry.
func LogPositionOpened(logger zerolog.Logger, pos *models.Position) {
	logger.Info().
		Str("event", "position_opened").
		Int64("position_id", pos.ID).
		Str("symbol", pos.Symbol).
		Str("position_type", string(pos.Type)).
		Float64("strike", pos.StrikePrice).
		Float64("entry_price", pos.EntryPrice).
		Int("quantity", pos.Quantity).
		Float64("stop_loss", pos.StopLoss).
		Float64("target", pos.TargetPrice).
		Msg("Position opened")
}

// LogPositionClosed logs a position exit.
func LogPositionClosed(logger zerolog.Logger, pos *models.Position) {
	event := logger.Info().
		Str("event", "position_closed").
		Int64("position_id", pos.ID).
		Str("symbol", pos.Symbol).
		Str("position_type", string(pos.Type))
	if pos.Exit != nil {
		event = event.
			Float64("exit_price", pos.Exit.Price).
			Str("reason", string(pos.Exit.Reason)).
			Float64("pnl", pos.Exit.PnL).
			Float64("pnl_pct", pos.Exit.PnLPercentage)
	}
	event.Msg("Position closed")
}

// LogCycle logs the outcome of one strategy cycle.
func LogCycle(logger zerolog.Logger, result models.CycleResult, duration time.Duration) {
	logger.Info().
		Str("event", "cycle").
		Str("symbol", result.Symbol).
		Int("signals", result.SignalsDetected).
		Int("opened", result.PositionsOpened).
		Int("closed", result.PositionsClosed).
		Float64("total_pnl", result.TotalPnL).
		Dur("duration", duration).
		Msg("Cycle completed")
}

// LogAPICall logs an API call.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("API call failed")
	} else {
		event.Msg("API call completed")
	}
}
