// Package config provides configuration management for the OI reversal engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"oi-reversal/internal/analysis"
	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/logging"
	"oi-reversal/internal/models"
	"oi-reversal/internal/provider"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig              `mapstructure:"engine"`
	Strategy      models.StrategyParameters `mapstructure:"strategy"`
	Runner        RunnerConfig              `mapstructure:"runner"`
	Provider      ProviderConfig            `mapstructure:"provider"`
	Store         StoreConfig               `mapstructure:"store"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
	Logging       LoggingConfig             `mapstructure:"logging"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// EngineConfig holds engine settings that are not tunable at runtime.
type EngineConfig struct {
	Capital              float64            `mapstructure:"capital"`
	IndexStrikeInterval  float64            `mapstructure:"index_strike_interval"`
	EquityStrikeInterval float64            `mapstructure:"equity_strike_interval"`
	StrikeIntervals      map[string]float64 `mapstructure:"strike_intervals"` // per-symbol overrides
	IndexSymbols         []string           `mapstructure:"index_symbols"`
	RiskTolerance        string             `mapstructure:"risk_tolerance"` // conservative, moderate, aggressive
	MaxPositionSize      float64            `mapstructure:"max_position_size"`
	MinRewardRatio       float64            `mapstructure:"min_reward_ratio"`
	DedupeSignals        bool               `mapstructure:"dedupe_signals"`
}

// RunnerConfig holds batch and timed run settings.
type RunnerConfig struct {
	Symbols         []string      `mapstructure:"symbols"`
	CycleInterval   time.Duration `mapstructure:"cycle_interval"`
	SymbolDelay     time.Duration `mapstructure:"symbol_delay"`
	Duration        time.Duration `mapstructure:"duration"`
	MarketHoursOnly bool          `mapstructure:"market_hours_only"`
}

// ProviderConfig selects and configures the snapshot provider.
type ProviderConfig struct {
	Kind             string        `mapstructure:"kind"` // nse, file
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	SnapshotDir      string        `mapstructure:"snapshot_dir"`
}

// StoreConfig holds ledger settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Terminal TerminalConfig `mapstructure:"terminal"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TerminalConfig holds terminal notification configuration.
type TerminalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Bell    bool `mapstructure:"bell"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// RiskPreset is a named risk tolerance.
type RiskPreset struct {
	MaxRiskPerTrade float64 // fraction of capital
	MinRewardRatio  float64
}

// RiskPresets maps risk tolerance names to their limits.
var RiskPresets = map[string]RiskPreset{
	"conservative": {MaxRiskPerTrade: 0.01, MinRewardRatio: 2.0},
	"moderate":     {MaxRiskPerTrade: 0.02, MinRewardRatio: 1.5},
	"aggressive":   {MaxRiskPerTrade: 0.03, MinRewardRatio: 1.2},
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/oi-reversal"
	}
	return filepath.Join(home, ".config", "oi-reversal")
}

// Load loads configuration from config.toml in configDir. If configDir is
// empty the default directory is used. A missing file is replaced by the
// template, which is then loaded. A .env file in the working directory is
// read before environment overrides are applied.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.capital", 100000.0)
	v.SetDefault("engine.index_strike_interval", analysis.DefaultStrikeInterval)
	v.SetDefault("engine.equity_strike_interval", analysis.DefaultStrikeInterval)
	v.SetDefault("engine.index_symbols", provider.DefaultIndexSymbols)
	v.SetDefault("engine.risk_tolerance", "moderate")
	v.SetDefault("engine.max_position_size", analysis.DefaultDecisionConfig().MaxPositionSize)
	v.SetDefault("engine.dedupe_signals", true)

	for _, spec := range models.ParameterSpecs {
		v.SetDefault("strategy."+spec.Name, spec.Default)
	}

	v.SetDefault("runner.symbols", []string{"NIFTY"})
	v.SetDefault("runner.cycle_interval", "5m")
	v.SetDefault("runner.symbol_delay", "2s")
	v.SetDefault("runner.duration", "0s")
	v.SetDefault("runner.market_hours_only", false)

	nse := provider.DefaultNSEConfig()
	v.SetDefault("provider.kind", string(provider.KindNSE))
	v.SetDefault("provider.base_url", nse.BaseURL)
	v.SetDefault("provider.timeout", nse.Timeout.String())
	v.SetDefault("provider.max_retries", nse.MaxRetries)
	v.SetDefault("provider.retry_delay", nse.RetryDelay.String())
	v.SetDefault("provider.breaker_threshold", nse.BreakerThreshold)
	v.SetDefault("provider.breaker_cooldown", nse.BreakerCooldown.String())
	v.SetDefault("provider.snapshot_dir", "snapshots")

	v.SetDefault("store.path", "oi_reversal.db")

	v.SetDefault("notifications.level", "all")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join("logs", "oitrader.log"))
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OITRADER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OITRADER_CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: OITRADER_CAPITAL=%q is not a number", apperrors.ErrConfigInvalid, v)
		}
		cfg.Engine.Capital = capital
	}
	if v := os.Getenv("OITRADER_SYMBOLS"); v != "" {
		cfg.Runner.Symbols = ParseSymbols(v)
	}
	if v := os.Getenv("OITRADER_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Enabled = true
		cfg.Notifications.Webhook.Enabled = true
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("OITRADER_TELEGRAM_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	return nil
}

// ParseSymbols splits a comma or space separated symbol list.
func ParseSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if sym := provider.CleanSymbol(f); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// resolvePaths anchors relative store, snapshot and log paths at Dir.
func (c *Config) resolvePaths() {
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) || c.Dir == "" {
			return p
		}
		return filepath.Join(c.Dir, p)
	}
	c.Store.Path = anchor(c.Store.Path)
	c.Provider.SnapshotDir = anchor(c.Provider.SnapshotDir)
	c.Logging.FilePath = anchor(c.Logging.FilePath)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.Capital <= 0 {
		return fmt.Errorf("%w: capital must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Engine.IndexStrikeInterval <= 0 || c.Engine.EquityStrikeInterval <= 0 {
		return fmt.Errorf("%w: strike intervals must be positive", apperrors.ErrConfigInvalid)
	}
	for sym, interval := range c.Engine.StrikeIntervals {
		if interval <= 0 {
			return fmt.Errorf("%w: strike interval for %s must be positive", apperrors.ErrConfigInvalid, sym)
		}
	}
	if c.Engine.MaxPositionSize <= 0 || c.Engine.MaxPositionSize > 1 {
		return fmt.Errorf("%w: max_position_size must be in (0, 1]", apperrors.ErrConfigInvalid)
	}
	if _, ok := RiskPresets[strings.ToLower(c.Engine.RiskTolerance)]; !ok {
		return fmt.Errorf("%w: unknown risk_tolerance %q (conservative, moderate, aggressive)",
			apperrors.ErrConfigInvalid, c.Engine.RiskTolerance)
	}
	if c.Engine.MinRewardRatio < 0 {
		return fmt.Errorf("%w: min_reward_ratio must be non-negative", apperrors.ErrConfigInvalid)
	}

	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("%w: [strategy]: %w", apperrors.ErrConfigInvalid, err)
	}

	if c.Runner.CycleInterval <= 0 {
		return fmt.Errorf("%w: cycle_interval must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Runner.SymbolDelay < 0 || c.Runner.Duration < 0 {
		return fmt.Errorf("%w: symbol_delay and duration must be non-negative", apperrors.ErrConfigInvalid)
	}

	switch provider.Kind(c.Provider.Kind) {
	case provider.KindNSE:
	case provider.KindFile:
		if c.Provider.SnapshotDir == "" {
			return fmt.Errorf("%w: file provider requires snapshot_dir", apperrors.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown provider kind %q (nse, file)", apperrors.ErrConfigInvalid, c.Provider.Kind)
	}

	switch c.Notifications.Level {
	case "", "all", "trades_only", "errors_only":
	default:
		return fmt.Errorf("%w: notification level must be all, trades_only or errors_only", apperrors.ErrConfigInvalid)
	}
	return nil
}

// StrikeIntervalFor returns the strike spacing for symbol: a per-symbol
// override, else the index or equity interval.
func (c *Config) StrikeIntervalFor(symbol string) float64 {
	sym := provider.CleanSymbol(symbol)
	for name, interval := range c.Engine.StrikeIntervals {
		if strings.EqualFold(name, sym) {
			return interval
		}
	}
	if provider.IsIndex(sym, c.Engine.IndexSymbols) {
		return c.Engine.IndexStrikeInterval
	}
	return c.Engine.EquityStrikeInterval
}

// DecisionConfig returns the snapshot decision limits for the configured
// risk tolerance. An explicit min_reward_ratio overrides the preset.
func (c *Config) DecisionConfig() analysis.DecisionConfig {
	preset := RiskPresets[strings.ToLower(c.Engine.RiskTolerance)]
	cfg := analysis.DefaultDecisionConfig()
	if preset.MaxRiskPerTrade > 0 {
		cfg.MaxRiskPerTrade = preset.MaxRiskPerTrade
		cfg.MinRewardRatio = preset.MinRewardRatio
	}
	if c.Engine.MaxPositionSize > 0 {
		cfg.MaxPositionSize = c.Engine.MaxPositionSize
	}
	if c.Engine.MinRewardRatio > 0 {
		cfg.MinRewardRatio = c.Engine.MinRewardRatio
	}
	return cfg
}

// NSEConfig returns provider settings for the NSE client.
func (c *Config) NSEConfig() provider.NSEConfig {
	return provider.NSEConfig{
		BaseURL:          c.Provider.BaseURL,
		Timeout:          c.Provider.Timeout,
		MaxRetries:       c.Provider.MaxRetries,
		RetryDelay:       c.Provider.RetryDelay,
		IndexSymbols:     c.Engine.IndexSymbols,
		BreakerThreshold: c.Provider.BreakerThreshold,
		BreakerCooldown:  c.Provider.BreakerCooldown,
	}
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAgeDays,
	}
}
