package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# OI Reversal Engine Configuration

[engine]
# Notional capital used for position sizing (INR)
capital = 100000.0
# Strike spacing used for the ATM window
index_strike_interval = 50.0
equity_strike_interval = 50.0
# Symbols served by the index option-chain endpoint
index_symbols = ["NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"]
# Risk tolerance for the analyze view: conservative, moderate, aggressive
risk_tolerance = "moderate"
# Largest position as a fraction of capital in the analyze view
max_position_size = 0.10
# Reject replayed signals (same symbol, side, strike and snapshot time)
dedupe_signals = true

# Per-symbol strike spacing overrides
[engine.strike_intervals]
BANKNIFTY = 100.0

# Seed values for a fresh ledger. Once stored, use "oitrader params set".
[strategy]
oi_ratio_threshold = 2.0
profit_target_pct = 15.0
max_risk_per_trade = 2.0
atm_strikes_limit = 6
min_confidence = 70.0
oi_normalization_threshold = 1.5

[runner]
symbols = ["NIFTY", "BANKNIFTY"]
# Time between batches in "oitrader run"
cycle_interval = "5m"
# Pause between symbols inside a batch
symbol_delay = "2s"
# Stop "oitrader run" after this long; "0s" runs until interrupted
duration = "0s"
# Skip batches outside 09:15-15:30 IST on weekdays
market_hours_only = false

[provider]
# Snapshot source: "nse" (live) or "file" (replay <snapshot_dir>/<SYMBOL>.json)
kind = "nse"
base_url = "https://www.nseindia.com"
timeout = "20s"
max_retries = 3
retry_delay = "3s"
# Consecutive failed fetches before pausing the provider
breaker_threshold = 5
breaker_cooldown = "5m"
snapshot_dir = "snapshots"

[store]
# Relative paths are resolved against this directory
path = "oi_reversal.db"

[notifications]
enabled = false
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.terminal]
# Print events to stdout during "oitrader run"
enabled = false
bell = false

[logging]
level = "info"
console = true
file = true
file_path = "logs/oitrader.log"
max_size_mb = 100
max_backups = 7
max_age_days = 30
`

// Template returns the default config.toml contents.
func Template() string {
	return configTemplate
}

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
