// Package cli provides the command-line interface for the OI reversal engine.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"oi-reversal/internal/config"
	"oi-reversal/internal/logging"
	"oi-reversal/internal/notify"
	"oi-reversal/internal/provider"
	"oi-reversal/internal/store"
	"oi-reversal/internal/strategy"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-10-17"
)

// skipConfig marks commands that run without loading config.toml.
const skipConfig = "skip-config"

// App holds the application dependencies. The ledger and engine are opened
// on first use so commands that only read config never touch the database.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	store    *store.SQLiteStore
	engine   *strategy.Engine
	notifier *notify.MultiNotifier
	provider provider.SnapshotProvider
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "oitrader",
		Short: "OI reversal options signal engine",
		Long: `oitrader watches NSE option chains for extreme open-interest concentration
near the money and trades the reversal on paper.

Each cycle fetches a snapshot, records it, opens positions for qualifying
signals, and closes open positions on target, stop loss or OI normalization.

Use 'oitrader cycle' for a single pass and 'oitrader run' for a timed forward test.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/oi-reversal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addRunCommands(rootCmd, app)
	addAnalyzeCommands(rootCmd, app)
	addLedgerCommands(rootCmd, app)
	addExportCommands(rootCmd, app)

	return rootCmd
}

// openEngine opens the ledger, seeding parameters from [strategy] on a
// fresh database, and builds the engine with notifications attached.
func (a *App) openEngine(ctx context.Context, out io.Writer) (*strategy.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	path := a.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	st, err := store.NewSQLiteStore(path, a.Config.Strategy)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}

	engCfg := strategy.DefaultConfig()
	engCfg.Capital = a.Config.Engine.Capital
	engCfg.DedupeSignals = a.Config.Engine.DedupeSignals
	engCfg.StrikeInterval = a.Config.StrikeIntervalFor

	eng, err := strategy.NewEngine(ctx, st, engCfg, a.Logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.notifier = notify.NewMultiNotifier(a.Config.Notifications, out)
	eng.SetNotifier(a.notifier)
	if names := a.notifier.Channels(); len(names) > 0 {
		a.Logger.Debug().Strs("channels", names).Msg("Notifications enabled")
	}

	a.store = st
	a.engine = eng
	return eng, nil
}

// ledger opens the engine and returns its store for read-only queries.
func (a *App) ledger(ctx context.Context, out io.Writer) (*store.SQLiteStore, error) {
	if _, err := a.openEngine(ctx, out); err != nil {
		return nil, err
	}
	return a.store, nil
}

func (a *App) newProvider() (provider.SnapshotProvider, error) {
	p, err := provider.New(provider.Options{
		Kind:         provider.Kind(a.Config.Provider.Kind),
		NSE:          a.Config.NSEConfig(),
		SnapshotDir:  a.Config.Provider.SnapshotDir,
		IndexSymbols: a.Config.Engine.IndexSymbols,
	})
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

// warnOpenCircuit tells the user when NSE fetches are failing fast.
func (a *App) warnOpenCircuit(output *Output) {
	nse, ok := a.provider.(*provider.NSEProvider)
	if !ok || output.IsJSON() {
		return
	}
	if state := nse.Breaker().State(); state != provider.CircuitClosed {
		output.Warning("⚠ NSE circuit %s: fetches fail fast until the cooldown ends", state)
	}
}

// Close releases the ledger.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.engine = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("oitrader v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				masked := *app.Config
				if masked.Notifications.Telegram.BotToken != "" {
					masked.Notifications.Telegram.BotToken = "****"
				}
				return output.JSON(masked)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "template",
		Short:       "Print the default config.toml",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.Template())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load already validated; reaching here means the file is good.
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid (%s)", filepath.Join(app.Config.Dir, "config.toml"))
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Capital:          %s\n", FormatCapital(cfg.Engine.Capital))
	output.Printf("  Strike interval:  index %.0f, equity %.0f\n", cfg.Engine.IndexStrikeInterval, cfg.Engine.EquityStrikeInterval)
	output.Printf("  Risk tolerance:   %s\n", cfg.Engine.RiskTolerance)
	output.Printf("  Dedupe signals:   %v\n", cfg.Engine.DedupeSignals)
	output.Println()

	output.Bold("Strategy seeds")
	for _, name := range cfg.Strategy.Names() {
		output.Printf("  %s %s\n", PadRight(name+":", 28), FormatParameter(name, cfg.Strategy.AsMap()[name]))
	}
	output.Println()

	output.Bold("Runner")
	output.Printf("  Symbols:          %v\n", cfg.Runner.Symbols)
	output.Printf("  Cycle interval:   %s\n", cfg.Runner.CycleInterval)
	output.Printf("  Symbol delay:     %s\n", cfg.Runner.SymbolDelay)
	output.Printf("  Market hours:     %v\n", cfg.Runner.MarketHoursOnly)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Kind:             %s\n", cfg.Provider.Kind)
	if cfg.Provider.Kind == string(provider.KindFile) {
		output.Printf("  Snapshot dir:     %s\n", cfg.Provider.SnapshotDir)
	} else {
		output.Printf("  Base URL:         %s\n", cfg.Provider.BaseURL)
	}
	output.Printf("  Ledger:           %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:         %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Terminal:         %v\n", cfg.Notifications.Terminal.Enabled)
}
