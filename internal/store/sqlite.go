package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
)

// SQLiteStore implements Ledger using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the ledger database and seeds missing
// parameters from seeds. Parameters already stored keep their values.
func NewSQLiteStore(dbPath string, seeds models.StrategyParameters) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One cycle at a time; a single writer keeps WAL contention away.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "failed to initialize schema")
	}
	if err := store.seedParameters(seeds); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed parameters: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per captured options-chain snapshot
	CREATE TABLE IF NOT EXISTS market_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		spot_price REAL NOT NULL,
		strike_count INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Normalized strikes linked to a snapshot
	CREATE TABLE IF NOT EXISTS strike_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_data_id INTEGER NOT NULL,
		strike_price REAL NOT NULL,
		call_oi INTEGER NOT NULL,
		put_oi INTEGER NOT NULL,
		call_volume INTEGER NOT NULL,
		put_volume INTEGER NOT NULL,
		oi_ratio REAL NOT NULL,
		is_atm INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY (market_data_id) REFERENCES market_data(id)
	);

	-- Detected signals
	CREATE TABLE IF NOT EXISTS trading_signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT,
		symbol TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		strike_price REAL NOT NULL,
		entry_trigger TEXT NOT NULL,
		confidence REAL NOT NULL,
		oi_ratio REAL NOT NULL,
		call_oi INTEGER NOT NULL,
		put_oi INTEGER NOT NULL,
		spot_price REAL NOT NULL,
		signal_strength TEXT NOT NULL,
		expected_win_rate REAL NOT NULL,
		market_sentiment TEXT NOT NULL DEFAULT 'NEUTRAL',
		volatility_regime TEXT NOT NULL DEFAULT 'MEDIUM',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		timestamp DATETIME NOT NULL
	);

	-- Hypothetical positions opened from signals
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		signal_id INTEGER,
		symbol TEXT NOT NULL,
		position_type TEXT NOT NULL,
		strike_price REAL NOT NULL,
		entry_price REAL NOT NULL,
		entry_time DATETIME NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		stop_loss REAL NOT NULL,
		target_price REAL NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'OPEN',
		exit_price REAL,
		exit_time DATETIME,
		exit_reason TEXT,
		exit_detail TEXT,
		pnl REAL,
		pnl_percentage REAL,
		FOREIGN KEY (signal_id) REFERENCES trading_signals(id)
	);

	-- Daily performance rollups
	CREATE TABLE IF NOT EXISTS performance_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE NOT NULL UNIQUE,
		total_trades INTEGER NOT NULL,
		winning_trades INTEGER NOT NULL,
		losing_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_pnl REAL NOT NULL,
		avg_win REAL NOT NULL,
		avg_loss REAL NOT NULL,
		profit_factor REAL,
		max_drawdown REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Strategy parameters
	CREATE TABLE IF NOT EXISTS strategy_parameters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parameter_name TEXT NOT NULL UNIQUE,
		parameter_value REAL NOT NULL,
		description TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_market_data_symbol ON market_data(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_strike_data_snapshot ON strike_data(market_data_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_fingerprint ON trading_signals(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_signals_timestamp ON trading_signals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status, symbol);
	CREATE INDEX IF NOT EXISTS idx_positions_exit_time ON positions(exit_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedParameters inserts seeds once; later edits are never overwritten.
func (s *SQLiteStore) seedParameters(seeds models.StrategyParameters) error {
	if err := seeds.Validate(); err != nil {
		return err
	}
	values := seeds.AsMap()
	for _, spec := range models.ParameterSpecs {
		_, err := s.db.Exec(`
			INSERT OR IGNORE INTO strategy_parameters (parameter_name, parameter_value, description)
			VALUES (?, ?, ?)
		`, spec.Name, values[spec.Name], spec.Description)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Market data
// ============================================================================

// SaveMarketData stores a snapshot header and its normalized strikes.
func (s *SQLiteStore) SaveMarketData(ctx context.Context, snap *models.Snapshot) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO market_data (symbol, spot_price, strike_count, timestamp)
		VALUES (?, ?, ?, ?)
	`, snap.Symbol, snap.SpotPrice, len(snap.Records), utc(snap.Timestamp))
	if err != nil {
		return 0, apperrors.NewStoreError("insert", "market_data", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read market data id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strike_data (market_data_id, strike_price, call_oi, put_oi, call_volume, put_volume, oi_ratio, is_atm)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range snap.Records {
		if _, err := stmt.ExecContext(ctx, id, r.Strike, r.CallOI, r.PutOI, r.CallVolume, r.PutVolume, r.OIRatio); err != nil {
			return 0, apperrors.NewStoreError("insert", "strike_data", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// ============================================================================
// Signals
// ============================================================================

// SaveSignal inserts a signal. A repeated non-empty fingerprint yields
// ErrDuplicateSignal.
func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *models.Signal) (int64, error) {
	var fingerprint sql.NullString
	if sig.Fingerprint != "" {
		fingerprint = sql.NullString{String: sig.Fingerprint, Valid: true}
	}
	status := sig.Status
	if status == "" {
		status = models.SignalActive
	}
	sentiment := sig.MarketSentiment
	if sentiment == "" {
		sentiment = models.SentimentNeutral
	}
	regime := sig.VolatilityRegime
	if regime == "" {
		regime = models.VolatilityMedium
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trading_signals (fingerprint, symbol, signal_type, strike_price, entry_trigger, confidence,
			oi_ratio, call_oi, put_oi, spot_price, signal_strength, expected_win_rate,
			market_sentiment, volatility_regime, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fingerprint, sig.Symbol, sig.Type, sig.Strike, sig.EntryTrigger, sig.Confidence,
		sig.OIRatio, sig.CallOI, sig.PutOI, sig.SpotPrice, sig.Strength, sig.ExpectedWinRate,
		sentiment, regime, status, utc(sig.Timestamp))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrDuplicateSignal, sig.Fingerprint)
		}
		return 0, apperrors.NewStoreError("insert", "signal", err)
	}
	return res.LastInsertId()
}

// UpdateSignalStatus moves a signal to a new lifecycle state.
func (s *SQLiteStore) UpdateSignalStatus(ctx context.Context, id int64, status models.SignalStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE trading_signals SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return apperrors.NewStoreError("update", "signal", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("signal %d not found", id)
	}
	return nil
}

// GetRecentSignals returns signals newest first.
func (s *SQLiteStore) GetRecentSignals(ctx context.Context, filter SignalFilter) ([]models.Signal, error) {
	query := `SELECT id, COALESCE(fingerprint, ''), symbol, signal_type, strike_price, entry_trigger, confidence,
		oi_ratio, call_oi, put_oi, spot_price, signal_strength, expected_win_rate,
		market_sentiment, volatility_regime, status, timestamp
		FROM trading_signals WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, utc(filter.Since))
	}

	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query", "signals", err)
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.ID, &sig.Fingerprint, &sig.Symbol, &sig.Type, &sig.Strike, &sig.EntryTrigger,
			&sig.Confidence, &sig.OIRatio, &sig.CallOI, &sig.PutOI, &sig.SpotPrice, &sig.Strength,
			&sig.ExpectedWinRate, &sig.MarketSentiment, &sig.VolatilityRegime, &sig.Status, &sig.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// ============================================================================
// Positions
// ============================================================================

const positionColumns = `id, COALESCE(signal_id, 0), symbol, position_type, strike_price, entry_price, entry_time,
	quantity, stop_loss, target_price, confidence, status, exit_price, exit_time, exit_reason,
	exit_detail, pnl, pnl_percentage`

// OpenPosition records a new OPEN position.
func (s *SQLiteStore) OpenPosition(ctx context.Context, pos *models.Position) (int64, error) {
	if !pos.Type.Valid() {
		return 0, apperrors.NewValidationError("position_type", pos.Type, "unknown position type")
	}
	if pos.Quantity < 1 {
		return 0, apperrors.NewValidationError("quantity", pos.Quantity, "must be at least 1")
	}

	var signalID sql.NullInt64
	if pos.SignalID > 0 {
		signalID = sql.NullInt64{Int64: pos.SignalID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (signal_id, symbol, position_type, strike_price, entry_price, entry_time,
			quantity, stop_loss, target_price, confidence, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, signalID, pos.Symbol, pos.Type, pos.StrikePrice, pos.EntryPrice, utc(pos.EntryTime),
		pos.Quantity, pos.StopLoss, pos.TargetPrice, pos.Confidence, models.PositionOpen)
	if err != nil {
		return 0, apperrors.NewStoreError("insert", "position", err)
	}
	return res.LastInsertId()
}

// ClosePosition records the exit of an OPEN position. All exit fields are
// written together so a row is never half closed.
func (s *SQLiteStore) ClosePosition(ctx context.Context, id int64, exit models.PositionExit) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, exit_time = ?, exit_reason = ?, exit_detail = ?, pnl = ?, pnl_percentage = ?
		WHERE id = ? AND status = ?
	`, models.PositionClosed, exit.Price, utc(exit.Time), exit.Reason, exit.Detail, exit.PnL, exit.PnLPercentage,
		id, models.PositionOpen)
	if err != nil {
		return apperrors.NewStoreError("update", "position", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if _, err := s.GetPosition(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d", apperrors.ErrPositionClosed, id)
	}
	return nil
}

// GetPosition returns one position by id.
func (s *SQLiteStore) GetPosition(ctx context.Context, id int64) (*models.Position, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+positionColumns+" FROM positions WHERE id = ?", id)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrPositionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return pos, nil
}

// GetOpenPositions returns open positions oldest first. An empty symbol
// returns positions for every symbol.
func (s *SQLiteStore) GetOpenPositions(ctx context.Context, symbol string) ([]models.Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE status = ?"
	args := []interface{}{models.PositionOpen}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY entry_time ASC, id ASC"

	return s.queryPositions(ctx, query, args...)
}

// GetClosedPositions returns closed positions ordered by exit time.
func (s *SQLiteStore) GetClosedPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE status = ?"
	args := []interface{}{models.PositionClosed}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND exit_time >= ?"
		args = append(args, utc(filter.Since))
	}
	query += " ORDER BY exit_time ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryPositions(ctx, query, args...)
}

func (s *SQLiteStore) queryPositions(ctx context.Context, query string, args ...interface{}) ([]models.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query", "positions", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var (
		p          models.Position
		status     string
		exitPrice  sql.NullFloat64
		exitTime   sql.NullTime
		exitReason sql.NullString
		exitDetail sql.NullString
		pnl        sql.NullFloat64
		pnlPct     sql.NullFloat64
	)

	if err := row.Scan(&p.ID, &p.SignalID, &p.Symbol, &p.Type, &p.StrikePrice, &p.EntryPrice, &p.EntryTime,
		&p.Quantity, &p.StopLoss, &p.TargetPrice, &p.Confidence, &status, &exitPrice, &exitTime, &exitReason,
		&exitDetail, &pnl, &pnlPct); err != nil {
		return nil, err
	}

	if models.PositionStatus(status) == models.PositionClosed {
		p.Exit = &models.PositionExit{
			Price:         exitPrice.Float64,
			Time:          exitTime.Time,
			Reason:        models.ExitReason(exitReason.String),
			Detail:        exitDetail.String,
			PnL:           pnl.Float64,
			PnLPercentage: pnlPct.Float64,
		}
	}
	return &p, nil
}

// ============================================================================
// Performance
// ============================================================================

// UpsertDailyPerformance writes the rollup for one calendar day.
// An unbounded profit factor is stored as NULL.
func (s *SQLiteStore) UpsertDailyPerformance(ctx context.Context, date time.Time, perf models.PerformanceSnapshot) error {
	var pf sql.NullFloat64
	if f := float64(perf.ProfitFactor); !math.IsInf(f, 0) && !math.IsNaN(f) {
		pf = sql.NullFloat64{Float64: f, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_metrics (date, total_trades, winning_trades, losing_trades, win_rate,
			total_pnl, avg_win, avg_loss, profit_factor, max_drawdown, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			total_trades = excluded.total_trades,
			winning_trades = excluded.winning_trades,
			losing_trades = excluded.losing_trades,
			win_rate = excluded.win_rate,
			total_pnl = excluded.total_pnl,
			avg_win = excluded.avg_win,
			avg_loss = excluded.avg_loss,
			profit_factor = excluded.profit_factor,
			max_drawdown = excluded.max_drawdown,
			updated_at = CURRENT_TIMESTAMP
	`, date.UTC().Format("2006-01-02"), perf.TotalTrades, perf.WinningTrades, perf.LosingTrades, perf.WinRate,
		perf.TotalPnL, perf.AvgWin, perf.AvgLoss, pf, perf.MaxDrawdown)
	if err != nil {
		return apperrors.NewStoreError("upsert", "performance_metrics", err)
	}
	return nil
}

// GetPnLHistory returns realized P&L per exit day for the last days days,
// oldest first. Days without closes are omitted.
func (s *SQLiteStore) GetPnLHistory(ctx context.Context, days int) ([]models.PnLPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	closed, err := s.GetClosedPositions(ctx, PositionFilter{Since: since})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]float64)
	for _, p := range closed {
		byDay[p.Exit.Time.UTC().Format("2006-01-02")] += p.Exit.PnL
	}

	history := make([]models.PnLPoint, 0, len(byDay))
	for day, pnl := range byDay {
		history = append(history, models.PnLPoint{Date: day, DailyPnL: math.Round(pnl*100) / 100})
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date < history[j].Date })
	return history, nil
}

// ============================================================================
// Parameters
// ============================================================================

// GetParameters returns every stored parameter by name.
func (s *SQLiteStore) GetParameters(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT parameter_name, parameter_value FROM strategy_parameters")
	if err != nil {
		return nil, apperrors.NewStoreError("query", "strategy_parameters", err)
	}
	defer rows.Close()

	params := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params[name] = value
	}
	return params, rows.Err()
}

// UpdateParameter persists one known parameter value.
func (s *SQLiteStore) UpdateParameter(ctx context.Context, name string, value float64) error {
	spec, ok := models.LookupParameter(name)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownParameter, name)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategy_parameters (parameter_name, parameter_value, description, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(parameter_name) DO UPDATE SET
			parameter_value = excluded.parameter_value,
			updated_at = CURRENT_TIMESTAMP
	`, name, value, spec.Description)
	if err != nil {
		return apperrors.NewStoreError("update", "strategy_parameters", err)
	}
	return nil
}

// utc normalizes timestamps so stored text sorts chronologically.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
