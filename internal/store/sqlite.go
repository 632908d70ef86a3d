package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	apperrors "mexc-trader/internal/errors"
	"mexc-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes. The partial unique
// index on open positions enforces the at-most-one-open-position invariant
// at the storage layer as well as in the gate.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		account_id TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 0,
		leverage INTEGER NOT NULL,
		risk_per_trade_pct REAL NOT NULL,
		stop_loss_pct REAL NOT NULL,
		take_profit_pct REAL NOT NULL,
		max_daily_loss_pct REAL NOT NULL,
		account_balance REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		leverage INTEGER NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		confidence REAL NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'OPEN',
		opened_at DATETIME NOT NULL,
		exit_price REAL,
		pnl REAL,
		closed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS daily_limits (
		account_id TEXT NOT NULL,
		date TEXT NOT NULL,
		loss REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, date)
	);

	CREATE TABLE IF NOT EXISTS strategy_logs (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		level TEXT NOT NULL DEFAULT 'info',
		message TEXT NOT NULL,
		payload TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_one_open
		ON positions(account_id) WHERE status = 'OPEN';
	CREATE INDEX IF NOT EXISTS idx_positions_account ON positions(account_id, opened_at);
	CREATE INDEX IF NOT EXISTS idx_logs_account ON strategy_logs(account_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreateSettings returns the stored settings for an account, seeding
// the row from defaults on first use.
func (s *SQLiteStore) GetOrCreateSettings(ctx context.Context, defaults models.AccountSettings) (models.AccountSettings, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO settings (account_id, enabled, leverage, risk_per_trade_pct, stop_loss_pct, take_profit_pct, max_daily_loss_pct, account_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, defaults.AccountID, boolToInt(defaults.Enabled), defaults.Leverage, defaults.RiskPerTradePct,
		defaults.StopLossPct, defaults.TakeProfitPct, defaults.MaxDailyLossPct, defaults.AccountBalance)
	if err != nil {
		return models.AccountSettings{}, fmt.Errorf("failed to seed settings: %w", err)
	}

	var settings models.AccountSettings
	var enabled int
	err = s.db.QueryRowContext(ctx, `
		SELECT account_id, enabled, leverage, risk_per_trade_pct, stop_loss_pct, take_profit_pct, max_daily_loss_pct, account_balance
		FROM settings WHERE account_id = ?
	`, defaults.AccountID).Scan(&settings.AccountID, &enabled, &settings.Leverage, &settings.RiskPerTradePct,
		&settings.StopLossPct, &settings.TakeProfitPct, &settings.MaxDailyLossPct, &settings.AccountBalance)
	if err != nil {
		return models.AccountSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	settings.Enabled = enabled != 0
	return settings, nil
}

// SaveSettings persists account settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings models.AccountSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (account_id, enabled, leverage, risk_per_trade_pct, stop_loss_pct, take_profit_pct, max_daily_loss_pct, account_balance, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id) DO UPDATE SET
			enabled = excluded.enabled,
			leverage = excluded.leverage,
			risk_per_trade_pct = excluded.risk_per_trade_pct,
			stop_loss_pct = excluded.stop_loss_pct,
			take_profit_pct = excluded.take_profit_pct,
			max_daily_loss_pct = excluded.max_daily_loss_pct,
			account_balance = excluded.account_balance,
			updated_at = CURRENT_TIMESTAMP
	`, settings.AccountID, boolToInt(settings.Enabled), settings.Leverage, settings.RiskPerTradePct,
		settings.StopLossPct, settings.TakeProfitPct, settings.MaxDailyLossPct, settings.AccountBalance)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetOpenPosition returns the account's OPEN position, or nil when flat.
func (s *SQLiteStore) GetOpenPosition(ctx context.Context, accountID string) (*models.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, side, entry_price, quantity, leverage, stop_loss, take_profit, confidence, reason, status, opened_at, exit_price, pnl, closed_at
		FROM positions
		WHERE account_id = ? AND status = 'OPEN'
		ORDER BY opened_at DESC
		LIMIT 1
	`, accountID)

	position, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open position: %w", err)
	}
	return position, nil
}

// RecordEntry persists a new OPEN position. The unique partial index rejects
// a second open position for the same account.
func (s *SQLiteStore) RecordEntry(ctx context.Context, position *models.Position) error {
	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	if position.Status == "" {
		position.Status = models.PositionOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, account_id, side, entry_price, quantity, leverage, stop_loss, take_profit, confidence, reason, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, position.ID, position.AccountID, position.Side, position.EntryPrice, position.Quantity,
		position.Leverage, position.StopLoss, position.TakeProfit, position.Confidence,
		position.Reason, position.Status, position.OpenedAt)
	if err != nil {
		if strings.Contains(err.Error(), "idx_positions_one_open") {
			return fmt.Errorf("%w for account %s", apperrors.ErrPositionExists, position.AccountID)
		}
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

// RecordExit marks a position CLOSED with its exit price and realized PnL.
func (s *SQLiteStore) RecordExit(ctx context.Context, positionID string, exitPrice, pnl float64, closedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = 'CLOSED', exit_price = ?, pnl = ?, closed_at = ?
		WHERE id = ? AND status = 'OPEN'
	`, exitPrice, pnl, closedAt, positionID)
	if err != nil {
		return fmt.Errorf("failed to record exit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record exit: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no open position with id %s", apperrors.ErrPositionNotFound, positionID)
	}
	return nil
}

// ListRecentPositions returns the most recently opened positions.
func (s *SQLiteStore) ListRecentPositions(ctx context.Context, accountID string, limit int) ([]models.Position, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, side, entry_price, quantity, leverage, stop_loss, take_profit, confidence, reason, status, opened_at, exit_price, pnl, closed_at
		FROM positions
		WHERE account_id = ?
		ORDER BY opened_at DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// GetTodayLossFraction returns the accumulated loss fraction for the current
// UTC day, zero when no record exists yet.
func (s *SQLiteStore) GetTodayLossFraction(ctx context.Context, accountID string) (float64, error) {
	var loss float64
	err := s.db.QueryRowContext(ctx, `
		SELECT loss FROM daily_limits WHERE account_id = ? AND date = ?
	`, accountID, DayKey(time.Now())).Scan(&loss)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load daily loss: %w", err)
	}
	return loss, nil
}

// IncrementTodayLoss adds a realized loss fraction to the current UTC day's
// record. Non-positive fractions are ignored so the accumulator only grows.
func (s *SQLiteStore) IncrementTodayLoss(ctx context.Context, accountID string, fraction float64) error {
	if fraction <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_limits (account_id, date, loss, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id, date) DO UPDATE SET
			loss = loss + excluded.loss,
			updated_at = CURRENT_TIMESTAMP
	`, accountID, DayKey(time.Now()), fraction)
	if err != nil {
		return fmt.Errorf("failed to increment daily loss: %w", err)
	}
	return nil
}

// AppendLog persists one strategy log entry. The payload is JSON-encoded.
func (s *SQLiteStore) AppendLog(ctx context.Context, accountID, level, message string, payload interface{}) error {
	var payloadJSON string
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode log payload: %w", err)
		}
		payloadJSON = string(encoded)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategy_logs (id, account_id, level, message, payload)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), accountID, level, message, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// ListRecentLogs returns the most recent strategy log entries.
func (s *SQLiteStore) ListRecentLogs(ctx context.Context, accountID string, limit int) ([]models.StrategyLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, level, message, payload, created_at
		FROM strategy_logs
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []models.StrategyLog
	for rows.Next() {
		var entry models.StrategyLog
		var payload sql.NullString
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Level, &entry.Message, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entry.Payload = payload.String
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var reason sql.NullString
	var exitPrice, pnl sql.NullFloat64
	var closedAt sql.NullTime

	err := row.Scan(&p.ID, &p.AccountID, &p.Side, &p.EntryPrice, &p.Quantity, &p.Leverage,
		&p.StopLoss, &p.TakeProfit, &p.Confidence, &reason, &p.Status, &p.OpenedAt,
		&exitPrice, &pnl, &closedAt)
	if err != nil {
		return nil, err
	}

	p.Reason = reason.String
	if exitPrice.Valid {
		v := exitPrice.Float64
		p.ExitPrice = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		p.PnL = &v
	}
	if closedAt.Valid {
		v := closedAt.Time
		p.ClosedAt = &v
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
