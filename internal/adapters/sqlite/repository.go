package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository stores user settings and signal history in SQLite.
// It implements ports.SettingsBackend and ports.SignalRecorder.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrStorageConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrStorageConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		settings TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS signal_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		entry REAL NOT NULL,
		target REAL NOT NULL,
		stop REAL NOT NULL,
		analyzed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signal_history_symbol_time ON signal_history (symbol, analyzed_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadAll returns every stored user's settings.
func (r *Repository) LoadAll(ctx context.Context) (map[string]domain.UserSettings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, settings FROM user_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	all := make(map[string]domain.UserSettings)
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w: %w", ports.ErrQueryFailed, err)
		}
		us := domain.DefaultUserSettings()
		if err := json.Unmarshal([]byte(raw), &us); err != nil {
			r.logger.Warn(ctx, "Skipping unreadable settings row", map[string]interface{}{"userID": userID, "error": err.Error()})
			continue
		}
		all[userID] = us
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating settings rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return all, nil
}

// SaveAll replaces the stored settings with all in a single transaction.
func (r *Repository) SaveAll(ctx context.Context, all map[string]domain.UserSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w: %w", ports.ErrUpdateFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO user_settings (user_id, settings, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare settings insert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for userID, us := range all {
		raw, err := json.Marshal(us)
		if err != nil {
			return fmt.Errorf("failed to encode settings for %s: %w", userID, err)
		}
		if _, err := stmt.ExecContext(ctx, userID, string(raw), now); err != nil {
			return fmt.Errorf("failed to store settings for %s: %w: %w", userID, ports.ErrUpdateFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Settings saved", map[string]interface{}{"users": len(all)})
	return nil
}

// RecordSignal appends a computed signal to the history table.
func (r *Repository) RecordSignal(ctx context.Context, result domain.SignalResult) error {
	query := `INSERT INTO signal_history (symbol, timeframe, label, score, entry, target, stop, analyzed_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		result.Symbol, result.Timeframe, string(result.Label), result.Score,
		result.Entry, result.Target, result.Stop, result.AnalyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record signal for %s: %w: %w", result.Symbol, ports.ErrUpdateFailed, err)
	}
	return nil
}

// RecentSignals returns the latest recorded signals for symbol, newest first.
func (r *Repository) RecentSignals(ctx context.Context, symbol string, limit int) ([]domain.SignalResult, error) {
	query := `SELECT symbol, timeframe, label, score, entry, target, stop, analyzed_at
	          FROM signal_history WHERE symbol = ? ORDER BY analyzed_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []domain.SignalResult
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating signal rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(s scanner) (domain.SignalResult, error) {
	var res domain.SignalResult
	var label string
	err := s.Scan(&res.Symbol, &res.Timeframe, &label, &res.Score, &res.Entry, &res.Target, &res.Stop, &res.AnalyzedAt)
	if err != nil {
		return domain.SignalResult{}, fmt.Errorf("failed to scan signal: %w: %w", ports.ErrQueryFailed, err)
	}
	res.Label = domain.SignalLabel(label)
	return res, nil
}
