package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/oisentry/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is used when no database path is configured.
const DefaultSQLitePath = "./data/oi_state.db"

// SQLite keeps the history in a single ordered table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to DefaultSQLitePath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		dbPath = DefaultSQLitePath
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ticks (
		seq        INTEGER PRIMARY KEY,
		ts         INTEGER NOT NULL,
		oi_binance REAL NOT NULL,
		oi_bybit   REAL NOT NULL
	)`)
	return err
}

func (s *SQLite) Load(ctx context.Context) ([]models.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts, oi_binance, oi_bybit FROM ticks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []models.Tick
	for rows.Next() {
		var t models.Tick
		var tsNano int64
		if err := rows.Scan(&tsNano, &t.Binance, &t.Bybit); err != nil {
			return nil, fmt.Errorf("%w: failed to scan tick: %v", ErrCorruptState, err)
		}
		t.Time = time.Unix(0, tsNano).UTC()
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// Save replaces the table contents in one transaction.
func (s *SQLite) Save(ctx context.Context, ticks []models.Tick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticks`); err != nil {
		return fmt.Errorf("failed to clear ticks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ticks (seq, ts, oi_binance, oi_bybit) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range ticks {
		if _, err := stmt.ExecContext(ctx, i, t.Time.UnixNano(), t.Binance, t.Bybit); err != nil {
			return fmt.Errorf("failed to insert tick: %w", err)
		}
	}
	return tx.Commit()
}
