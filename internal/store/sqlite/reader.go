package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the bar archive for backfill and
// replay.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// ReadBars reads archived bars for a symbol and timeframe, timestamp
// ascending for correct replay order.
func (r *Reader) ReadBars(symbol string, tf model.Timeframe, afterTS int64) ([]model.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, int(tf), afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		var volume sql.NullInt64
		if err := rows.Scan(&b.Symbol, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		b.Volume = volume.Int64
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SignalRecord represents a row from the signals journal.
type SignalRecord struct {
	ID        int64   `json:"id"`
	WindowID  int64   `json:"window_id"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Strength  float64 `json:"strength"`
	TS        string  `json:"ts"`
}

// Signals returns the last N journaled signals, newest first.
func (r *Reader) Signals(limit int) ([]SignalRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, window_id, symbol, direction, strength, ts
		FROM signals ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var s SignalRecord
		var tsUnix int64
		if err := rows.Scan(&s.ID, &s.WindowID, &s.Symbol, &s.Direction, &s.Strength, &tsUnix); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		s.TS = time.Unix(tsUnix, 0).UTC().Format(time.RFC3339)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
