package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/corolla.db"
}

// Writer archives closed bars and journals emitted signals. Single
// writer connection, WAL mode, batched transactions.
type Writer struct {
	db *sql.DB

	// OnCommit is called with the duration of every batch commit
	// (optional).
	OnCommit func(time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL
// mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite database opened", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol  TEXT    NOT NULL,
			tf      INTEGER NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  INTEGER,
			PRIMARY KEY (symbol, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			window_id  INTEGER NOT NULL,
			symbol     TEXT    NOT NULL,
			direction  TEXT    NOT NULL,
			strength   REAL    NOT NULL,
			ts         INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	`)
	return err
}

// Run reads closed bars from barCh and inserts them in batched
// transactions. Flushes every batchSize bars OR every flushDelay,
// whichever comes first. Blocks until ctx is cancelled or barCh closes.
func (w *Writer) Run(ctx context.Context, barCh <-chan bus.Msg) {
	batch := make([]bus.Msg, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			slog.Error("sqlite batch insert failed", "err", err, "bars", len(batch))
		} else {
			if w.OnCommit != nil {
				w.OnCommit(time.Since(start))
			}
			slog.Debug("sqlite batch committed", "bars", len(batch), "took", time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case m, ok := <-barCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, m)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of bars in a single transaction.
func (w *Writer) insertBatch(batch []bus.Msg) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, tf, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, m := range batch {
		b := m.Bar
		_, err := stmt.Exec(b.Symbol, int(m.TF), b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// WriteBar inserts a single bar outside the batching loop. Used by the
// replay importer.
func (w *Writer) WriteBar(tf model.Timeframe, b model.Bar) error {
	_, err := w.db.Exec(`
		INSERT OR REPLACE INTO bars (symbol, tf, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Symbol, int(tf), b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
	return err
}

// RecordSignal journals an emitted signal for audit and replay
// comparison.
func (w *Writer) RecordSignal(sig model.Signal) error {
	_, err := w.db.Exec(
		`INSERT INTO signals (window_id, symbol, direction, strength, ts)
		 VALUES (?, ?, ?, ?, ?)`,
		sig.WindowID,
		sig.Symbol,
		sig.Direction.String(),
		sig.Strength,
		sig.TS.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// GetLastTimestamp returns the last stored bar timestamp for a symbol
// and timeframe. Returns 0 if no bars exist.
func (w *Writer) GetLastTimestamp(symbol string, tf model.Timeframe) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM bars WHERE symbol = ? AND tf = ?`,
		symbol, int(tf),
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
