package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS event_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	value       REAL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_log_kind ON event_log(kind, id);
`

// #endregion schema

// #region store-struct
// Store keeps the event log in SQLite.
type Store struct {
	db  *sql.DB
	cap int
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database, runs migrations and keeps at most
// perKindCap entries per kind (DefaultCap when <= 0).
func NewStore(dbPath string, perKindCap int) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, cap: capOrDefault(perKindCap)}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB, perKindCap int) *Store {
	return &Store{db: db, cap: capOrDefault(perKindCap)}
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. recording).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region append
// Append inserts an entry and evicts the oldest rows of its kind beyond the cap.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var value interface{}
	if e.Value != nil {
		value = *e.Value
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_log (kind, value, created_at) VALUES (?, ?, ?)`,
		string(e.Kind), value, e.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM event_log WHERE kind = ? AND id NOT IN (
			SELECT id FROM event_log WHERE kind = ? ORDER BY id DESC LIMIT ?
		)`,
		string(e.Kind), string(e.Kind), s.cap,
	)
	if err != nil {
		return fmt.Errorf("evict events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion append

// #region read
// Read returns the entries of one kind, oldest first, or nil when there are none.
func (s *Store) Read(ctx context.Context, kind estimator.EventKind) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, created_at FROM event_log WHERE kind = ? ORDER BY id ASC`, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var value sql.NullFloat64
		var createdStr string
		if err := rows.Scan(&value, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e := Entry{Kind: kind}
		if value.Valid {
			v := value.Float64
			e.Value = &v
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdStr, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion read

// #region clear
// Clear removes every entry of one kind.
func (s *Store) Clear(ctx context.Context, kind estimator.EventKind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_log WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	return nil
}

// #endregion clear

// #region counts
// Counts returns the number of stored entries per kind.
func (s *Store) Counts(ctx context.Context) (map[estimator.EventKind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM event_log GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[estimator.EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[estimator.EventKind(kind)] = n
	}
	return counts, rows.Err()
}

// #endregion counts
