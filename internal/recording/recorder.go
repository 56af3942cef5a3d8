// Package recording keeps the raw samples of each drive next to the event log
// so a drive can be replayed later.
package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// ErrUnknownSession is returned by Samples when no samples were recorded for an id.
var ErrUnknownSession = errors.New("unknown session")

const schema = `
CREATE TABLE IF NOT EXISTS session_samples (
	session_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	timestamp   REAL NOT NULL,
	left_open   REAL,
	right_open  REAL,
	face_width  REAL,
	PRIMARY KEY (session_id, seq)
);
`

// SessionInfo summarizes one recorded drive.
type SessionInfo struct {
	ID      string
	Samples int
	First   float64
	Last    float64
}

// Recorder writes samples into an existing SQLite database.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates the session_samples table on db if needed.
func NewRecorder(db *sql.DB) (*Recorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate recording: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Record stores sample number seq of a session.
func (r *Recorder) Record(ctx context.Context, sessionID string, seq int, s estimator.Sample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_samples (session_id, seq, timestamp, left_open, right_open, face_width)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, seq, s.Timestamp, nullable(s.LeftEyeOpen), nullable(s.RightEyeOpen), nullable(s.FaceWidth),
	)
	if err != nil {
		return fmt.Errorf("record sample %s/%d: %w", sessionID, seq, err)
	}
	return nil
}

// Sessions lists the recorded drives, oldest first.
func (r *Recorder) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(timestamp), MAX(timestamp)
		 FROM session_samples GROUP BY session_id ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Samples, &info.First, &info.Last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Samples returns a session's samples in recording order.
func (r *Recorder) Samples(ctx context.Context, sessionID string) ([]estimator.Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timestamp, left_open, right_open, face_width
		 FROM session_samples WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read samples %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []estimator.Sample
	for rows.Next() {
		var s estimator.Sample
		var left, right, width sql.NullFloat64
		if err := rows.Scan(&s.Timestamp, &left, &right, &width); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.LeftEyeOpen = fromNull(left)
		s.RightEyeOpen = fromNull(right)
		s.FaceWidth = fromNull(width)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
	}
	return out, nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
