package eventlog

import (
	"context"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// DefaultCap is the number of entries kept per kind.
const DefaultCap = 50

// TimestampLayout is the persisted wall-clock format (local time).
const TimestampLayout = "2006-01-02 15:04:05"

// #region entry
// Entry is one persisted event. Value is nil for kinds that carry none.
type Entry struct {
	Kind      estimator.EventKind
	Value     *float64
	Timestamp time.Time
}

// FormatTimestamp renders the entry time in local time.
func (e Entry) FormatTimestamp() string {
	return e.Timestamp.Local().Format(TimestampLayout)
}

// FromEffect converts an append-event effect into an entry.
func FromEffect(ef estimator.Effect) Entry {
	return Entry{Kind: ef.Kind, Value: ef.Value, Timestamp: ef.At}
}

// #endregion entry

// #region log
// Log is a bounded, per-kind, append-only event list.
// Read returns nil when the kind has no entries.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Read(ctx context.Context, kind estimator.EventKind) ([]Entry, error)
	Clear(ctx context.Context, kind estimator.EventKind) error
}

// #endregion log

func capOrDefault(n int) int {
	if n <= 0 {
		return DefaultCap
	}
	return n
}
