package eventlog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	_ "modernc.org/sqlite"
)

func tempStore(t *testing.T, perKindCap int) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "events.db"), perKindCap)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entryAt(kind estimator.EventKind, i int, value *float64) Entry {
	return Entry{
		Kind:      kind,
		Value:     value,
		Timestamp: time.Date(2026, 1, 1, 10, 0, i, 0, time.UTC),
	}
}

func TestAppendAndRead(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()

	if err := s.Append(ctx, entryAt(estimator.KindBlink, 0, estimator.Float(0.12))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, entryAt(estimator.KindSleep, 1, nil)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	blinks, err := s.Read(ctx, estimator.KindBlink)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(blinks) != 1 || blinks[0].Value == nil || *blinks[0].Value != 0.12 {
		t.Fatalf("unexpected blinks %+v", blinks)
	}
	if !blinks[0].Timestamp.Equal(entryAt(estimator.KindBlink, 0, nil).Timestamp) {
		t.Errorf("timestamp mismatch: %v", blinks[0].Timestamp)
	}

	sleeps, _ := s.Read(ctx, estimator.KindSleep)
	if len(sleeps) != 1 || sleeps[0].Value != nil {
		t.Fatalf("expected one valueless Sleep entry, got %+v", sleeps)
	}
}

func TestReadEmptyKindReturnsNil(t *testing.T) {
	s := tempStore(t, 0)
	entries, err := s.Read(context.Background(), estimator.KindNumbness)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil, got %v", entries)
	}
}

func TestCapEvictsOldest(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()

	for i := 0; i < DefaultCap+1; i++ {
		if err := s.Append(ctx, entryAt(estimator.KindBlink, i, estimator.Float(float64(i)))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	entries, err := s.Read(ctx, estimator.KindBlink)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != DefaultCap {
		t.Fatalf("expected %d entries, got %d", DefaultCap, len(entries))
	}
	if *entries[0].Value != 1 {
		t.Errorf("expected oldest entry evicted, first value is %v", *entries[0].Value)
	}
	if *entries[len(entries)-1].Value != float64(DefaultCap) {
		t.Errorf("expected newest entry last, got %v", *entries[len(entries)-1].Value)
	}
}

func TestCapIsPerKind(t *testing.T) {
	s := tempStore(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Append(ctx, entryAt(estimator.KindBlink, i, estimator.Float(1)))
	}
	s.Append(ctx, entryAt(estimator.KindSleep, 9, nil))

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[estimator.KindBlink] != 3 {
		t.Errorf("expected 3 blinks, got %d", counts[estimator.KindBlink])
	}
	if counts[estimator.KindSleep] != 1 {
		t.Errorf("expected 1 sleep, got %d", counts[estimator.KindSleep])
	}
}

func TestClear(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()
	s.Append(ctx, entryAt(estimator.KindBlink, 0, estimator.Float(0.1)))
	s.Append(ctx, entryAt(estimator.KindSleep, 1, nil))

	if err := s.Clear(ctx, estimator.KindBlink); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if entries, _ := s.Read(ctx, estimator.KindBlink); entries != nil {
		t.Fatalf("expected cleared kind, got %v", entries)
	}
	if entries, _ := s.Read(ctx, estimator.KindSleep); len(entries) != 1 {
		t.Fatal("clear must not touch other kinds")
	}
}

func TestAppendZeroTimestampFilled(t *testing.T) {
	s := tempStore(t, 0)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)
	if err := s.Append(ctx, Entry{Kind: estimator.KindNumbness}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, _ := s.Read(ctx, estimator.KindNumbness)
	if len(entries) != 1 || entries[0].Timestamp.Before(before) {
		t.Fatalf("expected auto-filled timestamp, got %+v", entries)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	s, err := NewStore(path, 0)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Append(ctx, entryAt(estimator.KindLongBlinkDuration, 0, nil))
	s.Close()

	s2, err := NewStore(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	entries, _ := s2.Read(ctx, estimator.KindLongBlinkDuration)
	if len(entries) != 1 {
		t.Fatalf("expected entry to survive reopen, got %d", len(entries))
	}
}

func TestFormatTimestamp(t *testing.T) {
	local := time.Date(2026, 5, 4, 21, 7, 9, 0, time.Local)
	e := Entry{Timestamp: local}
	if got := e.FormatTimestamp(); got != "2026-05-04 21:07:09" {
		t.Errorf("unexpected format %q", got)
	}
}

func TestFromEffect(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := FromEffect(estimator.Effect{Type: estimator.EffectAppendEvent, Kind: estimator.KindBlink, Value: estimator.Float(0.4), At: at})
	if e.Kind != estimator.KindBlink || *e.Value != 0.4 || !e.Timestamp.Equal(at) {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "events.db"), 0)
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestOperationsOnClosedDB(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "events.db"), 0)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Close()
	ctx := context.Background()

	if err := s.Append(ctx, entryAt(estimator.KindBlink, 0, nil)); err == nil {
		t.Error("expected Append error on closed DB")
	}
	if _, err := s.Read(ctx, estimator.KindBlink); err == nil {
		t.Error("expected Read error on closed DB")
	}
	if err := s.Clear(ctx, estimator.KindBlink); err == nil {
		t.Error("expected Clear error on closed DB")
	}
	if _, err := s.Counts(ctx); err == nil {
		t.Error("expected Counts error on closed DB")
	}
}

func TestReadBadTimestamp(t *testing.T) {
	s := tempStore(t, 0)
	_, err := s.DB().Exec(`INSERT INTO event_log (kind, value, created_at) VALUES (?, NULL, ?)`, "Sleep", "yesterday")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Read(context.Background(), estimator.KindSleep); err == nil {
		t.Fatal("expected parse error for bad created_at")
	}
}

func TestAppendMissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "bare.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStoreWithDB(db, 0)
	if err := s.Append(context.Background(), entryAt(estimator.KindBlink, 0, nil)); err == nil {
		t.Fatal("expected error when event_log table is missing")
	}
}
