package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/redis/go-redis/v9"
)

func tempRedisLog(t *testing.T, perKindCap int) (*RedisLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLog(client, "test", perKindCap), mr
}

func TestRedisAppendAndRead(t *testing.T) {
	r, mr := tempRedisLog(t, 0)
	ctx := context.Background()

	if err := r.Append(ctx, entryAt(estimator.KindBlink, 0, estimator.Float(0.12))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := r.Append(ctx, entryAt(estimator.KindSleep, 1, nil)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	blinks, err := r.Read(ctx, estimator.KindBlink)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(blinks) != 1 || blinks[0].Value == nil || *blinks[0].Value != 0.12 {
		t.Fatalf("unexpected blinks %+v", blinks)
	}
	if blinks[0].Kind != estimator.KindBlink || !blinks[0].Timestamp.Equal(entryAt(estimator.KindBlink, 0, nil).Timestamp) {
		t.Errorf("unexpected entry %+v", blinks[0])
	}
	sleeps, _ := r.Read(ctx, estimator.KindSleep)
	if len(sleeps) != 1 || sleeps[0].Value != nil {
		t.Fatalf("unexpected sleeps %+v", sleeps)
	}
	if !mr.Exists("test:Blink") || !mr.Exists("test:Sleep") {
		t.Errorf("expected one list per kind, keys %v", mr.Keys())
	}
}

func TestRedisReadEmptyKindReturnsNil(t *testing.T) {
	r, _ := tempRedisLog(t, 0)
	entries, err := r.Read(context.Background(), estimator.KindNumbness)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil, got %v", entries)
	}
}

func TestRedisCapEvictsOldest(t *testing.T) {
	r, _ := tempRedisLog(t, 0)
	ctx := context.Background()

	for i := 0; i < DefaultCap+1; i++ {
		if err := r.Append(ctx, entryAt(estimator.KindBlink, i, estimator.Float(float64(i)))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	entries, err := r.Read(ctx, estimator.KindBlink)
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

func TestRedisCapIsPerKind(t *testing.T) {
	r, _ := tempRedisLog(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r.Append(ctx, entryAt(estimator.KindBlink, i, estimator.Float(1)))
	}
	r.Append(ctx, entryAt(estimator.KindSleep, 9, nil))

	blinks, _ := r.Read(ctx, estimator.KindBlink)
	if len(blinks) != 3 {
		t.Errorf("expected 3 blinks, got %d", len(blinks))
	}
	sleeps, _ := r.Read(ctx, estimator.KindSleep)
	if len(sleeps) != 1 {
		t.Errorf("expected 1 sleep, got %d", len(sleeps))
	}
}

func TestRedisClear(t *testing.T) {
	r, _ := tempRedisLog(t, 0)
	ctx := context.Background()
	r.Append(ctx, entryAt(estimator.KindBlink, 0, estimator.Float(0.1)))
	r.Append(ctx, entryAt(estimator.KindSleep, 1, nil))

	if err := r.Clear(ctx, estimator.KindBlink); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if entries, _ := r.Read(ctx, estimator.KindBlink); entries != nil {
		t.Fatalf("expected cleared kind, got %v", entries)
	}
	if entries, _ := r.Read(ctx, estimator.KindSleep); len(entries) != 1 {
		t.Fatal("clear must not touch other kinds")
	}
}

func TestRedisAppendStampsZeroTimestamp(t *testing.T) {
	r, _ := tempRedisLog(t, 0)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)
	r.Append(ctx, Entry{Kind: estimator.KindBlink, Value: estimator.Float(0.3)})
	entries, _ := r.Read(ctx, estimator.KindBlink)
	if len(entries) != 1 || entries[0].Timestamp.Before(before) {
		t.Fatalf("expected append to stamp the entry, got %+v", entries)
	}
}

func TestRedisServerDown(t *testing.T) {
	r, mr := tempRedisLog(t, 0)
	ctx := context.Background()
	mr.Close()
	if err := r.Append(ctx, entryAt(estimator.KindBlink, 0, nil)); err == nil {
		t.Fatal("expected append error with the server gone")
	}
	if _, err := r.Read(ctx, estimator.KindBlink); err == nil {
		t.Fatal("expected read error with the server gone")
	}
}

func TestDialMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Close()
}

func TestRedisEntryCodec(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	raw, err := encodeRedisEntry(Entry{Kind: estimator.KindBlink, Value: estimator.Float(0.25), Timestamp: at})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := decodeRedisEntry(estimator.KindBlink, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Value == nil || *e.Value != 0.25 || !e.Timestamp.Equal(at) {
		t.Fatalf("unexpected entry %+v", e)
	}

	raw, _ = encodeRedisEntry(Entry{Kind: estimator.KindSleep, Timestamp: at})
	e, _ = decodeRedisEntry(estimator.KindSleep, raw)
	if e.Value != nil {
		t.Error("expected nil value to survive encoding")
	}
}

func TestRedisEntryDecodeErrors(t *testing.T) {
	if _, err := decodeRedisEntry(estimator.KindBlink, "not-json"); err == nil {
		t.Error("expected unmarshal error")
	}
	if _, err := decodeRedisEntry(estimator.KindBlink, `{"timestamp":"soon"}`); err == nil {
		t.Error("expected timestamp parse error")
	}
}

func TestRedisLogKey(t *testing.T) {
	r := NewRedisLog(nil, "", 0)
	if got := r.Key(estimator.KindSleep); got != "drowsiness:Sleep" {
		t.Errorf("unexpected key %q", got)
	}
	r = NewRedisLog(nil, "fleet7", 10)
	if got := r.Key(estimator.KindBlink); got != "fleet7:Blink" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Fatal("expected ping error for unreachable redis")
	}
}
