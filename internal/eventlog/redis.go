package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/redis/go-redis/v9"
)

// #region redis-log
// RedisLog keeps one Redis list per kind under "<prefix>:<kind>".
type RedisLog struct {
	client redis.Cmdable
	prefix string
	cap    int
}

// redisEntry is the JSON form of an Entry inside a Redis list.
type redisEntry struct {
	Value     *float64 `json:"value,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// NewRedisLog wraps a Redis client. prefix defaults to "drowsiness".
func NewRedisLog(client redis.Cmdable, prefix string, perKindCap int) *RedisLog {
	if prefix == "" {
		prefix = "drowsiness"
	}
	return &RedisLog{client: client, prefix: prefix, cap: capOrDefault(perKindCap)}
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Key returns the list key for a kind.
func (r *RedisLog) Key(kind estimator.EventKind) string {
	return r.prefix + ":" + string(kind)
}

// #endregion redis-log

// #region redis-ops
// Append pushes the entry and trims the list to the newest cap entries.
func (r *RedisLog) Append(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := encodeRedisEntry(e)
	if err != nil {
		return err
	}
	key := r.Key(e.Kind)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-r.cap), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append %s: %w", key, err)
	}
	return nil
}

// Read returns the list oldest first, or nil when the key is empty.
func (r *RedisLog) Read(ctx context.Context, kind estimator.EventKind) ([]Entry, error) {
	key := r.Key(kind)
	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		e, err := decodeRedisEntry(kind, item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear deletes the list for a kind.
func (r *RedisLog) Clear(ctx context.Context, kind estimator.EventKind) error {
	key := r.Key(kind)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis clear %s: %w", key, err)
	}
	return nil
}

// #endregion redis-ops

// #region codec
func encodeRedisEntry(e Entry) (string, error) {
	data, err := json.Marshal(redisEntry{Value: e.Value, Timestamp: e.Timestamp.Format(time.RFC3339Nano)})
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}
	return string(data), nil
}

func decodeRedisEntry(kind estimator.EventKind, raw string) (Entry, error) {
	var re redisEntry
	if err := json.Unmarshal([]byte(raw), &re); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, re.Timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp %q: %w", re.Timestamp, err)
	}
	return Entry{Kind: kind, Value: re.Value, Timestamp: ts}, nil
}

// #endregion codec
