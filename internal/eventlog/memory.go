package eventlog

import (
	"context"
	"sync"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// MemoryLog is an in-process Log. It does not survive restarts.
type MemoryLog struct {
	mu      sync.Mutex
	cap     int
	entries map[estimator.EventKind][]Entry
}

// NewMemoryLog creates an empty log keeping perKindCap entries per kind.
func NewMemoryLog(perKindCap int) *MemoryLog {
	return &MemoryLog{
		cap:     capOrDefault(perKindCap),
		entries: make(map[estimator.EventKind][]Entry),
	}
}

func (m *MemoryLog) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.entries[e.Kind], e)
	if over := len(list) - m.cap; over > 0 {
		list = append([]Entry(nil), list[over:]...)
	}
	m.entries[e.Kind] = list
	return nil
}

func (m *MemoryLog) Read(_ context.Context, kind estimator.EventKind) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[kind]
	if len(list) == 0 {
		return nil, nil
	}
	return append([]Entry(nil), list...), nil
}

func (m *MemoryLog) Clear(_ context.Context, kind estimator.EventKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, kind)
	return nil
}
