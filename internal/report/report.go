// Package report builds the end-of-drive statistics payload from the event log.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
)

// #region types
// Meta identifies the drive a report belongs to.
type Meta struct {
	SessionID   string
	Driver      string
	Recipient   string
	GeneratedAt time.Time
}

// Record is one exported event.
type Record struct {
	Value     *float64 `json:"value,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Payload is the report handed to the delivery collaborator.
// A kind with no entries maps to a nil slice and encodes as null.
type Payload struct {
	SessionID   string                           `json:"session_id"`
	Driver      string                           `json:"driver"`
	Recipient   string                           `json:"recipient,omitempty"`
	Subject     string                           `json:"subject"`
	GeneratedAt time.Time                        `json:"generated_at"`
	Events      map[estimator.EventKind][]Record `json:"events"`
}

// Kinds lists the event kinds a report carries, in export order.
func Kinds() []estimator.EventKind {
	return []estimator.EventKind{
		estimator.KindBlink,
		estimator.KindShortBlinkInterval,
		estimator.KindLongBlinkDuration,
		estimator.KindSleep,
	}
}

// #endregion types

// #region build
// Build reads every reported kind from l.
func Build(ctx context.Context, l eventlog.Log, meta Meta) (Payload, error) {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	p := Payload{
		SessionID:   meta.SessionID,
		Driver:      meta.Driver,
		Recipient:   meta.Recipient,
		Subject:     "Stats from " + meta.Driver,
		GeneratedAt: meta.GeneratedAt,
		Events:      make(map[estimator.EventKind][]Record, len(Kinds())),
	}
	for _, kind := range Kinds() {
		entries, err := l.Read(ctx, kind)
		if err != nil {
			return Payload{}, fmt.Errorf("build report: %w", err)
		}
		var records []Record
		for _, e := range entries {
			records = append(records, Record{Value: e.Value, Timestamp: e.FormatTimestamp()})
		}
		p.Events[kind] = records
	}
	return p, nil
}

// Body encodes the payload as indented JSON.
func (p Payload) Body() ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return b, nil
}

// Total returns the number of exported records across kinds.
func (p Payload) Total() int {
	n := 0
	for _, records := range p.Events {
		n += len(records)
	}
	return n
}

// #endregion build

// #region deliver
// Deliverer hands a finished report to whoever sends it on.
type Deliverer interface {
	Deliver(ctx context.Context, p Payload) error
}

// FileDeliverer writes the report body to Path, replacing any previous file.
type FileDeliverer struct {
	Path string
}

func (d FileDeliverer) Deliver(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := p.Body()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.Path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// #endregion deliver
