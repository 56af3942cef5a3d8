// Package session runs one drive: it stamps frames, feeds the estimator and
// hands every side effect to a dispatcher so the caller never waits on I/O.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/audio"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/dispatch"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/report"
	"github.com/google/uuid"
)

// ErrEnded is returned for frames pushed after End.
var ErrEnded = errors.New("session ended")

// #region types
// Frame is one detector reading before it is stamped with session time.
type Frame struct {
	LeftEyeOpen  *float64
	RightEyeOpen *float64
	FaceWidth    *float64
}

// SampleRecorder persists raw samples for later replay.
type SampleRecorder interface {
	Record(ctx context.Context, sessionID string, seq int, s estimator.Sample) error
}

// Sinks are the external collaborators a session talks to.
// Nil sinks get in-memory or logging stand-ins; a nil Recorder disables recording.
type Sinks struct {
	Log      eventlog.Log
	Alarm    audio.Player
	Alert    audio.Player
	Recorder SampleRecorder
}

// Config configures a session.
type Config struct {
	Estimator estimator.Config
	Dispatch  dispatch.Config
	Driver    string
	Recipient string
}

// Result is what a pushed frame produced. Warnings lists requests that could not be queued.
type Result struct {
	Snapshot estimator.Snapshot
	Warnings []dispatch.Warning
}

// Stats are the running counters of a session.
type Stats struct {
	SessionID  string
	Frames     int
	Seconds    float64
	FPS        float64
	BlinkCount int
	Status     estimator.Status
}

// #endregion types

// #region session
// Session is safe for concurrent use; frames are processed one at a time.
type Session struct {
	id        string
	driver    string
	recipient string
	clock     Clock
	sinks     Sinks
	est       *estimator.Estimator
	disp      *dispatch.Dispatcher

	mu     sync.Mutex
	frames int
	last   estimator.Snapshot
	ended  bool
}

// New starts a session with a fresh id.
func New(cfg Config, clock Clock, sinks Sinks) *Session {
	if sinks.Log == nil {
		sinks.Log = eventlog.NewMemoryLog(0)
	}
	if sinks.Alarm == nil {
		sinks.Alarm = audio.LogPlayer{Name: "alarm"}
	}
	if sinks.Alert == nil {
		sinks.Alert = audio.LogPlayer{Name: "alert"}
	}
	if clock == nil {
		clock = NewStepClock(0)
	}

	est := estimator.New(cfg.Estimator)
	s := &Session{
		id:        uuid.NewString(),
		driver:    cfg.Driver,
		recipient: cfg.Recipient,
		clock:     clock,
		sinks:     sinks,
		est:       est,
		disp:      dispatch.New(cfg.Dispatch),
	}
	s.last = estimator.Snapshot{State: est.State(), Status: estimator.StatusOf(est.State())}
	log.Info(log.Fields{"session": s.id, "driver": s.driver}, "session started")
	return s
}

func (s *Session) ID() string { return s.id }

// Warnings delivers failures of requests that were queued but did not succeed.
func (s *Session) Warnings() <-chan dispatch.Warning {
	return s.disp.Warnings()
}

// #endregion session

// #region push
// Push stamps a frame with the session clock and processes it. The stamp is
// taken under the session lock, so concurrent frames are processed in stamp order.
func (s *Session) Push(f Frame) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLocked(estimator.Sample{
		Timestamp:    s.clock.Seconds(),
		LeftEyeOpen:  f.LeftEyeOpen,
		RightEyeOpen: f.RightEyeOpen,
		FaceWidth:    f.FaceWidth,
	})
}

// PushSample processes an already stamped sample.
func (s *Session) PushSample(sample estimator.Sample) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLocked(sample)
}

func (s *Session) pushLocked(sample estimator.Sample) (Result, error) {
	if s.ended {
		return Result{}, ErrEnded
	}

	snap, err := s.est.Process(sample)
	if err != nil {
		return Result{}, err
	}
	seq := s.frames
	s.frames++
	s.last = snap

	jobs := make([]dispatch.Job, 0, len(snap.Effects)+1)
	if s.sinks.Recorder != nil {
		jobs = append(jobs, s.recordJob(seq, sample))
	}
	for _, ef := range snap.Effects {
		jobs = append(jobs, s.effectJob(ef))
	}
	return Result{Snapshot: snap, Warnings: s.disp.Submit(jobs...)}, nil
}

func (s *Session) recordJob(seq int, sample estimator.Sample) dispatch.Job {
	return dispatch.Job{
		Name: "record sample",
		Run: func(ctx context.Context) error {
			return s.sinks.Recorder.Record(ctx, s.id, seq, sample)
		},
	}
}

func (s *Session) effectJob(ef estimator.Effect) dispatch.Job {
	switch ef.Type {
	case estimator.EffectAppendEvent:
		entry := eventlog.FromEffect(ef)
		return dispatch.Job{
			Name: "append " + string(ef.Kind),
			Run:  func(ctx context.Context) error { return s.sinks.Log.Append(ctx, entry) },
		}
	case estimator.EffectAlarmStart:
		loop := ef.Loop
		return dispatch.Job{
			Name: "alarm start",
			Run:  func(ctx context.Context) error { return s.sinks.Alarm.Start(ctx, loop) },
		}
	case estimator.EffectAlarmStop:
		return dispatch.Job{
			Name: "alarm stop",
			Run:  func(ctx context.Context) error { return s.sinks.Alarm.Stop(ctx) },
		}
	case estimator.EffectAlertStart:
		loop := ef.Loop
		return dispatch.Job{
			Name: "alert start",
			Run:  func(ctx context.Context) error { return s.sinks.Alert.Start(ctx, loop) },
		}
	default:
		t := ef.Type
		return dispatch.Job{
			Name: string(t),
			Run:  func(context.Context) error { return fmt.Errorf("unknown effect %q", t) },
		}
	}
}

// #endregion push

// #region stats
// Stats returns the running counters. FPS is frames per elapsed session second.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		SessionID:  s.id,
		Frames:     s.frames,
		Seconds:    s.clock.Seconds(),
		BlinkCount: s.last.State.BlinkCount,
		Status:     s.last.Status,
	}
	if st.Seconds > 0 {
		st.FPS = float64(st.Frames) / st.Seconds
	}
	return st
}

// #endregion stats

// #region end
// End stops the session, silences a running alarm, waits for queued requests
// and builds the report from the event log. Calling End twice returns ErrEnded.
func (s *Session) End(ctx context.Context) (report.Payload, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return report.Payload{}, ErrEnded
	}
	s.ended = true
	numb := s.last.State.NumbnessActive()
	stats := Stats{Frames: s.frames, BlinkCount: s.last.State.BlinkCount}
	s.mu.Unlock()

	if numb {
		s.disp.Submit(s.effectJob(estimator.Effect{Type: estimator.EffectAlarmStop}))
	}
	if err := s.disp.Close(ctx); err != nil {
		return report.Payload{}, fmt.Errorf("drain requests: %w", err)
	}

	p, err := report.Build(ctx, s.sinks.Log, report.Meta{
		SessionID:   s.id,
		Driver:      s.driver,
		Recipient:   s.recipient,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return report.Payload{}, err
	}
	log.Info(log.Fields{
		"session": s.id,
		"frames":  stats.Frames,
		"blinks":  stats.BlinkCount,
		"events":  p.Total(),
	}, "session ended")
	return p, nil
}

// #endregion end
