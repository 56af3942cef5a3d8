package estimator

import (
	"math"
	"time"
)

// #region estimator
// Estimator turns a stream of samples into blink statistics and drowsiness flags.
// It is not safe for concurrent use; one session owns one estimator.
type Estimator struct {
	config Config
	state  State
}

// New creates an estimator with the given thresholds.
func New(config Config) *Estimator {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Estimator{config: config, state: initialState()}
}

func initialState() State {
	return State{FaceSize: FaceSizeOK}
}

// Config returns the thresholds in use.
func (e *Estimator) Config() Config {
	return e.config
}

// State returns a copy of the running state.
func (e *Estimator) State() State {
	return e.state
}

// Reset discards all running state and counters.
func (e *Estimator) Reset() {
	e.state = initialState()
}

// #endregion estimator

// #region process
// Process validates a sample and applies one state transition.
// A rejected sample returns an *InvalidSampleError and leaves state unchanged.
func (e *Estimator) Process(s Sample) (Snapshot, error) {
	if err := e.validate(s); err != nil {
		return Snapshot{}, err
	}

	prev := e.state
	next := prev
	next.LastTimestamp = s.Timestamp
	next.Samples++

	var effects []Effect
	emit := func(kind EventKind, value *float64) {
		effects = append(effects, Effect{
			Type:  EffectAppendEvent,
			Kind:  kind,
			Value: value,
			At:    e.config.Now(),
		})
	}

	// 1. Face gate
	next.FaceSize = e.classifyFace(s.FaceWidth)
	next.FaceDetected = s.FaceWidth != nil && next.FaceSize == FaceSizeOK

	if !next.FaceDetected {
		// Disengagement: drop the closure in progress, keep history.
		next.Phase = PhaseOpen
		next.EyesClosedSince = 0
	} else {
		next.LeftEyeOpen = valueOr(s.LeftEyeOpen, 0)
		next.RightEyeOpen = valueOr(s.RightEyeOpen, 0)

		if e.eyesClosed(s) {
			// 2-3. Closed
			if prev.Phase == PhaseOpen {
				next.Phase = PhaseBlink
				next.BlinkStart = s.Timestamp
				next.EyesClosedSince = s.Timestamp
				next.BlinkCount++
				if prev.HasLastBlink {
					interval := elapsed(prev.LastBlinkStart, s.Timestamp)
					next.LastInterval = interval
					if interval < e.config.BlinkIntervalBelow {
						next.IntervalStreak++
					} else {
						next.IntervalStreak = 0
					}
				}
				next.LastBlinkStart = s.Timestamp
				next.HasLastBlink = true
			}
			if next.Phase == PhaseBlink && elapsed(next.EyesClosedSince, s.Timestamp) > e.config.NumbnessSeconds {
				next.Phase = PhaseNumb
				effects = append(effects, Effect{Type: EffectAlarmStart, Loop: true})
				emit(KindNumbness, nil)
			}
		} else if prev.Phase != PhaseOpen {
			// 4. Reopened
			duration := elapsed(prev.BlinkStart, s.Timestamp)
			next.LastDuration = duration
			emit(KindBlink, Float(duration))
			if duration > e.config.BlinkDurationAbove {
				next.DurationStreak++
			} else {
				next.DurationStreak = 0
			}
			next.Phase = PhaseOpen
			next.EyesClosedSince = 0
		}
	}

	if prev.Phase == PhaseNumb && next.Phase != PhaseNumb {
		effects = append(effects, Effect{Type: EffectAlarmStop})
	}

	// 5. Derived flags, logged on rising edges only
	next.ShortBlinkInterval = next.IntervalStreak > e.config.StreakTrigger
	next.LongBlinkDuration = next.DurationStreak > e.config.StreakTrigger
	next.SleepActive = next.ShortBlinkInterval && next.LongBlinkDuration

	if next.ShortBlinkInterval && !prev.ShortBlinkInterval {
		emit(KindShortBlinkInterval, nil)
	}
	if next.LongBlinkDuration && !prev.LongBlinkDuration {
		emit(KindLongBlinkDuration, nil)
	}
	if next.SleepActive && !prev.SleepActive {
		emit(KindSleep, nil)
		effects = append(effects, Effect{Type: EffectAlertStart, Loop: false})
	}

	e.state = next
	return Snapshot{
		Status:  StatusOf(next),
		State:   next,
		Effects: effects,
	}, nil
}

// #endregion process

// #region helpers
func (e *Estimator) validate(s Sample) error {
	if math.IsNaN(s.Timestamp) || math.IsInf(s.Timestamp, 0) {
		return &InvalidSampleError{Field: "timestamp", Value: s.Timestamp, Reason: "not a finite number"}
	}
	if s.Timestamp < 0 {
		return &InvalidSampleError{Field: "timestamp", Value: s.Timestamp, Reason: "negative"}
	}
	if e.state.Samples > 0 && s.Timestamp < e.state.LastTimestamp {
		return &InvalidSampleError{Field: "timestamp", Value: s.Timestamp, Reason: "earlier than previous sample"}
	}
	if err := checkProbability("left_eye_open", s.LeftEyeOpen); err != nil {
		return err
	}
	if err := checkProbability("right_eye_open", s.RightEyeOpen); err != nil {
		return err
	}
	if s.FaceWidth != nil {
		w := *s.FaceWidth
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return &InvalidSampleError{Field: "face_width", Value: w, Reason: "must be a non-negative finite number"}
		}
	}
	return nil
}

func checkProbability(field string, p *float64) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(*p) || *p < 0 || *p > 1 {
		return &InvalidSampleError{Field: field, Value: *p, Reason: "probability outside [0, 1]"}
	}
	return nil
}

// classifyFace reports the size state. A missing face has no size problem.
func (e *Estimator) classifyFace(width *float64) FaceSize {
	if width == nil {
		return FaceSizeOK
	}
	switch {
	case *width >= e.config.FaceUpperSize:
		return FaceSizeTooClose
	case *width < e.config.FaceLowerSize:
		return FaceSizeTooFar
	default:
		return FaceSizeOK
	}
}

// eyesClosed requires both probabilities to be reported and at or below the threshold.
func (e *Estimator) eyesClosed(s Sample) bool {
	if s.LeftEyeOpen == nil || s.RightEyeOpen == nil {
		return false
	}
	return *s.LeftEyeOpen <= e.config.OpenEyeThreshold && *s.RightEyeOpen <= e.config.OpenEyeThreshold
}

// elapsed is to - from rounded to the microsecond, so tick-stamped
// differences such as 2.2-0.7 compare equal to 1.5 at a threshold.
func elapsed(from, to float64) float64 {
	return math.Round((to-from)*elapsedPrecision) / elapsedPrecision
}

const elapsedPrecision = 1e6

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// #endregion helpers
