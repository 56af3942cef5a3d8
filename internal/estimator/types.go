package estimator

import "time"

// #region sample
// Sample is one detector callback: eye-open probabilities and face width for
// the first detected face, stamped with the session clock in seconds.
// Nil fields mean the detector reported nothing for them.
type Sample struct {
	Timestamp    float64
	LeftEyeOpen  *float64
	RightEyeOpen *float64
	FaceWidth    *float64
}

// Float returns a pointer to v. Convenience for building samples.
func Float(v float64) *float64 {
	return &v
}

// #endregion sample

// #region config
// Config holds the thresholds that drive the estimator.
type Config struct {
	OpenEyeThreshold   float64 // both eyes <= this => closed
	NumbnessSeconds    float64 // continuous closure beyond this => numbness
	BlinkIntervalBelow float64 // inter-blink interval below this extends the interval streak
	BlinkDurationAbove float64 // blink duration above this extends the duration streak
	StreakTrigger      int     // streak > this raises the derived flag
	FaceLowerSize      float64 // usable face: FaceLowerSize <= width < FaceUpperSize
	FaceUpperSize      float64

	// Now stamps persisted events. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the stock thresholds for a screen of the given width in pixels.
func DefaultConfig(screenWidth float64) Config {
	return Config{
		OpenEyeThreshold:   0.9,
		NumbnessSeconds:    1.5,
		BlinkIntervalBelow: 3,
		BlinkDurationAbove: 0.2,
		StreakTrigger:      3,
		FaceLowerSize:      screenWidth * 0.3,
		FaceUpperSize:      screenWidth,
		Now:                time.Now,
	}
}

// #endregion config

// #region phase
// Phase is the eye state of the current sample. Numbness is a sustained blink,
// so the three phases are mutually exclusive.
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseBlink
	PhaseNumb
)

func (p Phase) String() string {
	switch p {
	case PhaseBlink:
		return "blink"
	case PhaseNumb:
		return "numb"
	default:
		return "open"
	}
}

// #endregion phase

// #region face-size
// FaceSize classifies the detected face width against the usable range.
type FaceSize string

const (
	FaceSizeOK       FaceSize = "ok"
	FaceSizeTooClose FaceSize = "too_close"
	FaceSizeTooFar   FaceSize = "too_far"
)

// #endregion face-size

// #region event-kind
// EventKind names a persisted event list.
type EventKind string

const (
	KindBlink              EventKind = "Blink"
	KindShortBlinkInterval EventKind = "ShortBlinkInterval"
	KindLongBlinkDuration  EventKind = "LongBlinkDuration"
	KindSleep              EventKind = "Sleep"
	KindNumbness           EventKind = "Numbness"
)

// Kinds lists every event kind in declaration order.
func Kinds() []EventKind {
	return []EventKind{KindBlink, KindShortBlinkInterval, KindLongBlinkDuration, KindSleep, KindNumbness}
}

// ParseKind maps a kind name back to its EventKind.
func ParseKind(s string) (EventKind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// #endregion event-kind

// #region state
// State is the estimator's whole running state. It is replaced as one value
// per accepted sample.
type State struct {
	Phase           Phase
	BlinkStart      float64 // timestamp the current closure began
	EyesClosedSince float64 // valid while Phase != PhaseOpen
	LastBlinkStart  float64
	HasLastBlink    bool
	BlinkCount      int

	IntervalStreak int // consecutive blinks with interval below BlinkIntervalBelow
	DurationStreak int // consecutive blinks with duration above BlinkDurationAbove

	LastInterval float64
	LastDuration float64

	ShortBlinkInterval bool
	LongBlinkDuration  bool
	SleepActive        bool

	FaceDetected  bool
	FaceSize      FaceSize
	LeftEyeOpen   float64
	RightEyeOpen  float64
	LastTimestamp float64
	Samples       int
}

// NumbnessActive reports whether the eyes have been held closed past the alarm threshold.
func (s State) NumbnessActive() bool {
	return s.Phase == PhaseNumb
}

// BlinkInProgress reports whether the eyes are currently closed.
func (s State) BlinkInProgress() bool {
	return s.Phase != PhaseOpen
}

// #endregion state

// #region effect
// EffectType enumerates the side-effect requests a transition can emit.
type EffectType string

const (
	EffectAppendEvent EffectType = "append_event"
	EffectAlarmStart  EffectType = "alarm_start"
	EffectAlarmStop   EffectType = "alarm_stop"
	EffectAlertStart  EffectType = "alert_start"
)

// Effect is a fire-and-forget request for an external collaborator.
// Kind, Value and At are set for EffectAppendEvent; Loop for the sound requests.
type Effect struct {
	Type  EffectType
	Kind  EventKind
	Value *float64
	At    time.Time
	Loop  bool
}

// #endregion effect

// #region snapshot
// Snapshot is the result of processing one sample.
type Snapshot struct {
	Status  Status
	State   State
	Effects []Effect
}

// #endregion snapshot
