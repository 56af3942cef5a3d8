package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Samples         []FixtureSample         `json:"samples"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
	ExpectedSummary *FixtureExpectedSummary `json:"expected_summary,omitempty"`
}

// FixtureConfig holds the screen width and optional threshold overrides.
// Omitted thresholds keep the estimator defaults.
type FixtureConfig struct {
	ScreenWidth        float64  `json:"screen_width"`
	OpenEyeThreshold   *float64 `json:"open_eye_threshold,omitempty"`
	NumbnessSeconds    *float64 `json:"numbness_seconds,omitempty"`
	BlinkIntervalBelow *float64 `json:"blink_interval_below,omitempty"`
	BlinkDurationAbove *float64 `json:"blink_duration_above,omitempty"`
	StreakTrigger      *int     `json:"streak_trigger,omitempty"`
	FaceLowerSize      *float64 `json:"face_lower_size,omitempty"`
	FaceUpperSize      *float64 `json:"face_upper_size,omitempty"`
}

// FixtureSample mirrors estimator.Sample with JSON tags. Null fields are absent readings.
type FixtureSample struct {
	Timestamp    float64  `json:"timestamp"`
	LeftEyeOpen  *float64 `json:"left_eye_open"`
	RightEyeOpen *float64 `json:"right_eye_open"`
	FaceWidth    *float64 `json:"face_width"`
}

// FixtureExpectedResult pins the status text after one sample.
type FixtureExpectedResult struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
}

// FixtureExpectedSummary pins end-of-run counters.
type FixtureExpectedSummary struct {
	Blinks      int            `json:"blinks"`
	Events      map[string]int `json:"events"`
	AlarmStarts int            `json:"alarm_starts"`
	AlarmStops  int            `json:"alarm_stops"`
	Alerts      int            `json:"alerts"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Config.ScreenWidth <= 0 {
		return nil, fmt.Errorf("fixture %s: screen_width must be positive", path)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Epoch is the wall clock replays stamp events with, so runs are reproducible.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ToConfig converts a FixtureConfig to an estimator config.
func (fc *FixtureConfig) ToConfig() estimator.Config {
	c := estimator.DefaultConfig(fc.ScreenWidth)
	c.Now = func() time.Time { return Epoch }
	override(&c.OpenEyeThreshold, fc.OpenEyeThreshold)
	override(&c.NumbnessSeconds, fc.NumbnessSeconds)
	override(&c.BlinkIntervalBelow, fc.BlinkIntervalBelow)
	override(&c.BlinkDurationAbove, fc.BlinkDurationAbove)
	override(&c.FaceLowerSize, fc.FaceLowerSize)
	override(&c.FaceUpperSize, fc.FaceUpperSize)
	if fc.StreakTrigger != nil {
		c.StreakTrigger = *fc.StreakTrigger
	}
	return c
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// ToSample converts a FixtureSample to a domain sample.
func (fs *FixtureSample) ToSample() estimator.Sample {
	return estimator.Sample{
		Timestamp:    fs.Timestamp,
		LeftEyeOpen:  fs.LeftEyeOpen,
		RightEyeOpen: fs.RightEyeOpen,
		FaceWidth:    fs.FaceWidth,
	}
}

// ToSamples converts every fixture sample.
func (f *Fixture) ToSamples() []estimator.Sample {
	out := make([]estimator.Sample, len(f.Samples))
	for i := range f.Samples {
		out[i] = f.Samples[i].ToSample()
	}
	return out
}

// #endregion fixture-loader

// #region fixture-build

// NewFixture records samples together with the statuses and counters they
// currently produce. Only status changes are pinned, to keep fixtures readable.
func NewFixture(description string, screenWidth float64, samples []estimator.Sample) *Fixture {
	f := &Fixture{
		Description: description,
		Config:      FixtureConfig{ScreenWidth: screenWidth},
	}
	for _, s := range samples {
		f.Samples = append(f.Samples, FixtureSample{
			Timestamp:    s.Timestamp,
			LeftEyeOpen:  s.LeftEyeOpen,
			RightEyeOpen: s.RightEyeOpen,
			FaceWidth:    s.FaceWidth,
		})
	}

	results := Replay(samples, f.Config.ToConfig())
	prev := ""
	for _, r := range results {
		if r.Err != nil || r.Status.Text == prev {
			continue
		}
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{Index: r.Index, Status: r.Status.Text})
		prev = r.Status.Text
	}

	sum := Summarize(results)
	exp := &FixtureExpectedSummary{
		Blinks:      sum.Blinks,
		Events:      make(map[string]int, len(sum.Events)),
		AlarmStarts: sum.AlarmStarts,
		AlarmStops:  sum.AlarmStops,
		Alerts:      sum.Alerts,
	}
	for k, n := range sum.Events {
		exp.Events[string(k)] = n
	}
	f.ExpectedSummary = exp
	return f
}

// #endregion fixture-build
