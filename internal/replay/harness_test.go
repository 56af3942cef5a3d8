package replay

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// helper: sample with both eyes at p and a centered face.
func eyes(ts, p float64) estimator.Sample {
	return estimator.Sample{
		Timestamp:    ts,
		LeftEyeOpen:  estimator.Float(p),
		RightEyeOpen: estimator.Float(p),
		FaceWidth:    estimator.Float(500),
	}
}

func defaultConfig() estimator.Config {
	return (&FixtureConfig{ScreenWidth: 1000}).ToConfig()
}

// 1. A single blink is recorded as one Blink event on reopening.
func TestReplay_SingleBlink(t *testing.T) {
	results := Replay([]estimator.Sample{eyes(0, 1), eyes(0.1, 0), eyes(0.2, 1)}, defaultConfig())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if len(results[1].Events) != 0 {
		t.Errorf("closing must not log, got %v", results[1].Events)
	}
	if len(results[2].Events) != 1 || results[2].Events[0] != estimator.KindBlink {
		t.Errorf("expected Blink on reopen, got %v", results[2].Events)
	}
	sum := Summarize(results)
	if sum.Blinks != 1 || sum.Events[estimator.KindBlink] != 1 || sum.FinalStatus.Text != "Awake" {
		t.Errorf("unexpected summary %+v", sum)
	}
}

// 2. Rejected samples are reported but do not advance the state.
func TestReplay_RejectedSample(t *testing.T) {
	results := Replay([]estimator.Sample{eyes(1, 1), eyes(0.5, 0), eyes(math.NaN(), 0), eyes(1.1, 0)}, defaultConfig())

	if !errors.Is(results[1].Err, estimator.ErrInvalidSample) || results[2].Err == nil {
		t.Fatalf("expected rejections, got %v / %v", results[1].Err, results[2].Err)
	}
	if results[1].State.Samples != 1 {
		t.Errorf("rejected sample must leave state unchanged, got %d samples", results[1].State.Samples)
	}
	if results[3].Err != nil || results[3].State.BlinkCount != 1 {
		t.Errorf("replay must continue after a rejection: %+v", results[3])
	}
	if sum := Summarize(results); sum.Rejected != 2 || sum.TotalSamples != 4 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

// 3. Numbness starts and stops the alarm exactly once.
func TestReplay_AlarmEffects(t *testing.T) {
	samples := []estimator.Sample{eyes(0, 1)}
	for i := 1; i <= 20; i++ {
		samples = append(samples, eyes(float64(i)/10, 0))
	}
	samples = append(samples, eyes(2.1, 1))

	sum := Summarize(Replay(samples, defaultConfig()))
	if sum.AlarmStarts != 1 || sum.AlarmStops != 1 || sum.Events[estimator.KindNumbness] != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	if sum.TotalSamples != 0 || sum.FinalStatus.Text != "Face not detected" {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestCompare_ReportsDivergence(t *testing.T) {
	f := &Fixture{
		ExpectedResults: []FixtureExpectedResult{
			{Index: 0, Status: "Sleep"},
			{Index: 5, Status: "Awake"},
		},
		ExpectedSummary: &FixtureExpectedSummary{Blinks: 2, Events: map[string]int{"Blink": 2}},
	}
	results := Replay([]estimator.Sample{eyes(0, 1), eyes(0.1, 0), eyes(0.2, 1)}, defaultConfig())

	d := Compare(f, results)
	var text []string
	for _, x := range d {
		text = append(text, x.String())
	}
	joined := strings.Join(text, "\n")
	for _, want := range []string{
		"sample 0 status: expected Sleep, got Awake",
		"sample 5 status: expected Awake, got <missing>",
		"summary blinks: expected 2, got 1",
		"summary events.Blink: expected 2, got 1",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing divergence %q in:\n%s", want, joined)
		}
	}
}

func TestCompare_NoSummary(t *testing.T) {
	f := &Fixture{ExpectedResults: []FixtureExpectedResult{{Index: 0, Status: "Awake"}}}
	if d := Compare(f, Replay([]estimator.Sample{eyes(0, 1)}, defaultConfig())); len(d) != 0 {
		t.Fatalf("unexpected divergence %v", d)
	}
}
