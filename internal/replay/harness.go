package replay

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
)

// #region types

// Result captures the outcome of replaying one sample.
type Result struct {
	Index     int
	Timestamp float64
	Status    estimator.Status
	State     estimator.State
	Events    []estimator.EventKind
	Effects   []estimator.EffectType
	Err       error // set when the sample was rejected; Status and State are unchanged
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSamples int
	Rejected     int
	Blinks       int
	Events       map[estimator.EventKind]int
	AlarmStarts  int
	AlarmStops   int
	Alerts       int
	FinalStatus  estimator.Status
	FinalState   estimator.State
}

// Divergence is one place where a replay disagrees with a fixture.
type Divergence struct {
	Index    int // -1 for summary fields
	Field    string
	Expected string
	Actual   string
}

func (d Divergence) String() string {
	if d.Index < 0 {
		return fmt.Sprintf("summary %s: expected %s, got %s", d.Field, d.Expected, d.Actual)
	}
	return fmt.Sprintf("sample %d %s: expected %s, got %s", d.Index, d.Field, d.Expected, d.Actual)
}

// #endregion types

// #region replay

// Replay runs samples through a fresh estimator. Operates entirely in-memory;
// effects are recorded, never executed.
func Replay(samples []estimator.Sample, config estimator.Config) []Result {
	est := estimator.New(config)
	results := make([]Result, 0, len(samples))

	for i, s := range samples {
		snap, err := est.Process(s)
		if err != nil {
			st := est.State()
			results = append(results, Result{
				Index:     i,
				Timestamp: s.Timestamp,
				Status:    estimator.StatusOf(st),
				State:     st,
				Err:       err,
			})
			continue
		}

		r := Result{
			Index:     i,
			Timestamp: s.Timestamp,
			Status:    snap.Status,
			State:     snap.State,
		}
		for _, ef := range snap.Effects {
			r.Effects = append(r.Effects, ef.Type)
			if ef.Type == estimator.EffectAppendEvent {
				r.Events = append(r.Events, ef.Kind)
			}
		}
		results = append(results, r)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{
		TotalSamples: len(results),
		Events:       make(map[estimator.EventKind]int),
		FinalStatus:  estimator.StatusOf(estimator.State{FaceSize: estimator.FaceSizeOK}),
	}
	for _, r := range results {
		s.FinalStatus = r.Status
		s.FinalState = r.State
		if r.Err != nil {
			s.Rejected++
			continue
		}
		for _, k := range r.Events {
			s.Events[k]++
		}
		for _, e := range r.Effects {
			switch e {
			case estimator.EffectAlarmStart:
				s.AlarmStarts++
			case estimator.EffectAlarmStop:
				s.AlarmStops++
			case estimator.EffectAlertStart:
				s.Alerts++
			}
		}
	}
	s.Blinks = s.FinalState.BlinkCount
	return s
}

// #endregion replay

// #region compare

// Compare checks results against the fixture's expectations.
func Compare(f *Fixture, results []Result) []Divergence {
	var out []Divergence
	for _, exp := range f.ExpectedResults {
		if exp.Index < 0 || exp.Index >= len(results) {
			out = append(out, Divergence{Index: exp.Index, Field: "status", Expected: exp.Status, Actual: "<missing>"})
			continue
		}
		if got := results[exp.Index].Status.Text; got != exp.Status {
			out = append(out, Divergence{Index: exp.Index, Field: "status", Expected: exp.Status, Actual: got})
		}
	}

	if f.ExpectedSummary == nil {
		return out
	}
	sum := Summarize(results)
	exp := f.ExpectedSummary
	check := func(field string, want, got int) {
		if want != got {
			out = append(out, Divergence{Index: -1, Field: field, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)})
		}
	}
	check("blinks", exp.Blinks, sum.Blinks)
	check("alarm_starts", exp.AlarmStarts, sum.AlarmStarts)
	check("alarm_stops", exp.AlarmStops, sum.AlarmStops)
	check("alerts", exp.Alerts, sum.Alerts)

	kinds := make(map[string]bool)
	for k := range exp.Events {
		kinds[k] = true
	}
	for k := range sum.Events {
		kinds[string(k)] = true
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		check("events."+k, exp.Events[k], sum.Events[estimator.EventKind(k)])
	}
	return out
}

// #endregion compare
