package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/ingest"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/recording"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the monitor database (DB mode)")
	sessionID := flag.String("session", "", "recorded session id (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	screenWidth := flag.Float64("screen-width", 1080, "screen width used for recorded sessions")
	addr := flag.String("addr", "", "push the fixture to a running monitor at this gRPC address instead of replaying locally")
	flag.Parse()

	dbMode := *dbPath != ""
	fixtureMode := *fixturePath != ""
	if dbMode == fixtureMode || (dbMode && *sessionID == "") || (*addr != "" && !fixtureMode) {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--addr host:port]")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/drowsiness.db --session id [--screen-width px]")
		os.Exit(2)
	}

	var exitCode int
	switch {
	case *addr != "":
		exitCode = runRemoteMode(*fixturePath, *addr)
	case fixtureMode:
		exitCode = runFixtureMode(*fixturePath)
	default:
		exitCode = runDBMode(*dbPath, *sessionID, *screenWidth)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, sessionID string, screenWidth float64) int {
	store, err := eventlog.NewStore(dbPath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	rec, err := recording.NewRecorder(store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open recording: %v\n", err)
		return 2
	}
	samples, err := rec.Samples(context.Background(), sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load samples: %v\n", err)
		return 2
	}

	config := (&replay.FixtureConfig{ScreenWidth: screenWidth}).ToConfig()
	results := replay.Replay(samples, config)
	printTimeline(results)
	printSummary(replay.Summarize(results))
	return 0
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results := replay.Replay(f.ToSamples(), f.Config.ToConfig())
	return printComparison(f, results)
}

// runRemoteMode streams the fixture's samples to a live monitor and compares its answers.
func runRemoteMode(path, addr string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	client, err := ingest.NewClient(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 2
	}
	defer client.Close()

	results := make([]replay.Result, len(f.Samples))
	for i, s := range f.ToSamples() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		st, err := client.PushFrame(ctx, s)
		cancel()
		results[i] = replay.Result{Index: i, Timestamp: s.Timestamp, Err: err}
		results[i].Status.Text = st.Text
	}

	// Only per-sample statuses can be checked remotely.
	f.ExpectedSummary = nil
	return printComparison(f, results)
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns the exit code.
func printComparison(f *replay.Fixture, results []replay.Result) int {
	fmt.Printf("%-8s| %-28s| %-28s| %s\n", "Sample", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-29s+%-29s+%s\n",
		"--------", "-----------------------------", "-----------------------------", "------")

	matches := 0
	for _, exp := range f.ExpectedResults {
		got := "<missing>"
		if exp.Index >= 0 && exp.Index < len(results) {
			got = results[exp.Index].Status.Text
			if err := results[exp.Index].Err; err != nil {
				got = "error: " + err.Error()
			}
		}
		match := "DIFF"
		if got == exp.Status {
			match = "OK"
			matches++
		}
		fmt.Printf("%-8d| %-28s| %-28s| %s\n", exp.Index, exp.Status, got, match)
	}

	divergences := replay.Compare(f, results)
	summaryDiffs := 0
	for _, d := range divergences {
		if d.Index < 0 {
			fmt.Println(d.String())
			summaryDiffs++
		}
	}

	total := len(f.ExpectedResults)
	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge, %d summary diffs\n", total, matches, diverge, summaryDiffs)

	if diverge > 0 || summaryDiffs > 0 {
		return 1
	}
	return 0
}

// printTimeline lists every status change and every logged event.
func printTimeline(results []replay.Result) {
	fmt.Printf("%-8s %-10s %-28s %s\n", "Sample", "Time", "Status", "Events")
	prev := ""
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-8d %-10.2f %-28s %v\n", r.Index, r.Timestamp, "rejected", r.Err)
			continue
		}
		if r.Status.Text == prev && len(r.Events) == 0 {
			continue
		}
		fmt.Printf("%-8d %-10.2f %-28s %v\n", r.Index, r.Timestamp, r.Status.Text, r.Events)
		prev = r.Status.Text
	}
}

func printSummary(s replay.Summary) {
	fmt.Printf("\nSamples: %d (%d rejected) | Blinks: %d | Alarm: %d/%d | Alerts: %d | Final: %s\n",
		s.TotalSamples, s.Rejected, s.Blinks, s.AlarmStarts, s.AlarmStops, s.Alerts, s.FinalStatus.Text)
	for _, k := range estimator.Kinds() {
		if n := s.Events[k]; n > 0 {
			fmt.Printf("  %-20s %d\n", k, n)
		}
	}
}

// #endregion output
