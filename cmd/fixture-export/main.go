package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/recording"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the monitor database")
	sessionID := flag.String("session", "", "recorded session id (default: the most recent one)")
	screenWidth := flag.Float64("screen-width", 1080, "screen width the session was recorded with")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--session id] [--screen-width px]")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *screenWidth, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, sessionID string, screenWidth float64, outPath string) error {
	ctx := context.Background()
	store, err := eventlog.NewStore(dbPath, 0)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	rec, err := recording.NewRecorder(store.DB())
	if err != nil {
		return err
	}

	if sessionID == "" {
		infos, err := rec.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			return fmt.Errorf("no recorded sessions in %s", dbPath)
		}
		sessionID = infos[len(infos)-1].ID
	}

	samples, err := rec.Samples(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d samples for session %s\n", len(samples), sessionID)

	desc := fmt.Sprintf("Recorded session export: %d samples from session %s", len(samples), sessionID)
	fixture := replay.NewFixture(desc, screenWidth, samples)
	if err := fixture.Save(outPath); err != nil {
		return err
	}

	fmt.Printf("Wrote fixture to %s (%d samples, %d pinned statuses)\n", outPath, len(fixture.Samples), len(fixture.ExpectedResults))
	return nil
}

// #endregion extract
