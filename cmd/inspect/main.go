package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/recording"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the monitor database")
	redisAddr := flag.String("redis", "", "read a Redis event log at this address instead of SQLite")
	redisPrefix := flag.String("redis-prefix", "drowsiness", "Redis key prefix")
	kind := flag.String("kind", "", "show one event kind only")
	clearKind := flag.String("clear", "", "delete every entry of this kind")
	sessions := flag.Bool("sessions", false, "list recorded sessions (SQLite only)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if (*dbPath == "") == (*redisAddr == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/drowsiness.db [--kind K] [--clear K] [--sessions] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --redis host:port [--redis-prefix p] [--kind K] [--clear K] [--json]")
		os.Exit(2)
	}

	ctx := context.Background()
	var (
		log   eventlog.Log
		store *eventlog.Store
	)
	if *dbPath != "" {
		s, err := eventlog.NewStore(*dbPath, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()
		log, store = s, s
	} else {
		client, err := eventlog.Dial(ctx, *redisAddr, "", 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect redis: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()
		log = eventlog.NewRedisLog(client, *redisPrefix, 0)
	}

	var err error
	switch {
	case *clearKind != "":
		err = runClear(ctx, log, *clearKind)
	case *sessions:
		err = runSessions(ctx, store, *jsonOut)
	default:
		err = runList(ctx, log, store, *kind, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	Kind      string   `json:"kind"`
	Value     *float64 `json:"value,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func runList(ctx context.Context, log eventlog.Log, store *eventlog.Store, kindFilter string, jsonOut bool) error {
	kinds := estimator.Kinds()
	if kindFilter != "" {
		k, ok := estimator.ParseKind(kindFilter)
		if !ok {
			return fmt.Errorf("unknown kind %q", kindFilter)
		}
		kinds = []estimator.EventKind{k}
	}

	var rows []listRow
	for _, k := range kinds {
		entries, err := log.Read(ctx, k)
		if err != nil {
			return err
		}
		for _, e := range entries {
			rows = append(rows, listRow{Kind: string(e.Kind), Value: e.Value, Timestamp: e.FormatTimestamp()})
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no events found")
		return nil
	}

	fmt.Printf("%-20s  %10s  %s\n", "Kind", "Value", "Time")
	fmt.Printf("%-20s+-%10s+-%s\n", "--------------------", "----------", "-------------------")
	for _, r := range rows {
		value := "-"
		if r.Value != nil {
			value = fmt.Sprintf("%.3f", *r.Value)
		}
		fmt.Printf("%-20s  %10s  %s\n", r.Kind, value, r.Timestamp)
	}

	if store != nil {
		counts, err := store.Counts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\nStored:")
		for _, k := range estimator.Kinds() {
			fmt.Printf(" %s=%d", k, counts[k])
		}
		fmt.Println()
	}
	return nil
}

// #endregion list-mode

// #region clear-mode

func runClear(ctx context.Context, log eventlog.Log, name string) error {
	k, ok := estimator.ParseKind(name)
	if !ok {
		return fmt.Errorf("unknown kind %q", name)
	}
	if err := log.Clear(ctx, k); err != nil {
		return err
	}
	fmt.Printf("cleared %s\n", k)
	return nil
}

// #endregion clear-mode

// #region sessions-mode

func runSessions(ctx context.Context, store *eventlog.Store, jsonOut bool) error {
	if store == nil {
		return fmt.Errorf("--sessions needs --db")
	}
	rec, err := recording.NewRecorder(store.DB())
	if err != nil {
		return err
	}
	infos, err := rec.Sessions(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "no recorded sessions")
		return nil
	}
	fmt.Printf("%-36s  %8s  %10s\n", "Session", "Samples", "Duration")
	for _, s := range infos {
		fmt.Printf("%-36s  %8d  %9.1fs\n", s.ID, s.Samples, s.Last-s.First)
	}
	return nil
}

// #endregion sessions-mode

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
