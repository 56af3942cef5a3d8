package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/audio"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/config"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/dispatch"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/estimator"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/eventlog"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/ingest"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/recording"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/report"
	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/session"
	"google.golang.org/grpc"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if err := run(cfg); err != nil {
		log.Error(log.Fields{"error": err.Error()}, "monitor stopped")
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(cfg config.Config) error {
	ctx := context.Background()

	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	dcfg := dispatch.DefaultConfig()
	dcfg.QueueSize = cfg.QueueSize
	sess := session.New(session.Config{
		Estimator: estimator.DefaultConfig(cfg.ScreenWidth),
		Dispatch:  dcfg,
		Driver:    cfg.Driver,
		Recipient: cfg.Operator,
	}, session.NewStepClock(0), sinks)

	srv := ingest.NewServer(sess, report.FileDeliverer{Path: cfg.ReportPath})
	g := grpc.NewServer()
	srv.Register(g)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	go func() {
		if err := g.Serve(lis); err != nil {
			log.Error(log.Fields{"error": err.Error()}, "grpc serve failed")
		}
	}()

	log.Info(log.Fields{
		"session": sess.ID(),
		"addr":    cfg.GRPCAddr,
		"backend": cfg.EventBackend,
		"record":  cfg.RecordSamples,
	}, "monitor ready")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case sig := <-stop:
			log.Info(log.Fields{"signal": sig.String()}, "shutting down")
			running = false
		case <-srv.Ended():
			log.Info(log.Fields{"session": sess.ID()}, "session ended by client")
			running = false
		case <-ticker.C:
			st := sess.Stats()
			log.Debug(log.Fields{"frames": st.Frames, "fps": fmt.Sprintf("%.2f", st.FPS), "status": st.Status.Text}, "session stats")
		}
	}

	endCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	p, err := srv.Finish(endCtx)
	g.GracefulStop()
	if err != nil {
		return err
	}
	log.Info(log.Fields{"report": cfg.ReportPath, "events": p.Total()}, "report written")
	return nil
}

// #endregion run

// #region sinks
// openSinks builds the event log backend and sound players named by cfg.
func openSinks(ctx context.Context, cfg config.Config) (session.Sinks, func(), error) {
	var sinks session.Sinks
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.EventBackend {
	case "sqlite":
		store, err := eventlog.NewStore(cfg.DBPath, cfg.EventCap)
		if err != nil {
			return sinks, nil, fmt.Errorf("open event store: %w", err)
		}
		closers = append(closers, func() { store.Close() })
		sinks.Log = store
		if cfg.RecordSamples {
			rec, err := recording.NewRecorder(store.DB())
			if err != nil {
				closeAll()
				return sinks, nil, err
			}
			sinks.Recorder = rec
		}
	case "redis":
		client, err := eventlog.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return sinks, nil, err
		}
		closers = append(closers, func() { client.Close() })
		sinks.Log = eventlog.NewRedisLog(client, cfg.RedisPrefix, cfg.EventCap)
	default:
		sinks.Log = eventlog.NewMemoryLog(cfg.EventCap)
	}
	if cfg.RecordSamples && sinks.Recorder == nil {
		log.Warn(log.Fields{"backend": cfg.EventBackend}, "sample recording needs the sqlite backend, disabled")
	}

	var err error
	if sinks.Alarm, err = player("alarm", cfg.AlarmCommand); err != nil {
		closeAll()
		return sinks, nil, err
	}
	if sinks.Alert, err = player("alert", cfg.AlertCommand); err != nil {
		closeAll()
		return sinks, nil, err
	}
	return sinks, closeAll, nil
}

func player(name, command string) (audio.Player, error) {
	if command == "" {
		return audio.LogPlayer{Name: name}, nil
	}
	p, err := audio.NewCommandPlayer(command)
	if err != nil {
		return nil, fmt.Errorf("%s player: %w", name, err)
	}
	return p, nil
}

// #endregion sinks
