package audio

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
)

func needBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestNewCommandPlayerEmpty(t *testing.T) {
	if _, err := NewCommandPlayer("   "); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	p, err := NewCommandPlayer("/nonexistent/player alarm.wav")
	if err != nil {
		t.Fatalf("NewCommandPlayer: %v", err)
	}
	if err := p.Start(context.Background(), false); err == nil {
		t.Fatal("expected start error")
	}
	if p.Playing() {
		t.Error("failed start must not be playing")
	}
}

func TestLoopUntilStop(t *testing.T) {
	needBinary(t, "sleep")
	p, _ := NewCommandPlayer("sleep 5")
	if err := p.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !p.Playing() {
		t.Fatal("expected playing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Playing() {
		t.Fatal("expected stopped")
	}
}

func TestLoopRestartsShortCommand(t *testing.T) {
	needBinary(t, "true")
	p, _ := NewCommandPlayer("true")
	if err := p.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(3 * restartDelay)
	if !p.Playing() {
		t.Fatal("loop must keep playing after the command exits")
	}
	p.Stop(context.Background())
}

func TestOneShotFinishes(t *testing.T) {
	needBinary(t, "true")
	p, _ := NewCommandPlayer("true")
	if err := p.Start(context.Background(), false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return !p.Playing() })
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after finish: %v", err)
	}
}

func TestStartRestartsPlayback(t *testing.T) {
	needBinary(t, "sleep")
	p, _ := NewCommandPlayer("sleep 5")
	p.Start(context.Background(), true)
	if err := p.Start(context.Background(), false); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !p.Playing() {
		t.Fatal("expected playing after restart")
	}
	p.Stop(context.Background())
}

func TestStopIdle(t *testing.T) {
	p, _ := NewCommandPlayer("sleep 1")
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop idle: %v", err)
	}
}

func TestStartCancelledContext(t *testing.T) {
	p, _ := NewCommandPlayer("sleep 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Start(ctx, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLogPlayer(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	p := LogPlayer{Name: "alarm"}
	p.Start(context.Background(), true)
	p.Stop(context.Background())
	out := buf.String()
	if !strings.Contains(out, "sound start") || !strings.Contains(out, "sound stop") {
		t.Fatalf("unexpected log output %q", out)
	}
}
