// Package audio drives the alarm and alert sounds requested by a session.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
)

// ErrNoCommand is returned when a CommandPlayer is built from an empty command line.
var ErrNoCommand = errors.New("audio: empty player command")

// restartDelay spaces loop restarts so a command that exits at once cannot spin.
const restartDelay = 200 * time.Millisecond

// Player plays one sound. Start while already playing restarts the sound.
type Player interface {
	Start(ctx context.Context, loop bool) error
	Stop(ctx context.Context) error
}

// #region command
// CommandPlayer plays a sound by running an external command such as
// "aplay /usr/share/sounds/alarm.wav". In loop mode the command is restarted
// every time it exits until Stop is called.
type CommandPlayer struct {
	name string
	args []string

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewCommandPlayer splits command on whitespace.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

func (p *CommandPlayer) Start(ctx context.Context, loop bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	cmd := exec.Command(p.name, p.args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.supervise(cmd, loop, p.stop, p.done)
	return nil
}

func (p *CommandPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stop == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.stop)
	done := p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Playing reports whether the command (or its loop) is still running.
func (p *CommandPlayer) Playing() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// stopLocked ends the current playback and waits for it (must hold mu).
func (p *CommandPlayer) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

func (p *CommandPlayer) supervise(cmd *exec.Cmd, loop bool, stop, done chan struct{}) {
	defer close(done)
	for {
		exited := make(chan error, 1)
		go func() { exited <- cmd.Wait() }()

		select {
		case <-stop:
			if cmd.Process != nil {
				cmd.Process.Kill()
			}
			<-exited
			return
		case err := <-exited:
			if err != nil {
				log.Debug(log.Fields{"command": p.name, "error": err.Error()}, "player exited")
			}
			if !loop {
				return
			}
		}

		select {
		case <-stop:
			return
		case <-time.After(restartDelay):
		}

		next := exec.Command(p.name, p.args...)
		if err := next.Start(); err != nil {
			log.Warn(log.Fields{"command": p.name, "error": err.Error()}, "player restart failed")
			return
		}
		cmd = next
	}
}

// #endregion command

// #region log
// LogPlayer only logs requests. It is the default when no command is configured.
type LogPlayer struct {
	Name string
}

func (p LogPlayer) Start(_ context.Context, loop bool) error {
	log.Info(log.Fields{"sound": p.Name, "loop": loop}, "sound start")
	return nil
}

func (p LogPlayer) Stop(context.Context) error {
	log.Info(log.Fields{"sound": p.Name}, "sound stop")
	return nil
}

// #endregion log
