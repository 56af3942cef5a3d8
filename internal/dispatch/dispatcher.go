package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/drowsiness/go-monitor/internal/log"
	"golang.org/x/time/rate"
)

// ErrQueueFull is wrapped by warnings for jobs that could not be queued.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrClosed is wrapped by warnings for jobs submitted after Close.
var ErrClosed = errors.New("dispatcher closed")

// #region types
// Job is one request for an external collaborator.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Warning reports a request that was dropped or failed. It never stops a session.
type Warning struct {
	Job string
	Err error
	At  time.Time
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Job, w.Err)
}

// Config sizes the dispatcher.
type Config struct {
	QueueSize    int           // pending jobs before Submit starts dropping
	WarningsSize int           // buffered warnings before the oldest is dropped
	JobTimeout   time.Duration // per-job deadline
	LogEvery     time.Duration // minimum spacing of warning log lines
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		WarningsSize: 64,
		JobTimeout:   5 * time.Second,
		LogEvery:     time.Second,
	}
}

// #endregion types

// #region dispatcher
// Dispatcher runs jobs on one worker goroutine so callers never wait on I/O.
type Dispatcher struct {
	config   Config
	queue    chan Job
	warnings chan Warning
	limiter  *rate.Limiter

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	cancel context.CancelFunc
}

// New creates a dispatcher and starts its worker.
func New(config Config) *Dispatcher {
	def := DefaultConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.WarningsSize <= 0 {
		config.WarningsSize = def.WarningsSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if config.LogEvery <= 0 {
		config.LogEvery = def.LogEvery
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		config:   config,
		queue:    make(chan Job, config.QueueSize),
		warnings: make(chan Warning, config.WarningsSize),
		limiter:  rate.NewLimiter(rate.Every(config.LogEvery), 3),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go d.work(ctx)
	return d
}

// #endregion dispatcher

// #region submit
// Submit queues jobs without blocking. Jobs that do not fit are returned as warnings.
func (d *Dispatcher) Submit(jobs ...Job) []Warning {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var dropped []Warning
	for _, job := range jobs {
		if d.closed {
			dropped = append(dropped, d.warn(job.Name, ErrClosed))
			continue
		}
		select {
		case d.queue <- job:
		default:
			dropped = append(dropped, d.warn(job.Name, ErrQueueFull))
		}
	}
	return dropped
}

// Warnings delivers failures of queued jobs.
func (d *Dispatcher) Warnings() <-chan Warning {
	return d.warnings
}

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// #endregion submit

// #region worker
func (d *Dispatcher) work(ctx context.Context) {
	defer close(d.done)
	for job := range d.queue {
		jobCtx, cancel := context.WithTimeout(ctx, d.config.JobTimeout)
		err := job.Run(jobCtx)
		cancel()
		if err != nil {
			d.publish(d.warn(job.Name, err))
		}
	}
}

// publish hands a warning to the channel, dropping the oldest when it is full.
func (d *Dispatcher) publish(w Warning) {
	for {
		select {
		case d.warnings <- w:
			return
		default:
		}
		select {
		case <-d.warnings:
		default:
		}
	}
}

func (d *Dispatcher) warn(job string, err error) Warning {
	w := Warning{Job: job, Err: err, At: time.Now()}
	if d.limiter.Allow() {
		log.Warn(log.Fields{"job": job, "error": err.Error()}, "dispatch request failed")
	}
	return w
}

// #endregion worker

// #region close
// Close stops accepting jobs and waits for the queue to drain. If ctx expires
// first, jobs still running are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

// #endregion close
