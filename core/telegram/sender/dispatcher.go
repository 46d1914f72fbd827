// Package sender runs outbound Telegram calls on a small worker pool with
// bounded retries.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errDeadline = errors.New("telegram sender: retry budget exhausted")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// With a single worker jobs run in the order they were enqueued.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	errs atomic.Uint64
}

// NewDispatcher starts opts.Workers goroutines. Zero options select defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run without blocking. run may be called more than once.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	return d.EnqueueWait(ctx, 0, action, endpoint, run)
}

// EnqueueWait is Enqueue that waits up to wait for room in a full queue.
// It gives up with ErrQueueFull when wait elapses and with ctx.Err() when
// ctx is done first; ctx also bounds the job itself.
func (d *Dispatcher) EnqueueWait(ctx context.Context, wait time.Duration, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	j := job{ctx: ctx, action: action, endpoint: endpoint, run: run}
	select {
	case d.jobs <- j:
		return nil
	default:
	}
	if wait <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case d.jobs <- j:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close rejects new jobs and waits until the queued ones have run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

// process runs j until it succeeds, fails permanently or runs out of
// attempts or time. The job context only carries log metadata; cancellation
// of the update does not abort a reply already queued.
func (d *Dispatcher) process(j job) {
	ctx := j.ctx
	deadline := time.Now().Add(d.opts.MaxDuration)
	start := time.Now()
	attempts := d.opts.MaxRetries + 1

	logger.Debug(ctx, "tg.sender", "send.start", j.attrs()...)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			attrs := append(j.attrs(), slog.Duration("elapsed", time.Since(start)))
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success", append(attrs, slog.Int("attempt", attempt))...)
			} else {
				logger.Debug(ctx, "tg.sender", "send.success", attrs...)
			}
			return
		}
		if !Retryable(err) || attempt == attempts {
			break
		}

		delay := d.backoff(err, attempt)
		if time.Now().Add(delay).After(deadline) {
			err = errors.Join(err, errDeadline)
			break
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff", append(j.attrs(),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)...)
		time.Sleep(delay)
	}

	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(j.attrs(),
		slog.String("status", "fail"),
		slog.String("err", redact(err)),
		slog.String("error_kind", classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	)...)
}

// backoff grows linearly with the attempt; a flood wait overrides it.
func (d *Dispatcher) backoff(err error, attempt int) time.Duration {
	if wait, ok := floodWait(err); ok && wait > 0 {
		return wait
	}
	return d.opts.RetryBackoff * time.Duration(attempt)
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
