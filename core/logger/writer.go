package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink receives lines at or above min.
type sink struct {
	w   *bufio.Writer
	min slog.Level
}

type writeOp struct {
	line  []byte
	level slog.Level
	ack   chan error
}

// asyncWriter serializes log lines onto its sinks from a single goroutine.
type asyncWriter struct {
	ops   chan writeOp
	done  chan struct{}
	sinks []sink

	// gate keeps senders off ops once Close has run.
	gate   sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func newAsyncWriter(sinks []sink) *asyncWriter {
	w := &asyncWriter{
		ops:   make(chan writeOp, 256),
		done:  make(chan struct{}),
		sinks: sinks,
	}
	go w.run()
	return w
}

// bufferedSink wraps out in a 64 KiB buffer.
func bufferedSink(out io.Writer, min slog.Level) sink {
	return sink{w: bufio.NewWriterSize(out, 64*1024), min: min}
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.flush()
			continue
		}
		for _, s := range w.sinks {
			if op.level < s.min {
				continue
			}
			if _, err := s.w.Write(op.line); err != nil {
				w.fail(err)
				continue
			}
			if err := s.w.Flush(); err != nil {
				w.fail(err)
			}
		}
	}
	w.fail(w.flush())
}

// Write queues a copy of line. It blocks while the queue is full.
func (w *asyncWriter) Write(line []byte, level slog.Level) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- writeOp{line: append([]byte(nil), line...), level: level}
	return nil
}

// Flush returns once every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	w.gate.RLock()
	if w.closed {
		w.gate.RUnlock()
		return w.firstErr()
	}
	ack := make(chan error, 1)
	w.ops <- writeOp{ack: ack}
	w.gate.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.gate.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
