// Package logger provides the structured slog setup shared by the bot: an
// asynchronous writer, key ordered kv or JSON lines and context scoped
// update metadata.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/sheetbot/core/buildinfo"
	coreconfig "github.com/m3rciful/sheetbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	writer  *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	sampler debugSampler
	trace   bool

	// L is the base logger. It stays nil until InitLogger runs, and every
	// helper in this package is a no-op until then.
	L *slog.Logger
)

// settings is the resolved logging section of the config.
type settings struct {
	level   slog.Level
	format  logFormat
	order   []string
	profile string
	// sampleNum and sampleDen default to 1/50.
	sampleNum, sampleDen int
	dir                  string
	botFile              string
	errorsFile           string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		order:     defaultKeyOrder,
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if n, d, ok := parseSampleRatio(lc.DebugSample); ok {
		s.sampleNum, s.sampleDen = n, d
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errorsFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

// InitLogger installs the global logger. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		sampler.set(s.sampleNum, s.sampleDen)
		trace = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		var sinks []sink
		sinks, files, err = openSinks(s)
		if err != nil {
			return
		}
		writer = newAsyncWriter(sinks)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   writer,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

// openSinks returns stdout plus the optional bot and errors files under dir.
func openSinks(s settings) ([]sink, []io.Closer, error) {
	sinks := []sink{bufferedSink(os.Stdout, slog.LevelDebug)}
	if s.dir == "" || (s.botFile == "" && s.errorsFile == "") {
		return sinks, nil, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", s.dir, err)
	}

	var closers []io.Closer
	for _, f := range []struct {
		name string
		min  slog.Level
	}{
		{s.botFile, slog.LevelDebug},
		{s.errorsFile, slog.LevelError},
	} {
		if f.name == "" {
			continue
		}
		path := filepath.Join(s.dir, f.name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("logger: open %s: %w", path, err)
		}
		sinks = append(sinks, bufferedSink(file, f.min))
		closers = append(closers, file)
	}
	return sinks, closers, nil
}

// Shutdown flushes pending lines and closes the log files.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if writer != nil {
		errs = append(errs, writer.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Background returns context.Background.
func Background() context.Context {
	return context.Background()
}

// Component returns L scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes attrs with the event key first. A nil logg falls back to
// the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctxOrBackground(ctx), lvl, "", attrs...)
}

// Event logs event for component at lvl.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), lvl, event, attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high volume debug event should be
// logged. TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return trace || sampler.allow()
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
