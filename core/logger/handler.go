package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

var errNoWriter = errors.New("logger: writer not initialized")

// maskedFields rewrite values that must not reach the logs verbatim.
var maskedFields = map[string]func(string) string{
	"spreadsheet_id": MaskID,
}

// enumFields normalize well-known enumerations. Unknown outcomes are dropped,
// unknown statuses are kept as written.
var enumFields = []struct {
	key         string
	normalize   func(string) (string, bool)
	keepUnknown bool
}{
	{key: "status", normalize: normalizeStatus, keepUnknown: true},
	{key: "outcome", normalize: normalizeOutcome},
}

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errNoWriter
	}
	isJSON := h.cfg.format == formatJSON

	e := entry{}
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = levelName(r.Level)
	if isJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		e.add(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(prefix, a)
		return true
	})
	for _, a := range MetaFrom(ctx).fields() {
		e.setDefault(a.Key, a.Value.Any())
	}

	e.compactRID(isJSON)
	e.setDefault("event", r.Message)
	e.setDefault("event", "unknown")
	e.setDefault("component", "app")
	e.mask()
	e.normalizeEnums()
	e.prune()

	var line []byte
	if isJSON {
		var err error
		if line, err = encodeJSON(e, h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = encodeKV(e, h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'), r.Level)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// entry is a flattened log line before encoding.
type entry map[string]any

func (e entry) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			e.add(key, child)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if k, v, ok := normalizeValue(key, a.Value.Resolve()); ok {
		e[k] = v
	}
}

// setDefault sets key unless it already holds a non-empty value.
func (e entry) setDefault(key string, val any) {
	if s, ok := e.str(key); ok && s != "" {
		return
	}
	if s, ok := val.(string); ok && s == "" {
		return
	}
	e[key] = val
}

func (e entry) str(key string) (string, bool) {
	v, ok := e[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// compactRID shortens rid; JSON lines also keep the raw value as rid_full.
func (e entry) compactRID(keepFull bool) {
	rid, ok := e.str("rid")
	if !ok || rid == "" {
		return
	}
	compact := CompactRID(rid)
	if compact == rid {
		return
	}
	if keepFull {
		e.setDefault("rid_full", rid)
	}
	e["rid"] = compact
}

func (e entry) mask() {
	for key, fn := range maskedFields {
		if s, ok := e.str(key); ok {
			e[key] = fn(s)
		}
	}
}

func (e entry) normalizeEnums() {
	for _, f := range enumFields {
		s, ok := e.str(f.key)
		if !ok || s == "" {
			continue
		}
		switch v, valid := f.normalize(s); {
		case valid:
			e[f.key] = v
		case !f.keepUnknown:
			delete(e, f.key)
		}
	}
}

func (e entry) prune() {
	for k, v := range e {
		switch val := v.(type) {
		case nil:
			delete(e, k)
		case string:
			if val == "" {
				delete(e, k)
			}
		}
	}
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func normalizeValue(key string, val slog.Value) (string, any, bool) {
	switch val.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(val.String()), true
	case slog.KindBool:
		return key, val.Bool(), true
	case slog.KindInt64:
		return key, val.Int64(), true
	case slog.KindUint64:
		if u := val.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, val.Uint64(), true
	case slog.KindFloat64:
		return key, val.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(val.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, val.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := val.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}
