package logger

import (
	"log/slog"
	"strings"
)

// Statuses describe how an event ended. Outcomes narrow it down for the
// dialogue and transfer events.
var (
	knownStatus = enumSet("ok", "fail", "skip", "retry", "rate_limited", "cancelled")

	knownOutcome = enumSet(
		"ok", "fail", "cancelled", "rate_limited",
		"advanced", "completed", "unauthorized", "validation_failed",
		"not_found", "timeout", "no_data",
	)
)

func enumSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// levelName prints slog levels without offsets, so WARN+2 is still WARN.
func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	_, ok := knownStatus[status]
	return status, ok && status != ""
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	_, ok := knownOutcome[outcome]
	return outcome, ok && outcome != ""
}

// defaultKeyOrder puts the envelope first, then request identity, then the
// sheet coordinates of a transfer. Keys not listed follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "handler", "cb_key", "kind",
	"outcome", "duration_ms",
	"messages", "documents", "kb", "count",
	"mode", "listen", "http_code",
	"db", "host", "port",
	"flow", "from", "state",
	"spreadsheet_id", "sheet", "range", "rows", "snapshot_id",
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms",
}
