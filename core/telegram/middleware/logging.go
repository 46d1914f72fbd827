package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/sheetbot/core/logger"
	"github.com/m3rciful/sheetbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const seenTTL = 10 * time.Second

// seenUpdates remembers update ids for seenTTL so a receipt is logged once
// even when the middleware wraps both the bot and a route.
type seenUpdates struct {
	mu  sync.Mutex
	ids map[int]time.Time
}

var receipts = &seenUpdates{ids: make(map[int]time.Time)}

// first reports whether id was not seen within the TTL and marks it seen.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.ids {
		if now.Sub(at) > seenTTL {
			delete(s.ids, k)
		}
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}

// LoggerMiddleware attaches the update's log context to c and logs a
// sampled debug receipt. Message text is not logged because it carries
// spreadsheet ids; only its length and the command name are.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if !logger.ShouldSampleDebug() || !receipts.first(upd.ID, time.Now()) {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if u := c.Sender(); u != nil && u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 128)))
			}
		case upd.Message != nil:
			attrs = append(attrs, messageAttrs(upd.Message)...)
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}

func messageAttrs(m *tele.Message) []slog.Attr {
	if m.Document != nil {
		return []slog.Attr{
			slog.String("kind", "document"),
			slog.Int64("size", m.Document.FileSize),
		}
	}
	attrs := []slog.Attr{
		slog.String("kind", "text"),
		slog.Int("text_len", utf8.RuneCountInString(m.Text)),
	}
	if strings.HasPrefix(m.Text, "/") {
		cmd, _, _ := strings.Cut(m.Text, " ")
		attrs = append(attrs, slog.String("command", logger.SanitizeLimit(cmd, 64)))
	}
	return attrs
}
