package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds, "message" or "callback", that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// limiter admits one update per user per interval.
type limiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

func newLimiter(interval time.Duration) *limiter {
	return &limiter{interval: interval, last: make(map[int64]time.Time)}
}

// allow records now for userID unless the previous admitted update is
// younger than the interval. Entries older than the interval are pruned.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	for id, at := range l.last {
		if now.Sub(at) >= l.interval {
			delete(l.last, id)
		}
	}
	l.last[userID] = now
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		return "message"
	}
	return "other"
}

// RateLimitMiddleware drops updates that arrive faster than opts.Interval
// from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := newLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if lim.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Duration("interval", opts.Interval),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
