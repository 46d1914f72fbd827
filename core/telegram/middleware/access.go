package middleware

import (
	"log/slog"

	"github.com/m3rciful/sheetbot/core/logger"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessPolicy reports whether a Telegram user may run a handler.
type AccessPolicy func(userID int64) bool

// AdminOptions defines how admin-only checks should behave.
// Allow takes precedence over AdminID when set.
type AdminOptions struct {
	AdminID  int64
	Allow    AccessPolicy
	OnReject tele.HandlerFunc
}

func (o AdminOptions) allowed(userID int64) bool {
	if o.Allow != nil {
		return o.Allow(userID)
	}
	return o.AdminID != 0 && userID == o.AdminID
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
// With neither AdminID nor Allow configured every user is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var userID int64
			if s := c.Sender(); s != nil {
				userID = s.ID
			}
			if !opts.allowed(userID) {
				logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
					slog.String("status", "skip"),
					slog.Int64("user_id", userID),
					slog.String("outcome", "unauthorized"),
				)
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
