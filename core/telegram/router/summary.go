package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// named wraps handler so it logs a summary under name.
func named(name string, handler tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return serve(c, name, handler)
	}
}

// serve runs handler and logs one handler.handled line for the update.
// A nil handler is logged as skipped.
func serve(c tele.Context, name string, handler tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	if handler == nil {
		logger.Debug(ctx, "tg", "handler.handled", append(extras,
			slog.String("status", "skip"),
			slog.String("outcome", "ok"),
		)...)
		return nil
	}

	err := handler(c)

	stats := tghelpers.Stats(c)
	attrs := append(extras,
		slog.String("status", "ok"),
		slog.String("outcome", "ok"),
		slog.Int("messages", stats.Messages),
		slog.Int("documents", stats.Documents),
		slog.Bool("kb", stats.Keyboard),
		slog.Duration("duration", time.Since(start)),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if code := errorCode(err); code != "" {
			attrs = append(attrs, slog.String("err_code", code))
		}
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

// errorCode returns the upper-cased Code() of errors that provide one.
func errorCode(err error) string {
	coder, ok := err.(interface{ Code() string })
	if !ok {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(coder.Code()), " ", "_"))
}
