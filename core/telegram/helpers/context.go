// Package helpers carries per-update log context and sends replies through
// the shared dispatcher.
package helpers

import (
	"context"

	"github.com/m3rciful/sheetbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxStoreKey = "log_ctx"

// MetaOf collects the log identifiers of the update behind c.
func MetaOf(c tele.Context) logger.Meta {
	m := logger.Meta{UpdateID: c.Update().ID}
	if u := c.Sender(); u != nil {
		m.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		m.ChatID = ch.ID
	}
	return m
}

// StoreContext caches ctx on c for later BuildContext calls.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxStoreKey, ctx)
	}
}

// BuildContext returns the context cached on c, creating one with the
// update metadata on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxStoreKey).(context.Context); ok {
		return ctx
	}
	ctx := logger.WithMeta(context.Background(), MetaOf(c))
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name on the cached context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	StoreContext(c, ctx)
	return ctx
}
