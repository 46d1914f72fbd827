// Package router turns the registry and the bot's handlers into telebot
// routes, logging one summary line per handled update.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/sheetbot/core/logger"
	tg "github.com/m3rciful/sheetbot/core/telegram"
	"github.com/m3rciful/sheetbot/core/telegram/callbacks"
	"github.com/m3rciful/sheetbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM routes free text of users who are in the middle of a dialogue.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// Fallbacks answer updates no command, callback or dialogue claimed.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Handlers is what the application provides besides its registry.
type Handlers interface {
	FSM
	Fallbacks
}

// Options configures Build.
type Options struct {
	// Admin guards AdminOnly commands.
	Admin middleware.AdminOptions
}

// Build returns routes for every registered command plus the text,
// document and callback endpoints.
func Build(reg *tg.Registry, h Handlers, opts Options) []tg.Route {
	commands := commandHandlers(reg, opts)

	routes := make([]tg.Route, 0, len(commands)+3)
	for name, handler := range commands {
		routes = append(routes, tg.Route{Endpoint: name, Handler: named(commandName(name), handler)})
	}
	routes = append(routes,
		tg.Route{Endpoint: tele.OnText, Handler: textHandler(reg, commands, h)},
		tg.Route{Endpoint: tele.OnDocument, Handler: documentHandler(h)},
		tg.Route{Endpoint: tele.OnCallback, Handler: callbackHandler(reg, h)},
	)

	logger.Info(context.Background(), "tg.wire", "router.built",
		slog.String("status", "ok"),
		slog.Int("commands", len(commands)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

// commandHandlers returns the command handlers keyed by canonical name,
// admin-only ones already wrapped with the admin check.
func commandHandlers(reg *tg.Registry, opts Options) map[string]tele.HandlerFunc {
	adminOnly := middleware.AdminOnlyMiddleware(opts.Admin)
	out := make(map[string]tele.HandlerFunc)
	for name, cmd := range reg.Commands() {
		handler := cmd.Handler
		if cmd.AdminOnly {
			handler = adminOnly(handler)
		}
		out[name] = handler
	}
	return out
}

// textHandler resolves aliases typed as text before handing the message to
// an open dialogue, so /help works mid-dialogue.
func textHandler(reg *tg.Registry, commands map[string]tele.HandlerFunc, h Handlers) tele.HandlerFunc {
	return func(c tele.Context) error {
		if token := commandToken(c.Text()); token != "" {
			if name, _, ok := reg.LookupCommand(token); ok {
				return serve(c, commandName(name), commands[name])
			}
		}
		if sender := c.Sender(); sender != nil && h.InProgress(sender.ID) {
			return serve(c, "dialog", h.ManagerHandler)
		}
		return serve(c, "unknown_text", h.UnknownText())
	}
}

func documentHandler(h Handlers) tele.HandlerFunc {
	return func(c tele.Context) error {
		if sender := c.Sender(); sender != nil && h.InProgress(sender.ID) {
			return serve(c, "dialog_document", h.ManagerHandler)
		}
		return serve(c, "unexpected_document", h.UnknownDocument())
	}
}

func callbackHandler(reg *tg.Registry, h Handlers) tele.HandlerFunc {
	return func(c tele.Context) error {
		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeName(key)
		if handler, ok := reg.GetCallback(key); ok {
			_ = c.Respond()
			return serve(c, name, handler, slog.String("cb_key", key))
		}

		fallback := h.UnknownCallback()
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		return serve(c, name, fallback,
			slog.String("cb_key", key),
			slog.String("reason", "not_found"),
		)
	}
}

// commandToken returns the leading /command of text without a bot mention.
func commandToken(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	token, _, _ := strings.Cut(text, " ")
	token, _, _ = strings.Cut(token, "@")
	return token
}

func commandName(name string) string {
	return "cmd." + normalizeName(name)
}

func normalizeName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
