package app

import (
	"strings"
	"testing"

	"github.com/m3rciful/sheetbot/internal/sheets"

	tele "gopkg.in/telebot.v4"
)

func TestNewWiresCommands(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.AdminID = 42
	a, err := New(cfg, Deps{Source: sheets.NewMemorySource()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, name := range []string{"/start", "/copy", "/info", "/cancel", "/snapshots"} {
		if _, _, ok := a.Registry().LookupCommand(name); !ok {
			t.Fatalf("%s not registered", name)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(&Config{}, Deps{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTelegramRunOptions(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.AdminID = 42
	cfg.RateLimit.IntervalMS = 500
	a, err := New(cfg, Deps{Source: sheets.NewMemorySource()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("run options: %v", err)
	}
	if opts.DispatcherOptions.Workers != 1 {
		t.Fatalf("workers = %d", opts.DispatcherOptions.Workers)
	}
	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	if got := strings.Join(names, ","); got != "recover,rate_limit,logger" {
		t.Fatalf("middlewares = %s", got)
	}
	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{"/start", "/copy", "/snapshots", tele.OnText, tele.OnDocument, tele.OnCallback} {
		if !endpoints[e] {
			t.Fatalf("route %v missing", e)
		}
	}
}
