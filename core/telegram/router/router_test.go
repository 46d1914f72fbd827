package router

import (
	"errors"
	"testing"

	tg "github.com/m3rciful/sheetbot/core/telegram"
	"github.com/m3rciful/sheetbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type fakeHandlers struct {
	active map[int64]bool
	calls  []string
}

func (f *fakeHandlers) record(name string) tele.HandlerFunc {
	return func(tele.Context) error {
		f.calls = append(f.calls, name)
		return nil
	}
}

func (f *fakeHandlers) InProgress(userID int64) bool        { return f.active[userID] }
func (f *fakeHandlers) ManagerHandler(c tele.Context) error { return f.record("dialog")(c) }
func (f *fakeHandlers) UnknownText() tele.HandlerFunc       { return f.record("unknown_text") }
func (f *fakeHandlers) UnknownDocument() tele.HandlerFunc   { return f.record("unknown_document") }
func (f *fakeHandlers) UnknownCallback() tele.HandlerFunc   { return f.record("unknown_callback") }

func newContext(t *testing.T, u tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return b.NewContext(u)
}

func message(userID int64, text string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
	}}
}

func setup(t *testing.T, h *fakeHandlers) map[any]tele.HandlerFunc {
	t.Helper()
	reg := tg.NewRegistry()
	if err := reg.RegisterCommand("/start", tg.Command{
		Handler:     h.record("start"),
		Description: "start",
		Aliases:     []string{"help"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCommand("/snapshots", tg.Command{
		Handler:     h.record("snapshots"),
		Description: "snapshots",
		AdminOnly:   true,
	}); err != nil {
		t.Fatal(err)
	}
	routes := Build(reg, h, Options{Admin: middleware.AdminOptions{
		AdminID:  7,
		OnReject: h.record("rejected"),
	}})
	out := make(map[any]tele.HandlerFunc, len(routes))
	for _, r := range routes {
		out[r.Endpoint] = r.Handler
	}
	return out
}

func TestBuildRoutes(t *testing.T) {
	routes := setup(t, &fakeHandlers{})
	for _, endpoint := range []any{"/start", "/snapshots", tele.OnText, tele.OnDocument, tele.OnCallback} {
		if routes[endpoint] == nil {
			t.Fatalf("route %v missing", endpoint)
		}
	}
	if _, ok := routes["/help"]; ok {
		t.Fatal("aliases are resolved from text, not registered as endpoints")
	}
}

func TestTextRouting(t *testing.T) {
	cases := []struct {
		name   string
		userID int64
		text   string
		active bool
		want   string
	}{
		{name: "alias", userID: 1, text: "/help", want: "start"},
		{name: "alias with mention", userID: 1, text: "/help@sheetbot now", want: "start"},
		{name: "alias wins over dialogue", userID: 1, text: "/help", active: true, want: "start"},
		{name: "dialogue", userID: 1, text: "Sheet1", active: true, want: "dialog"},
		{name: "unknown", userID: 1, text: "hello", want: "unknown_text"},
		{name: "unknown command", userID: 1, text: "/nope", want: "unknown_text"},
		{name: "admin alias rejected", userID: 1, text: "/snapshots", want: "rejected"},
		{name: "admin alias allowed", userID: 7, text: "/snapshots", want: "snapshots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &fakeHandlers{active: map[int64]bool{tc.userID: tc.active}}
			routes := setup(t, h)
			if err := routes[tele.OnText](newContext(t, message(tc.userID, tc.text))); err != nil {
				t.Fatalf("handler: %v", err)
			}
			if len(h.calls) != 1 || h.calls[0] != tc.want {
				t.Fatalf("calls = %v, want %s", h.calls, tc.want)
			}
		})
	}
}

func TestDocumentRouting(t *testing.T) {
	h := &fakeHandlers{active: map[int64]bool{2: true}}
	routes := setup(t, h)
	for _, userID := range []int64{1, 2} {
		u := message(userID, "")
		u.Message.Document = &tele.Document{FileName: "a.xlsx"}
		if err := routes[tele.OnDocument](newContext(t, u)); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if len(h.calls) != 2 || h.calls[0] != "unknown_document" || h.calls[1] != "dialog" {
		t.Fatalf("calls = %v", h.calls)
	}
}

func TestUnknownCallback(t *testing.T) {
	h := &fakeHandlers{}
	routes := setup(t, h)
	u := tele.Update{ID: 3, Callback: &tele.Callback{
		ID:     "cb",
		Data:   "\fstale|x",
		Sender: &tele.User{ID: 1},
	}}
	if err := routes[tele.OnCallback](newContext(t, u)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(h.calls) != 1 || h.calls[0] != "unknown_callback" {
		t.Fatalf("calls = %v", h.calls)
	}
}

type codedError struct{}

func (codedError) Error() string { return "boom" }
func (codedError) Code() string  { return "sheet missing" }

func TestServeReturnsHandlerError(t *testing.T) {
	c := newContext(t, message(1, "x"))
	want := errors.New("boom")
	if err := serve(c, "cmd.x", func(tele.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if err := serve(c, "cmd.x", nil); err != nil {
		t.Fatalf("nil handler err = %v", err)
	}
}

func TestHelpers(t *testing.T) {
	if got := errorCode(codedError{}); got != "SHEET_MISSING" {
		t.Fatalf("errorCode = %q", got)
	}
	if got := errorCode(errors.New("x")); got != "" {
		t.Fatalf("errorCode plain = %q", got)
	}
	tokens := map[string]string{
		"/copy abc": "/copy",
		"/info@bot": "/info",
		"plain":     "",
		"":          "",
	}
	for in, want := range tokens {
		if got := commandToken(in); got != want {
			t.Fatalf("commandToken(%q) = %q, want %q", in, got, want)
		}
	}
	if got := normalizeName(" /Copy Now "); got != "copy_now" {
		t.Fatalf("normalizeName = %q", got)
	}
	if got := normalizeName(""); got != "unknown" {
		t.Fatalf("normalizeName empty = %q", got)
	}
}
