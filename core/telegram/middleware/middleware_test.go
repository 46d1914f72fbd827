package middleware

import (
	"errors"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, u tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return b.NewContext(u)
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		},
	}
}

func TestLimiterAllow(t *testing.T) {
	lim := newLimiter(time.Second)
	now := time.Unix(1000, 0)
	if !lim.allow(1, now) {
		t.Fatal("first update must pass")
	}
	if lim.allow(1, now.Add(500*time.Millisecond)) {
		t.Fatal("second update inside the interval must be limited")
	}
	if !lim.allow(2, now.Add(500*time.Millisecond)) {
		t.Fatal("other users are independent")
	}
	if !lim.allow(1, now.Add(1500*time.Millisecond)) {
		t.Fatal("update after the interval must pass")
	}
}

func TestRateLimitMiddlewareExcludesKinds(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	served := 0
	h := mw(func(tele.Context) error { served++; return nil })

	for i := 0; i < 2; i++ {
		_ = h(newContext(t, textUpdate(i+1, 5, "hi")))
	}
	cb := tele.Update{ID: 9, Callback: &tele.Callback{Sender: &tele.User{ID: 5}, Data: "\fdialog_cancel"}}
	_ = h(newContext(t, cb))
	_ = h(newContext(t, cb))

	if served != 3 || limited != 1 {
		t.Fatalf("served = %d limited = %d", served, limited)
	}
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(t, textUpdate(1, 5, "/copy")))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v", err)
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := errors.New("rejected")
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  1,
		Allow:    func(id int64) bool { return id == 42 },
		OnReject: func(tele.Context) error { return rejected },
	})
	h := mw(func(tele.Context) error { return nil })

	if err := h(newContext(t, textUpdate(1, 42, "/snapshots"))); err != nil {
		t.Fatalf("allowed user: %v", err)
	}
	if err := h(newContext(t, textUpdate(2, 1, "/snapshots"))); !errors.Is(err, rejected) {
		t.Fatalf("policy must override AdminID, got %v", err)
	}

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { return nil })
	if err := closed(newContext(t, textUpdate(3, 42, "/snapshots"))); err != nil {
		t.Fatalf("reject without handler must be silent, got %v", err)
	}
}

func TestSeenUpdates(t *testing.T) {
	s := &seenUpdates{ids: make(map[int]time.Time)}
	now := time.Unix(0, 0)
	if !s.first(7, now) || s.first(7, now.Add(time.Second)) {
		t.Fatal("duplicate receipt within TTL")
	}
	if !s.first(7, now.Add(seenTTL+2*time.Second)) {
		t.Fatal("expired id must be logged again")
	}
}

func TestMessageAttrsHideText(t *testing.T) {
	attrs := messageAttrs(&tele.Message{Text: "/copy 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"})
	var joined []string
	for _, a := range attrs {
		joined = append(joined, a.String())
	}
	line := strings.Join(joined, " ")
	if strings.Contains(line, "1Bxi") || !strings.Contains(line, "command=/copy") {
		t.Fatalf("attrs = %s", line)
	}
}
