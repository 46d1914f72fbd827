package telegram

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

func TestRetryTransportRetriesReplayableRequests(t *testing.T) {
	base := &scriptedTransport{errs: []error{timeoutErr{}, timeoutErr{}}}
	rt := &retryTransport{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", bytes.NewReader([]byte("text=hi")))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d", base.calls)
	}
}

func TestRetryTransportSkipsPermanentErrors(t *testing.T) {
	boom := errors.New("certificate signed by unknown authority")
	base := &scriptedTransport{errs: []error{boom}}
	rt := &retryTransport{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d", base.calls)
	}
}

func TestRetryTransportDoesNotReplayStreams(t *testing.T) {
	base := &scriptedTransport{errs: []error{timeoutErr{}}}
	rt := &retryTransport{base: base, retries: 3, backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendDocument", io.NopCloser(bytes.NewReader([]byte("xlsx"))))
	req.GetBody = nil
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected the upload error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d", base.calls)
	}
}

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	if !ok || lp.Timeout != defaultPollTimeout || len(lp.AllowedUpdates) != 2 {
		t.Fatalf("long poller = %+v", lp)
	}

	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook", SecretToken: "s3"},
	}).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" || wh.SecretToken != "s3" {
		t.Fatalf("webhook = %+v", wh)
	}
}
