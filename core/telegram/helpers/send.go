package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"
	"github.com/m3rciful/sheetbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const statsKey = "reply_stats"

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes SendText and SendDocument through d. nil makes them
// send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// ReplyStats counts the replies a handler produced.
type ReplyStats struct {
	Messages  int
	Documents int
	Keyboard  bool
}

// Stats returns the replies queued for the update behind c so far.
func Stats(c tele.Context) ReplyStats {
	if s, ok := c.Get(statsKey).(*ReplyStats); ok {
		return *s
	}
	return ReplyStats{}
}

func record(c tele.Context, document bool, opts *tele.SendOptions) {
	s, ok := c.Get(statsKey).(*ReplyStats)
	if !ok {
		s = &ReplyStats{}
		c.Set(statsKey, s)
	}
	if document {
		s.Documents++
	} else {
		s.Messages++
	}
	if opts != nil && opts.ReplyMarkup != nil {
		s.Keyboard = true
	}
}

// enqueueWait bounds how long a handler waits for room in a full queue.
// Replies never jump the queue: with one worker they keep their order, and a
// reply that cannot be queued in time is dropped with an error.
const enqueueWait = 30 * time.Second

func send(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.EnqueueWait(ctx, enqueueWait, action, endpoint, run)
	switch {
	case errors.Is(err, sender.ErrQueueClosed):
		// The runtime closes the dispatcher only after the poller stopped.
		logger.Warn(ctx, "tg.sender", "queue.closed", slog.String("action", action))
		return run()
	case err != nil:
		logger.Error(ctx, "tg.sender", "queue.drop",
			slog.String("status", "fail"),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
	}
	return err
}

func firstOpts(opts []*tele.SendOptions) *tele.SendOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return nil
}

// SendText sends plain text, no parse mode, to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	o := firstOpts(opts)
	record(c, false, o)
	return send(c, "send.text", "sendMessage", func() error {
		if o != nil {
			return c.Send(text, o)
		}
		return c.Send(text)
	})
}

// SendDocument uploads data as fileName. Every attempt re-reads data from
// the start.
func SendDocument(c tele.Context, fileName, mime string, data []byte, opts ...*tele.SendOptions) error {
	o := firstOpts(opts)
	record(c, true, o)
	return send(c, "send.document", "sendDocument", func() error {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(data)),
			FileName: fileName,
			MIME:     mime,
		}
		if o != nil {
			return c.Send(doc, o)
		}
		return c.Send(doc)
	})
}
