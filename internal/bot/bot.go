// Package bot binds the dialogue controller to the Telegram runtime: it
// registers commands and callbacks and delivers controller replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/sheetbot/core/logger"
	tg "github.com/m3rciful/sheetbot/core/telegram"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"
	"github.com/m3rciful/sheetbot/core/telegram/router"
	"github.com/m3rciful/sheetbot/internal/dialogue"
	"github.com/m3rciful/sheetbot/internal/snapshot"

	tele "gopkg.in/telebot.v4"
)

// CancelCallback is the unique of the inline cancel button.
const CancelCallback = "dialog_cancel"

const snapshotsLimit = 10

// Dialogue is the controller surface used by the handlers.
type Dialogue interface {
	Start(ctx context.Context, identity int64) []dialogue.Reply
	Begin(ctx context.Context, identity int64, flow dialogue.Flow, arg string) []dialogue.Reply
	Handle(ctx context.Context, identity int64, text string) []dialogue.Reply
	Cancel(ctx context.Context, identity int64) []dialogue.Reply
	InProgress(identity int64) bool
}

// Handlers implements the Telegram side of the bot.
type Handlers struct {
	dlg       Dialogue
	snapshots snapshot.Store
}

// New builds Handlers. snapshots may be nil, which disables /snapshots.
func New(dlg Dialogue, snapshots snapshot.Store) *Handlers {
	return &Handlers{dlg: dlg, snapshots: snapshots}
}

// Register adds commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := map[string]tg.Command{
		"/start": {
			Handler:     h.start,
			Description: "Show what the bot can do",
			Aliases:     []string{"/help"},
		},
		"/copy": {
			Handler:     h.begin(dialogue.FlowExport),
			Description: "Copy a range into an .xlsx file and compact the sheet",
		},
		"/info": {
			Handler:     h.begin(dialogue.FlowInspect),
			Description: "Show row counts and data ranges per sheet",
		},
		"/cancel": {
			Handler:     h.cancel,
			Description: "Cancel the current operation",
		},
	}
	if h.snapshots != nil {
		cmds["/snapshots"] = tg.Command{
			Handler:     h.listSnapshots,
			Description: "List recent pre-edit snapshots",
			AdminOnly:   true,
			Hidden:      true,
		}
	}

	var errs []error
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			errs = append(errs, err)
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	errs = append(errs, reg.RegisterCallback(CancelCallback, h.cancel))
	return errors.Join(errs...)
}

// InProgress reports whether the user has an open dialogue.
func (h *Handlers) InProgress(userID int64) bool {
	return h.dlg.InProgress(userID)
}

// ManagerHandler feeds a text message to the user's dialogue.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if c.Message() != nil && c.Message().Document != nil {
		return deliver(c, []dialogue.Reply{{Text: "Please answer with text.", Cancelable: true}})
	}
	return deliver(c, h.dlg.Handle(ctx, senderID(c), c.Text()))
}

// UnknownText answers free text outside a dialogue with the greeting.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return h.start
}

// UnknownDocument rejects uploads outside a dialogue.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Files are not accepted. Use /copy or /info.")
	}
}

// UnknownCallback answers stale or foreign inline buttons.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "This button is no longer active."})
	}
}

func (h *Handlers) start(c tele.Context) error {
	return deliver(c, h.dlg.Start(tghelpers.BuildContext(c), senderID(c)))
}

func (h *Handlers) begin(flow dialogue.Flow) tele.HandlerFunc {
	return func(c tele.Context) error {
		var arg string
		if m := c.Message(); m != nil {
			arg = m.Payload
		}
		return deliver(c, h.dlg.Begin(tghelpers.BuildContext(c), senderID(c), flow, arg))
	}
}

func (h *Handlers) cancel(c tele.Context) error {
	return deliver(c, h.dlg.Cancel(tghelpers.BuildContext(c), senderID(c)))
}

func (h *Handlers) listSnapshots(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.snapshots.Recent(ctx, snapshotsLimit)
	if err != nil {
		logger.Error(ctx, "service.snapshots", "snapshot.recent",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "Could not load snapshots: "+err.Error())
	}
	return tghelpers.SendText(c, formatSnapshots(list))
}

func formatSnapshots(list []snapshot.Snapshot) string {
	if len(list) == 0 {
		return "No snapshots yet."
	}
	var b strings.Builder
	b.WriteString("Recent snapshots:")
	for _, s := range list {
		fmt.Fprintf(&b, "\n%s %s %s!%s (%d rows) %s",
			s.CreatedAt.UTC().Format("2006-01-02 15:04"),
			s.Status,
			s.Sheet,
			s.Range,
			len(s.Before),
			s.ID,
		)
		if s.Error != "" {
			b.WriteString("\n  error: ")
			b.WriteString(s.Error)
		}
	}
	return b.String()
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

var _ router.Handlers = (*Handlers)(nil)
