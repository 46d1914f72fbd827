// Package dialogue drives the multi-step conversations that collect export and
// inspection parameters from the operator.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/sheetbot/core/logger"
	"github.com/m3rciful/sheetbot/core/telegram/state"
	"github.com/m3rciful/sheetbot/internal/transfer"
)

// DefaultMinSpreadsheetIDLength is the shortest identifier worth a remote lookup.
const DefaultMinSpreadsheetIDLength = 30

// Authorizer decides whether an identity may use the bot.
type Authorizer func(identity int64) bool

// SingleIdentity allows exactly one identity. A zero id allows nobody.
func SingleIdentity(id int64) Authorizer {
	return func(identity int64) bool {
		return id != 0 && identity == id
	}
}

// Transfers is the subset of the transfer engine the dialogue needs.
type Transfers interface {
	ListSheets(ctx context.Context, spreadsheetID string) ([]string, error)
	Export(ctx context.Context, req transfer.ExportRequest) (*transfer.ExportResult, error)
	Inspect(ctx context.Context, spreadsheetID, sheet string) (transfer.SheetStats, error)
	InspectAll(ctx context.Context, spreadsheetID string) ([]transfer.SheetStats, error)
}

// Options configures a Controller.
type Options struct {
	Authorize Authorizer
	Transfers Transfers
	// Sessions defaults to an in-memory manager.
	Sessions               state.Manager[Session]
	MinSpreadsheetIDLength int
}

// Controller owns one Session per identity and runs the export and inspect
// state machines. Messages for the same identity are handled one at a time.
type Controller struct {
	authorize Authorizer
	transfers Transfers
	sessions  state.Manager[Session]
	minIDLen  int
}

// NewController validates options and builds a Controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Authorize == nil {
		return nil, errors.New("dialogue: nil authorizer")
	}
	if opts.Transfers == nil {
		return nil, errors.New("dialogue: nil transfers")
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewMemoryManager[Session]()
	}
	minLen := opts.MinSpreadsheetIDLength
	if minLen <= 0 {
		minLen = DefaultMinSpreadsheetIDLength
	}
	return &Controller{
		authorize: opts.Authorize,
		transfers: opts.Transfers,
		sessions:  sessions,
		minIDLen:  minLen,
	}, nil
}

// Authorized reports whether identity passes the authorization policy.
func (c *Controller) Authorized(identity int64) bool {
	return c.authorize(identity)
}

// InProgress reports whether identity is in the middle of a dialogue.
func (c *Controller) InProgress(identity int64) bool {
	return c.sessions.InProgress(identity)
}

// Session returns a copy of the identity's current session.
func (c *Controller) Session(identity int64) (Session, bool) {
	return c.sessions.Get(identity)
}

// Start greets an authorized operator.
func (c *Controller) Start(ctx context.Context, identity int64) []Reply {
	if !c.authorize(identity) {
		c.logDenied(ctx, identity, "start")
		return []Reply{{Text: msgAccessDenied, Final: true}}
	}
	return []Reply{{Text: msgWelcome}}
}

// Begin enters flow for identity. A dialogue already in progress is discarded
// and restarted. A non-empty arg is handled as the first answer.
func (c *Controller) Begin(ctx context.Context, identity int64, flow Flow, arg string) []Reply {
	if !c.authorize(identity) {
		c.logDenied(ctx, identity, flow.String())
		return []Reply{{Text: msgAccessDenied, Final: true}}
	}

	unlock := c.sessions.Lock(identity)
	defer unlock()

	var replies []Reply
	if prev, ok := c.sessions.Get(identity); ok {
		replies = append(replies, Reply{Text: msgRestarted(prev.Flow)})
		logger.Info(ctx, "dialog", "dialog.restart",
			slog.String("status", "ok"),
			slog.Int64("user_id", identity),
			slog.String("flow", prev.Flow.String()),
			slog.String("state", prev.State.String()),
		)
	}

	sess := Session{Identity: identity, Flow: flow, State: StateAwaitingSpreadsheetID}
	c.sessions.Set(identity, sess)
	logger.Info(ctx, "dialog", "dialog.begin",
		slog.String("status", "ok"),
		slog.Int64("user_id", identity),
		slog.String("flow", flow.String()),
	)

	if arg = strings.TrimSpace(arg); arg != "" {
		return append(replies, c.step(ctx, sess, arg)...)
	}
	return append(replies, Reply{Text: msgAskSpreadsheetID, Cancelable: true})
}

// Handle feeds one inbound text message to identity's dialogue. It returns
// nil when there is no dialogue in progress.
func (c *Controller) Handle(ctx context.Context, identity int64, text string) []Reply {
	unlock := c.sessions.Lock(identity)
	defer unlock()

	sess, ok := c.sessions.Get(identity)
	if !ok {
		return nil
	}
	return c.step(ctx, sess, text)
}

// Cancel aborts identity's dialogue, if any. It does not stop remote calls.
func (c *Controller) Cancel(ctx context.Context, identity int64) []Reply {
	unlock := c.sessions.Lock(identity)
	defer unlock()

	sess, ok := c.sessions.Get(identity)
	if !ok {
		return []Reply{{Text: msgNothingToCancel, Final: true}}
	}
	next := sess
	next.State = StateCancelled
	c.commit(ctx, sess, next, OutcomeCancelled)
	return []Reply{{Text: msgCancelled, Final: true}}
}

// step runs one transition; the caller holds the identity lock.
func (c *Controller) step(ctx context.Context, sess Session, text string) []Reply {
	var (
		next    Session
		replies []Reply
		outcome Outcome
	)
	switch sess.Flow {
	case FlowExport:
		next, replies, outcome = c.stepExport(ctx, sess, text)
	case FlowInspect:
		next, replies, outcome = c.stepInspect(ctx, sess, text)
	default:
		next, outcome = sess, OutcomeRemoteFailure
		next.State = StateFailed
		replies = []Reply{{Text: "Unknown operation.", Final: true}}
	}
	c.commit(ctx, sess, next, outcome)
	return replies
}

func (c *Controller) commit(ctx context.Context, prev, next Session, outcome Outcome) {
	if next.State.Terminal() {
		c.sessions.Clear(next.Identity)
	} else {
		c.sessions.Set(next.Identity, next)
	}
	level := slog.LevelInfo
	if outcome == OutcomeValidationFailed {
		level = slog.LevelDebug
	}
	logger.Event(ctx, "dialog", level, "dialog.transition",
		slog.String("status", "ok"),
		slog.Int64("user_id", next.Identity),
		slog.String("flow", next.Flow.String()),
		slog.String("from", prev.State.String()),
		slog.String("state", next.State.String()),
		slog.String("outcome", string(outcome)),
	)
}

// acceptSpreadsheetID implements the AwaitingSpreadsheetID step shared by both flows.
func (c *Controller) acceptSpreadsheetID(ctx context.Context, s Session, text string) (Session, []Reply, Outcome) {
	id := strings.TrimSpace(text)
	if id == "" || len(id) < c.minIDLen {
		return s, []Reply{{Text: msgBadSpreadsheetID, Cancelable: true}}, OutcomeValidationFailed
	}

	names, err := c.transfers.ListSheets(ctx, id)
	if err != nil {
		msg, outcome := remoteFailure(err)
		s.State = StateFailed
		return s, []Reply{{Text: msg, Final: true}}, outcome
	}
	if len(names) == 0 {
		s.State = StateFailed
		return s, []Reply{{Text: msgNoSheets, Final: true}}, OutcomeRemoteNotFound
	}

	s.SpreadsheetID = id
	s.AvailableSheets = append([]string(nil), names...)
	s.State = StateAwaitingSheetName
	return s, []Reply{sheetPrompt(s)}, OutcomeAdvanced
}

func sheetPrompt(s Session) Reply {
	choices := append([]string(nil), s.AvailableSheets...)
	if s.Flow == FlowInspect && !s.hasSheet(AllSheets) {
		choices = append(choices, AllSheets)
	}
	return Reply{
		Text:       msgAskSheet(s.AvailableSheets, s.Flow),
		Choices:    choices,
		Cancelable: true,
	}
}

func (c *Controller) logDenied(ctx context.Context, identity int64, op string) {
	logger.Warn(ctx, "dialog", "dialog.denied",
		slog.String("status", "skip"),
		slog.Int64("user_id", identity),
		slog.String("op", op),
		slog.String("outcome", string(OutcomeUnauthorized)),
	)
}
