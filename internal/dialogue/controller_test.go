package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/sheetbot/internal/sheets"
	"github.com/m3rciful/sheetbot/internal/snapshot"
	"github.com/m3rciful/sheetbot/internal/transfer"
	"github.com/m3rciful/sheetbot/internal/xlsx"
)

const (
	owner    int64 = 42
	stranger int64 = 7
	bookID         = "1AbCdEfGhIjKlMnOpQrStUvWxYz0123456789_-abc"
)

type fixture struct {
	src   *sheets.MemorySource
	store snapshot.Store
	ctrl  *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := sheets.NewMemorySource()
	src.AddSheet(bookID, "S1", [][]string{{"a"}, {"b"}, {"c"}, {""}})
	src.AddSheet(bookID, "S2", nil)
	store := snapshot.NewMemoryStore()
	eng, err := transfer.NewEngine(transfer.Options{
		Source:    src,
		Encoder:   xlsx.NewEncoder(),
		Snapshots: store,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	ctrl, err := NewController(Options{
		Authorize: SingleIdentity(owner),
		Transfers: eng,
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	return &fixture{src: src, store: store, ctrl: ctrl}
}

func lastText(t *testing.T, replies []Reply) string {
	t.Helper()
	if len(replies) == 0 {
		t.Fatal("no replies")
	}
	return replies[len(replies)-1].Text
}

func (f *fixture) state(t *testing.T) State {
	t.Helper()
	s, ok := f.ctrl.Session(owner)
	if !ok {
		return 0
	}
	return s.State
}

func TestUnauthorizedCopyCreatesNoSession(t *testing.T) {
	f := newFixture(t)
	replies := f.ctrl.Begin(context.Background(), stranger, FlowExport, "")
	if lastText(t, replies) != msgAccessDenied {
		t.Fatalf("reply = %q", lastText(t, replies))
	}
	if f.ctrl.InProgress(stranger) {
		t.Fatal("session created for unauthorized identity")
	}
	if replies := f.ctrl.Handle(context.Background(), stranger, bookID); replies != nil {
		t.Fatalf("unexpected replies %v", replies)
	}
}

func TestSingleIdentityZeroAllowsNobody(t *testing.T) {
	if SingleIdentity(0)(0) {
		t.Fatal("zero identity must not be authorized")
	}
}

func TestInvalidSpreadsheetIDKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, "")

	for _, in := range []string{"", "   ", "short-id"} {
		replies := f.ctrl.Handle(ctx, owner, in)
		if lastText(t, replies) != msgBadSpreadsheetID {
			t.Fatalf("input %q: reply = %q", in, lastText(t, replies))
		}
		s, ok := f.ctrl.Session(owner)
		if !ok || s.State != StateAwaitingSpreadsheetID || s.SpreadsheetID != "" {
			t.Fatalf("input %q: session = %+v", in, s)
		}
	}
}

func TestUnknownSheetReprompts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, "")
	replies := f.ctrl.Handle(ctx, owner, bookID)
	if got := replies[0].Choices; len(got) != 2 || got[0] != "S1" || got[1] != "S2" {
		t.Fatalf("choices = %v", got)
	}

	replies = f.ctrl.Handle(ctx, owner, "Nope")
	if lastText(t, replies) != msgBadSheetName {
		t.Fatalf("reply = %q", lastText(t, replies))
	}
	if f.state(t) != StateAwaitingSheetName {
		t.Fatalf("state = %v", f.state(t))
	}
}

func TestExportFlowCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, bookID)
	f.ctrl.Handle(ctx, owner, "S1")
	f.ctrl.Handle(ctx, owner, "A1:A2")
	replies := f.ctrl.Handle(ctx, owner, "report")

	if len(replies) != 2 || replies[0].Document == nil {
		t.Fatalf("replies = %+v", replies)
	}
	if replies[0].Document.Name != "report.xlsx" {
		t.Fatalf("file name = %q", replies[0].Document.Name)
	}
	if !replies[1].Final || !strings.Contains(replies[1].Text, "1 of 4 rows") {
		t.Fatalf("summary = %q", replies[1].Text)
	}
	if f.ctrl.InProgress(owner) {
		t.Fatal("session kept after Done")
	}
	if f.src.Writes() != 1 {
		t.Fatalf("writes = %d", f.src.Writes())
	}
}

func TestExportEmptyRangeEndsWithoutWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, "")
	f.ctrl.Handle(ctx, owner, bookID)
	f.ctrl.Handle(ctx, owner, "S1")
	f.ctrl.Handle(ctx, owner, "B1:B9")
	replies := f.ctrl.Handle(ctx, owner, "empty")

	if len(replies) != 1 || replies[0].Text != msgNoData || replies[0].Document != nil {
		t.Fatalf("replies = %+v", replies)
	}
	if f.src.Writes() != 0 {
		t.Fatalf("writes = %d", f.src.Writes())
	}
	if f.ctrl.InProgress(owner) {
		t.Fatal("session kept after Done")
	}
}

func TestExportBlankRangeReprompts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, bookID)
	f.ctrl.Handle(ctx, owner, "S1")
	replies := f.ctrl.Handle(ctx, owner, "  ")
	if lastText(t, replies) != msgAskRange || f.state(t) != StateAwaitingRange {
		t.Fatalf("reply = %q state = %v", lastText(t, replies), f.state(t))
	}
}

func TestInspectAllSheets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowInspect, "")
	replies := f.ctrl.Handle(ctx, owner, bookID)
	choices := replies[0].Choices
	if choices[len(choices)-1] != AllSheets {
		t.Fatalf("choices = %v", choices)
	}

	replies = f.ctrl.Handle(ctx, owner, AllSheets)
	want := "Sheets and row counts:\nSheet: S1, rows: 3\nSheet: S2, rows: 0"
	if lastText(t, replies) != want {
		t.Fatalf("report = %q", lastText(t, replies))
	}
	if f.ctrl.InProgress(owner) {
		t.Fatal("session kept after Done")
	}
}

func TestInspectSingleSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowInspect, bookID)

	replies := f.ctrl.Handle(ctx, owner, "S1")
	if want := "Rows with data: 3\nData range: A1:A3"; lastText(t, replies) != want {
		t.Fatalf("report = %q", lastText(t, replies))
	}

	f.ctrl.Begin(ctx, owner, FlowInspect, bookID)
	replies = f.ctrl.Handle(ctx, owner, "S2")
	if lastText(t, replies) != msgNoSheetData {
		t.Fatalf("report = %q", lastText(t, replies))
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if lastText(t, f.ctrl.Cancel(ctx, owner)) != msgNothingToCancel {
		t.Fatal("cancel without session")
	}
	f.ctrl.Begin(ctx, owner, FlowExport, bookID)
	if lastText(t, f.ctrl.Cancel(ctx, owner)) != msgCancelled {
		t.Fatal("cancel reply")
	}
	if f.ctrl.InProgress(owner) {
		t.Fatal("session kept after cancel")
	}
}

func TestBeginRestartsDialogue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowExport, bookID)
	f.ctrl.Handle(ctx, owner, "S1")

	replies := f.ctrl.Begin(ctx, owner, FlowInspect, "")
	if len(replies) != 2 || replies[0].Text != msgRestarted(FlowExport) {
		t.Fatalf("replies = %+v", replies)
	}
	s, ok := f.ctrl.Session(owner)
	if !ok || s.Flow != FlowInspect || s.State != StateAwaitingSpreadsheetID || s.SelectedSheet != "" {
		t.Fatalf("session = %+v", s)
	}
}

func TestRemoteFailuresEndDialogue(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &sheets.Error{Kind: sheets.KindNotFound, Op: "list_sheets", Err: context.Canceled}, "not found"},
		{"timeout", &sheets.Error{Kind: sheets.KindTimeout, Op: "list_sheets", Err: context.DeadlineExceeded}, "did not answer in time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.src.FailOn("list_sheets", tc.err)
			f.ctrl.Begin(ctx, owner, FlowExport, "")
			replies := f.ctrl.Handle(ctx, owner, bookID)
			if !strings.Contains(lastText(t, replies), tc.want) || !replies[0].Final {
				t.Fatalf("reply = %+v", replies)
			}
			if f.ctrl.InProgress(owner) {
				t.Fatal("session kept after failure")
			}
		})
	}
}

func TestUnknownSpreadsheetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Begin(ctx, owner, FlowInspect, "")
	replies := f.ctrl.Handle(ctx, owner, strings.Repeat("x", 40))
	if !strings.Contains(lastText(t, replies), "not found") {
		t.Fatalf("reply = %q", lastText(t, replies))
	}
}

func TestStartGreetsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if lastText(t, f.ctrl.Start(ctx, owner)) != msgWelcome {
		t.Fatal("owner greeting")
	}
	if lastText(t, f.ctrl.Start(ctx, stranger)) != msgAccessDenied {
		t.Fatal("stranger greeting")
	}
}

func TestSpreadsheetIDMinimumLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	atLimit := strings.Repeat("k", DefaultMinSpreadsheetIDLength)
	f.src.AddSheet(atLimit, "Only", [][]string{{"v"}})
	f.ctrl.Begin(ctx, owner, FlowExport, "")

	replies := f.ctrl.Handle(ctx, owner, atLimit[1:])
	if lastText(t, replies) != msgBadSpreadsheetID || f.state(t) != StateAwaitingSpreadsheetID {
		t.Fatalf("29 chars: reply = %q state = %v", lastText(t, replies), f.state(t))
	}

	f.ctrl.Handle(ctx, owner, atLimit)
	s, ok := f.ctrl.Session(owner)
	if !ok || s.State != StateAwaitingSheetName || s.SpreadsheetID != atLimit {
		t.Fatalf("30 chars: session = %+v", s)
	}
}

func TestExportFailureStillEndsDialogue(t *testing.T) {
	cases := []struct {
		name string
		op   string
		err  error
		want string
	}{
		{"read timeout", "read", &sheets.Error{Kind: sheets.KindTimeout, Op: "read", Err: context.DeadlineExceeded}, "did not answer in time"},
		{"read failure", "read", errors.New("quota exceeded"), "quota exceeded"},
		{"write failure", "write_all", errors.New("connection reset"), "connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.ctrl.Begin(ctx, owner, FlowExport, bookID)
			f.ctrl.Handle(ctx, owner, "S1")
			f.ctrl.Handle(ctx, owner, "A1:A2")
			f.src.FailOn(tc.op, tc.err)

			replies := f.ctrl.Handle(ctx, owner, "report")
			last := replies[len(replies)-1]
			if !last.Final || !strings.Contains(last.Text, tc.want) {
				t.Fatalf("replies = %+v", replies)
			}
			if f.ctrl.InProgress(owner) {
				t.Fatal("session kept after export")
			}
		})
	}
}

func TestInspectFailuresEndDialogue(t *testing.T) {
	for _, sheet := range []string{"S1", AllSheets} {
		t.Run(sheet, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.ctrl.Begin(ctx, owner, FlowInspect, bookID)
			f.src.FailOn("read_all", &sheets.Error{Kind: sheets.KindTimeout, Op: "read_all", Err: context.DeadlineExceeded})

			replies := f.ctrl.Handle(ctx, owner, sheet)
			if !strings.Contains(lastText(t, replies), "did not answer in time") || !replies[0].Final {
				t.Fatalf("replies = %+v", replies)
			}
			if f.ctrl.InProgress(owner) {
				t.Fatal("session kept after failure")
			}
		})
	}
}
