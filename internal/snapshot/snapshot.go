// Package snapshot keeps the pre-edit contents of sheets rewritten by the
// transfer engine. Records are kept for manual recovery only; nothing here
// restores a sheet automatically.
package snapshot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Status tracks whether the guarded write went through.
type Status string

const (
	StatusPending Status = "pending"
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned for unknown snapshot ids.
var ErrNotFound = errors.New("snapshot: not found")

// Snapshot is the state of one sheet right before a destructive rewrite.
type Snapshot struct {
	ID            uuid.UUID
	SpreadsheetID string
	Sheet         string
	Range         string
	Before        [][]string
	Status        Status
	// Patch is a diff-match-patch text turning the "after" dump back into Before.
	Patch     string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists snapshots.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	MarkApplied(ctx context.Context, id uuid.UUID, after [][]string) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
}

// New prepares a pending snapshot with a fresh id.
func New(spreadsheetID, sheet, rangeExpr string, before [][]string) *Snapshot {
	now := time.Now().UTC()
	return &Snapshot{
		ID:            uuid.New(),
		SpreadsheetID: spreadsheetID,
		Sheet:         sheet,
		Range:         rangeExpr,
		Before:        before,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Dump renders rows as tab separated lines.
func Dump(rows [][]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// RecoveryPatch returns a patch that maps the rewritten sheet back to before.
func RecoveryPatch(before, after [][]string) string {
	dmp := diffmatchpatch.New()
	afterText, beforeText := Dump(after), Dump(before)
	a, b, lines := dmp.DiffLinesToChars(afterText, beforeText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	patches := dmp.PatchMake(afterText, diffs)
	return dmp.PatchToText(patches)
}

// ApplyPatch replays a recovery patch onto an "after" dump.
func ApplyPatch(after [][]string, patch string) (string, error) {
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patch)
	if err != nil {
		return "", err
	}
	out, applied := dmp.PatchApply(patches, Dump(after))
	for _, ok := range applied {
		if !ok {
			return out, errors.New("snapshot: patch did not apply cleanly")
		}
	}
	return out, nil
}
