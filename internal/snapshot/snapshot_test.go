package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRecoveryPatchRestoresBefore(t *testing.T) {
	before := [][]string{{"h"}, {"a"}, {"b"}, {"c"}}
	after := [][]string{{"h"}, {"c"}, {""}, {""}}

	patch := RecoveryPatch(before, after)
	if patch == "" {
		t.Fatal("expected non-empty patch")
	}
	got, err := ApplyPatch(after, patch)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != Dump(before) {
		t.Fatalf("restored = %q, want %q", got, Dump(before))
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := New("book", "S1", "A1:A2", [][]string{{"x"}, {"y"}})
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.MarkApplied(ctx, first.ID, [][]string{{""}, {""}}); err != nil {
		t.Fatalf("applied: %v", err)
	}

	second := New("book", "S1", "A3:A4", [][]string{{"z"}})
	second.CreatedAt = first.CreatedAt.Add(1)
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.MarkFailed(ctx, second.ID, errors.New("write timed out")); err != nil {
		t.Fatalf("failed: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != second.ID {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].Status != StatusFailed || recent[0].Error != "write timed out" {
		t.Fatalf("unexpected failed record: %+v", recent[0])
	}
	if recent[1].Status != StatusApplied || recent[1].Patch == "" {
		t.Fatalf("unexpected applied record: %+v", recent[1])
	}

	if err := store.MarkFailed(ctx, uuid.New(), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
