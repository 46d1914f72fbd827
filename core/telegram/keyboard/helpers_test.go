package keyboard

import "testing"

func TestChunk(t *testing.T) {
	rows := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	if len(rows) != 3 || len(rows[2]) != 1 || rows[2][0] != "e" {
		t.Fatalf("rows = %v", rows)
	}
	if rows := Chunk([]string{"a", "b"}, 0); len(rows) != 2 {
		t.Fatalf("one per row = %v", rows)
	}
	if rows := Chunk(nil, 2); rows != nil {
		t.Fatalf("rows = %v", rows)
	}
}

func TestChoiceKeyboard(t *testing.T) {
	rm := ChoiceKeyboard([]string{"S1", "S2", "*"}, 2)
	if rm == nil || !rm.OneTimeKeyboard || !rm.ResizeKeyboard || len(rm.ReplyKeyboard) != 2 {
		t.Fatalf("markup = %+v", rm)
	}
	if got := rm.ReplyKeyboard[1][0].Text; got != "*" {
		t.Fatalf("last = %q", got)
	}
	if ChoiceKeyboard(nil, 2) != nil {
		t.Fatal("no choices must give no keyboard")
	}
}

func TestSingleCancelMarkup(t *testing.T) {
	rm := SingleCancelMarkup("dialog_cancel")
	if len(rm.InlineKeyboard) != 1 || rm.InlineKeyboard[0][0].Unique != "dialog_cancel" {
		t.Fatalf("markup = %+v", rm.InlineKeyboard)
	}
}
