package transfer

import (
	"reflect"
	"testing"
)

func TestParseRowSpan(t *testing.T) {
	span, err := ParseRowSpan("A2:A5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if span != (RowSpan{First: 2, Last: 5}) {
		t.Fatalf("span = %+v", span)
	}
	if _, err := ParseRowSpan("A:A"); err == nil {
		t.Fatal("expected error for range without rows")
	}
}

func TestCompactScenarioA2A5(t *testing.T) {
	rows := [][]string{{"r1"}, {"r2"}, {"r3"}, {"r4"}, {"r5"}, {"r6"}}
	got := Compact(rows, RowSpan{First: 2, Last: 5})
	want := [][]string{{"r1"}, {"r6"}, {""}, {""}, {""}, {""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("compact = %v, want %v", got, want)
	}
}

func TestCompactKeepsRowsWithDataInOtherColumns(t *testing.T) {
	rows := [][]string{
		{"h1", "h2"},
		{"a", ""},
		{"b", "keep"},
		{"c", ""},
		{"", ""},
		{"d", "tail"},
	}
	got := Compact(rows, RowSpan{First: 2, Last: 4})
	want := [][]string{
		{"h1", "h2"},
		{"d", "tail"},
		{"", ""},
		{"", ""},
		{"", ""},
		{"", ""},
	}
	// Row 3 was cleared as a whole row because the span covers it.
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("compact = %v, want %v", got, want)
	}

	cleared := ClearSpan(rows, RowSpan{First: 2, Last: 2})
	kept := CompactRows(cleared)
	if !reflect.DeepEqual(kept[1], []string{"b", "keep"}) {
		t.Fatalf("row with data in another column must survive, got %v", kept)
	}
}

func TestCompactRowsWholeRowEmptiness(t *testing.T) {
	// Column A is blank on row 2 but column B is not.
	rows := [][]string{{"x", ""}, {"", "other"}, {"", ""}, {"y", ""}}
	got := CompactRows(rows)
	want := [][]string{{"x", ""}, {"", "other"}, {"y", ""}, {"", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("compact = %v, want %v", got, want)
	}
}

func TestCompactRowsIdempotent(t *testing.T) {
	rows := [][]string{{"a"}, {}, {"b", "c"}, {""}, {"d"}}
	once := CompactRows(rows)
	twice := CompactRows(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %v vs %v", once, twice)
	}
}

func TestCompactPreservesRowCount(t *testing.T) {
	cases := [][][]string{
		nil,
		{{""}},
		{{"a"}, {"b"}},
		{{"a"}, {}, {"b", "c", "d"}, {}, {}},
	}
	spans := []RowSpan{{1, 1}, {2, 3}, {1, 100}, {50, 60}}
	for _, rows := range cases {
		for _, span := range spans {
			if got := Compact(rows, span); len(got) != len(rows) {
				t.Fatalf("rows %v span %+v: len %d, want %d", rows, span, len(got), len(rows))
			}
		}
	}
}

func TestCompactOutputIsRectangular(t *testing.T) {
	rows := [][]string{{"a", "b", "c"}, {"d"}, {"e", "f"}}
	for _, row := range Compact(rows, RowSpan{First: 1, Last: 1}) {
		if len(row) != 3 {
			t.Fatalf("row %v is not padded to the sheet width", row)
		}
	}
}

func TestStats(t *testing.T) {
	st := Stats("S1", [][]string{{""}, {"a"}, {""}, {"b"}, {""}})
	if st.NonEmpty != 2 || st.FirstRow != 2 || st.LastRow != 4 {
		t.Fatalf("stats = %+v", st)
	}
	if st.RangeLabel() != "A2:A4" {
		t.Fatalf("label = %q", st.RangeLabel())
	}
	if empty := Stats("S2", nil); empty.NonEmpty != 0 || empty.RangeLabel() != "" {
		t.Fatalf("empty stats = %+v", empty)
	}
}
