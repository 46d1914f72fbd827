package transfer

import (
	"fmt"

	"github.com/m3rciful/sheetbot/internal/sheets"
)

// RowSpan is an inclusive, 1-based row interval.
type RowSpan struct {
	First, Last int
}

// ParseRowSpan extracts the row interval addressed by an A1 range.
func ParseRowSpan(rangeExpr string) (RowSpan, error) {
	rect, err := sheets.ParseA1(rangeExpr)
	if err != nil {
		return RowSpan{}, fmt.Errorf("row span: %w", err)
	}
	return RowSpan{First: rect.FirstRow, Last: rect.LastRow}, nil
}

// IsEmptyRow reports whether every cell of the row is blank.
func IsEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// ClearSpan returns a copy of rows where rows inside span are blanked.
// Spans past the end of the sheet are clamped.
func ClearSpan(rows [][]string, span RowSpan) [][]string {
	out := sheets.Rectangle(rows)
	first, last := span.First, span.Last
	if first < 1 {
		first = 1
	}
	if last > len(out) {
		last = len(out)
	}
	for i := first; i <= last; i++ {
		out[i-1] = make([]string, len(out[i-1]))
	}
	return out
}

// CompactRows moves non-empty rows up, keeping their relative order, and pads
// the tail with blank rows so the row count never changes. Emptiness is
// judged on whole rows, not on the columns of a transferred range.
func CompactRows(rows [][]string) [][]string {
	rect := sheets.Rectangle(rows)
	width := 0
	if len(rect) > 0 {
		width = len(rect[0])
	}
	out := make([][]string, 0, len(rect))
	for _, row := range rect {
		if !IsEmptyRow(row) {
			out = append(out, row)
		}
	}
	for len(out) < len(rect) {
		out = append(out, make([]string, width))
	}
	return out
}

// Compact clears span and compacts the result in one step.
func Compact(rows [][]string, span RowSpan) [][]string {
	return CompactRows(ClearSpan(rows, span))
}
