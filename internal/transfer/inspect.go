package transfer

import (
	"context"
	"fmt"
)

// SheetStats summarizes the occupied rows of one sheet.
type SheetStats struct {
	Name     string
	NonEmpty int
	// FirstRow and LastRow are 1-based; both are zero when the sheet is empty.
	FirstRow int
	LastRow  int
}

// RangeLabel renders the occupied rows as a one-column range, e.g. "A2:A9".
func (s SheetStats) RangeLabel() string {
	if s.NonEmpty == 0 {
		return ""
	}
	return fmt.Sprintf("A%d:A%d", s.FirstRow, s.LastRow)
}

// Stats computes SheetStats for rows. Read-only.
func Stats(name string, rows [][]string) SheetStats {
	st := SheetStats{Name: name}
	for i, row := range rows {
		if IsEmptyRow(row) {
			continue
		}
		st.NonEmpty++
		if st.FirstRow == 0 {
			st.FirstRow = i + 1
		}
		st.LastRow = i + 1
	}
	return st
}

// Inspect reports the stats of a single sheet.
func (e *Engine) Inspect(ctx context.Context, spreadsheetID, sheet string) (SheetStats, error) {
	rows, err := e.src.ReadAll(ctx, spreadsheetID, sheet)
	if err != nil {
		return SheetStats{}, err
	}
	return Stats(sheet, rows), nil
}

// InspectAll reports the stats of every sheet, in spreadsheet order.
func (e *Engine) InspectAll(ctx context.Context, spreadsheetID string) ([]SheetStats, error) {
	names, err := e.src.ListSheets(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	out := make([]SheetStats, 0, len(names))
	for _, name := range names {
		st, err := e.Inspect(ctx, spreadsheetID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
