// Package sheets provides access to remote tabular data (spreadsheets made of
// named sheets holding rows of string cells).
package sheets

import "context"

// Source is the tabular data collaborator used by the transfer engine.
// Every call is attempted once; implementations must not retry.
type Source interface {
	// ListSheets returns sheet titles in spreadsheet order.
	ListSheets(ctx context.Context, spreadsheetID string) ([]string, error)
	// Read returns the values of an A1 range on the given sheet.
	Read(ctx context.Context, spreadsheetID, sheet, rangeExpr string) ([][]string, error)
	// ReadAll returns every row of the sheet, padded to a rectangle.
	ReadAll(ctx context.Context, spreadsheetID, sheet string) ([][]string, error)
	// WriteAll overwrites the sheet starting at A1 with rows in one call.
	WriteAll(ctx context.Context, spreadsheetID, sheet string, rows [][]string) error
}

// Rectangle pads every row to the widest row's length.
func Rectangle(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return out
}
