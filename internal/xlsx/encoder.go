// Package xlsx encodes tabular rows into Office Open XML workbooks.
package xlsx

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// MIMEType is the content type of the produced workbooks.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetName = 31

// ErrCellTooLong reports a value excelize would silently truncate.
var ErrCellTooLong = errors.New("xlsx: cell value exceeds the Excel limit")

// Encoder writes rows into a single-sheet workbook.
type Encoder struct{}

// NewEncoder returns a ready Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Encode returns the workbook bytes, preserving row-major order. Rows are
// checked before anything is written, so a value over excelize.TotalCellChars
// fails the whole encode instead of producing a truncated file.
func (e *Encoder) Encode(sheetName string, rows [][]string) ([]byte, error) {
	if err := checkCells(rows); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if name := SheetName(sheetName); name != "" && name != sheet {
		if err := f.SetSheetName(sheet, name); err != nil {
			return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
		}
		sheet = name
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("xlsx: row %d: %w", i+1, err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("xlsx: write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

func checkCells(rows [][]string) error {
	for i, row := range rows {
		for j, v := range row {
			if n := utf8.RuneCountInString(v); n > excelize.TotalCellChars {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				return fmt.Errorf("%w: %s has %d characters, max %d", ErrCellTooLong, cell, n, excelize.TotalCellChars)
			}
		}
	}
	return nil
}

// SheetName adapts a title to Excel's worksheet naming rules.
func SheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	title = strings.Trim(title, "'")
	if r := []rune(title); len(r) > maxSheetName {
		title = string(r[:maxSheetName])
	}
	return title
}

// FileName makes sure the delivered document carries an extension.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "export.xlsx"
	}
	if i := strings.LastIndex(name, "."); i > 0 && i < len(name)-1 {
		return name
	}
	return strings.TrimSuffix(name, ".") + ".xlsx"
}
