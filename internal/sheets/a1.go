package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange reports an A1 expression without usable row numbers.
var ErrInvalidRange = errors.New("invalid range")

// maxColumn is the last column Google Sheets allows (ZZZ is far beyond it).
const maxColumn = 18278

// Rect is an inclusive, 1-based cell rectangle.
type Rect struct {
	FirstRow, LastRow int
	FirstCol, LastCol int
}

// ParseA1 parses "A2:B10", "C7", "2:5" or "Sheet!$A$2:$A$5" into a Rect.
// Endpoints are normalized so First <= Last. Row numbers are mandatory.
func ParseA1(expr string) (Rect, error) {
	s := strings.TrimSpace(expr)
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return Rect{}, fmt.Errorf("%w: empty expression", ErrInvalidRange)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return Rect{}, fmt.Errorf("%w: %q", ErrInvalidRange, expr)
	}
	c1, r1, err := parseCell(parts[0])
	if err != nil {
		return Rect{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, expr, err)
	}
	c2, r2 := c1, r1
	if len(parts) == 2 {
		c2, r2, err = parseCell(parts[1])
		if err != nil {
			return Rect{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, expr, err)
		}
	}
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 == 0 || c2 == 0 {
		// Row-only ranges such as "2:5" span every column.
		c1, c2 = 1, maxColumn
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return Rect{FirstRow: r1, LastRow: r2, FirstCol: c1, LastCol: c2}, nil
}

// parseCell returns the 1-based column (0 when absent) and row of a reference.
func parseCell(ref string) (int, int, error) {
	ref = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ref), "$", ""))
	i := 0
	col := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		if col > maxColumn {
			return 0, 0, fmt.Errorf("column out of range in %q", ref)
		}
		i++
	}
	digits := ref[i:]
	if digits == "" {
		return 0, 0, fmt.Errorf("missing row number in %q", ref)
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row number in %q", ref)
	}
	return col, row, nil
}
