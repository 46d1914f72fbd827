package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemorySource is an in-memory Source for tests and local dry runs.
// Ranges passed to Read are resolved with ParseA1.
type MemorySource struct {
	mu     sync.Mutex
	books  map[string]*memoryBook
	errs   map[string]error
	writes int
}

type memoryBook struct {
	order  []string
	sheets map[string][][]string
}

// NewMemorySource constructs an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		books: make(map[string]*memoryBook),
		errs:  make(map[string]error),
	}
}

// AddSheet creates or replaces a sheet; sheets keep insertion order.
func (m *MemorySource) AddSheet(spreadsheetID, sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[spreadsheetID]
	if !ok {
		book = &memoryBook{sheets: make(map[string][][]string)}
		m.books[spreadsheetID] = book
	}
	if _, exists := book.sheets[sheet]; !exists {
		book.order = append(book.order, sheet)
	}
	book.sheets[sheet] = cloneRows(rows)
}

// FailOn makes the named operation ("list_sheets", "read", "read_all",
// "write_all") return err until cleared with a nil err.
func (m *MemorySource) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Rows returns a copy of the stored sheet.
func (m *MemorySource) Rows(spreadsheetID, sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[spreadsheetID]
	if !ok {
		return nil
	}
	return cloneRows(book.sheets[sheet])
}

// Writes reports how many WriteAll calls succeeded.
func (m *MemorySource) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemorySource) ListSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("list_sheets"); err != nil {
		return nil, err
	}
	book, ok := m.books[spreadsheetID]
	if !ok {
		return nil, wrap("list_sheets", KindNotFound, fmt.Errorf("spreadsheet %q", spreadsheetID))
	}
	return append([]string(nil), book.order...), nil
}

func (m *MemorySource) Read(ctx context.Context, spreadsheetID, sheet, rangeExpr string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("read"); err != nil {
		return nil, err
	}
	rows, err := m.sheet("read", spreadsheetID, sheet)
	if err != nil {
		return nil, err
	}
	rect, err := ParseA1(rangeExpr)
	if err != nil {
		return nil, wrap("read", KindFailure, err)
	}
	var out [][]string
	for r := rect.FirstRow; r <= rect.LastRow && r <= len(rows); r++ {
		src := rows[r-1]
		var row []string
		for c := rect.FirstCol; c <= rect.LastCol && c <= len(src); c++ {
			row = append(row, src[c-1])
		}
		out = append(out, trimRight(row))
	}
	// Trailing empty rows are omitted, like the Sheets API does.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *MemorySource) ReadAll(ctx context.Context, spreadsheetID, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("read_all"); err != nil {
		return nil, err
	}
	rows, err := m.sheet("read_all", spreadsheetID, sheet)
	if err != nil {
		return nil, err
	}
	return Rectangle(rows), nil
}

func (m *MemorySource) WriteAll(ctx context.Context, spreadsheetID, sheet string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("write_all"); err != nil {
		return err
	}
	current, err := m.sheet("write_all", spreadsheetID, sheet)
	if err != nil {
		return err
	}
	next := cloneRows(current)
	for i, r := range rows {
		if i >= len(next) {
			next = append(next, nil)
		}
		row := next[i]
		for len(row) < len(r) {
			row = append(row, "")
		}
		copy(row, r)
		next[i] = row
	}
	m.books[spreadsheetID].sheets[sheet] = next
	m.writes++
	return nil
}

func (m *MemorySource) failure(op string) error {
	if err, ok := m.errs[op]; ok {
		return err
	}
	return nil
}

func (m *MemorySource) sheet(op, spreadsheetID, sheet string) ([][]string, error) {
	book, ok := m.books[spreadsheetID]
	if !ok {
		return nil, wrap(op, KindNotFound, fmt.Errorf("spreadsheet %q", spreadsheetID))
	}
	rows, ok := book.sheets[sheet]
	if !ok {
		return nil, wrap(op, KindNotFound, fmt.Errorf("sheet %q", sheet))
	}
	return rows, nil
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func trimRight(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}
