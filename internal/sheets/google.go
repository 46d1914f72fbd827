package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const defaultCallTimeout = 30 * time.Second

// GoogleOptions configures NewGoogleSource.
type GoogleOptions struct {
	CredentialsFile string
	// Timeout bounds every remote call; 0 -> default.
	Timeout time.Duration
	// ClientOptions are appended after the credentials option (tests, endpoints).
	ClientOptions []option.ClientOption
}

// GoogleSource implements Source on top of the Google Sheets v4 API.
type GoogleSource struct {
	svc     *gsheets.Service
	timeout time.Duration
}

// NewGoogleSource builds a Sheets API client authorized by a service account file.
func NewGoogleSource(ctx context.Context, opts GoogleOptions) (*GoogleSource, error) {
	var clientOpts []option.ClientOption
	if strings.TrimSpace(opts.CredentialsFile) != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(gsheets.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: client init failed: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &GoogleSource{svc: svc, timeout: timeout}, nil
}

// ListSheets returns the sheet titles of the spreadsheet.
func (g *GoogleSource) ListSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	var titles []string
	err := g.call(ctx, "list_sheets", spreadsheetID, func(ctx context.Context) error {
		ss, err := g.svc.Spreadsheets.Get(spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		titles = make([]string, 0, len(ss.Sheets))
		for _, sh := range ss.Sheets {
			if sh == nil || sh.Properties == nil {
				continue
			}
			titles = append(titles, sh.Properties.Title)
		}
		return nil
	})
	return titles, err
}

// Read returns the formatted values of rangeExpr on sheet.
func (g *GoogleSource) Read(ctx context.Context, spreadsheetID, sheet, rangeExpr string) ([][]string, error) {
	var rows [][]string
	err := g.call(ctx, "read", spreadsheetID, func(ctx context.Context) error {
		vr, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, A1(sheet, rangeExpr)).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		rows = toStrings(vr.Values)
		return nil
	})
	return rows, err
}

// ReadAll returns every row of sheet, padded to a rectangle.
func (g *GoogleSource) ReadAll(ctx context.Context, spreadsheetID, sheet string) ([][]string, error) {
	var rows [][]string
	err := g.call(ctx, "read_all", spreadsheetID, func(ctx context.Context) error {
		vr, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, QuoteSheet(sheet)).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		rows = Rectangle(toStrings(vr.Values))
		return nil
	})
	return rows, err
}

// WriteAll overwrites sheet from A1 with rows using RAW input.
func (g *GoogleSource) WriteAll(ctx context.Context, spreadsheetID, sheet string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	return g.call(ctx, "write_all", spreadsheetID, func(ctx context.Context) error {
		_, err := g.svc.Spreadsheets.Values.Update(spreadsheetID, A1(sheet, "A1"), &gsheets.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}

func (g *GoogleSource) call(ctx context.Context, op, spreadsheetID string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	took := logger.Took(start)
	if err == nil {
		logger.Debug(ctx, "service.sheets", "sheets."+op,
			slog.String("status", "ok"),
			slog.String("spreadsheet_id", spreadsheetID),
			slog.Duration("duration", took),
		)
		return nil
	}

	kind := classify(callCtx, err)
	logger.Warn(ctx, "service.sheets", "sheets."+op,
		slog.String("status", "fail"),
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("err_code", kind.String()),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.Duration("duration", took),
	)
	return wrap(op, kind, err)
}

func classify(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return KindNotFound
	}
	// Unknown sheet titles come back as 400 "Unable to parse range".
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return KindNotFound
	}
	return KindFailure
}

// QuoteSheet renders a sheet title for A1 notation.
func QuoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// A1 qualifies rangeExpr with the sheet title, dropping any sheet prefix the
// operator typed.
func A1(sheet, rangeExpr string) string {
	expr := strings.TrimSpace(rangeExpr)
	if i := strings.LastIndex(expr, "!"); i >= 0 {
		expr = expr[i+1:]
	}
	return QuoteSheet(sheet) + "!" + expr
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for j, cell := range v {
			if cell == nil {
				continue
			}
			if s, ok := cell.(string); ok {
				row[j] = s
				continue
			}
			row[j] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows
}
