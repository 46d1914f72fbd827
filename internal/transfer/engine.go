// Package transfer implements the export ("copy then compact") and inspection
// actions on top of a sheets.Source.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/sheetbot/core/logger"
	"github.com/m3rciful/sheetbot/internal/sheets"
	"github.com/m3rciful/sheetbot/internal/snapshot"
	"github.com/m3rciful/sheetbot/internal/xlsx"
)

// ErrPartialWrite marks a failed bulk write; the sheet may be half rewritten.
var ErrPartialWrite = errors.New("sheet may be partially modified")

// Encoder turns rows into a downloadable file.
type Encoder interface {
	Encode(sheetName string, rows [][]string) ([]byte, error)
}

// ExportRequest carries the parameters collected by the dialogue.
type ExportRequest struct {
	SpreadsheetID string
	Sheet         string
	Range         string
	OutputName    string
}

// File is an encoded artifact ready for delivery.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Compaction describes the rewrite applied to the source sheet.
type Compaction struct {
	Span       RowSpan
	TotalRows  int
	Remaining  int
	SnapshotID string
}

// ExportResult is the outcome of Export. When NoData is set nothing else is
// populated and the source sheet was not touched.
type ExportResult struct {
	Request    ExportRequest
	NoData     bool
	Rows       int
	File       *File
	Compaction *Compaction
	// CompactErr is set when the file was produced but the sheet rewrite failed.
	CompactErr error
}

// Options configures an Engine.
type Options struct {
	Source    sheets.Source
	Encoder   Encoder
	Snapshots snapshot.Store
}

// Engine executes exports and inspections. Nothing here is transactional:
// a failure between reading and writing the sheet is reported, not undone.
type Engine struct {
	src       sheets.Source
	enc       Encoder
	snapshots snapshot.Store
}

// NewEngine builds an Engine; Source and Encoder are required.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("transfer: nil source")
	}
	if opts.Encoder == nil {
		return nil, errors.New("transfer: nil encoder")
	}
	return &Engine{src: opts.Source, enc: opts.Encoder, snapshots: opts.Snapshots}, nil
}

// ListSheets exposes the source's sheet listing.
func (e *Engine) ListSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	return e.src.ListSheets(ctx, spreadsheetID)
}

// Export reads the requested range, encodes it and then clears and compacts
// the source sheet. Remote read and encoding failures are returned as errors
// before any edit happens.
func (e *Engine) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	start := time.Now()
	rows, err := e.src.Read(ctx, req.SpreadsheetID, req.Sheet, req.Range)
	if err != nil {
		return nil, err
	}
	res := &ExportResult{Request: req, Rows: len(rows)}
	if len(rows) == 0 {
		res.NoData = true
		logger.Info(ctx, "service.transfer", "transfer.export",
			slog.String("status", "skip"),
			slog.String("sheet", req.Sheet),
			slog.String("range", req.Range),
			slog.Int("count", 0),
		)
		return res, nil
	}

	data, err := e.enc.Encode(req.Sheet, rows)
	if err != nil {
		return nil, fmt.Errorf("transfer: encode: %w", err)
	}
	res.File = &File{Name: xlsx.FileName(req.OutputName), MIME: xlsx.MIMEType, Data: data}

	res.Compaction, res.CompactErr = e.compact(ctx, req)

	attrs := []slog.Attr{
		slog.String("sheet", req.Sheet),
		slog.String("range", req.Range),
		slog.Int("count", len(rows)),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", logger.Took(start)),
	}
	if res.CompactErr != nil {
		attrs = append(attrs, slog.String("status", "fail"), slog.String("err", res.CompactErr.Error()))
		logger.Error(ctx, "service.transfer", "transfer.export", attrs...)
	} else {
		attrs = append(attrs, slog.String("status", "ok"))
		logger.Info(ctx, "service.transfer", "transfer.export", attrs...)
	}
	return res, nil
}

func (e *Engine) compact(ctx context.Context, req ExportRequest) (*Compaction, error) {
	span, err := ParseRowSpan(req.Range)
	if err != nil {
		return nil, err
	}
	before, err := e.src.ReadAll(ctx, req.SpreadsheetID, req.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet before compaction: %w", err)
	}
	after := Compact(before, span)

	c := &Compaction{Span: span, TotalRows: len(after)}
	for _, row := range after {
		if !IsEmptyRow(row) {
			c.Remaining++
		}
	}

	var snap *snapshot.Snapshot
	if e.snapshots != nil {
		snap = snapshot.New(req.SpreadsheetID, req.Sheet, req.Range, before)
		if err := e.snapshots.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("save snapshot, sheet left untouched: %w", err)
		}
		c.SnapshotID = snap.ID.String()
	}

	if err := e.src.WriteAll(ctx, req.SpreadsheetID, req.Sheet, after); err != nil {
		if snap != nil {
			if markErr := e.snapshots.MarkFailed(ctx, snap.ID, err); markErr != nil {
				logger.Warn(ctx, "service.transfer", "snapshot.mark_failed",
					slog.String("status", "fail"),
					slog.String("err", markErr.Error()),
				)
			}
			return c, fmt.Errorf("%w (snapshot %s): %w", ErrPartialWrite, snap.ID, err)
		}
		return c, fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}

	if snap != nil {
		if err := e.snapshots.MarkApplied(ctx, snap.ID, after); err != nil {
			logger.Warn(ctx, "service.transfer", "snapshot.mark_applied",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
	return c, nil
}
