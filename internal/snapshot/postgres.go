package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/sheetbot/core/logger"
)

// PostgresStore persists snapshots in the sheet_snapshots table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already migrated database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type snapshotRow struct {
	ID            uuid.UUID `db:"id"`
	SpreadsheetID string    `db:"spreadsheet_id"`
	SheetName     string    `db:"sheet_name"`
	RangeExpr     string    `db:"range_expr"`
	BeforeRows    []byte    `db:"before_rows"`
	Status        string    `db:"status"`
	Patch         string    `db:"patch"`
	Error         string    `db:"error"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	before, err := json.Marshal(snap.Before)
	if err != nil {
		return fmt.Errorf("snapshot: encode rows: %w", err)
	}
	row := snapshotRow{
		ID:            snap.ID,
		SpreadsheetID: snap.SpreadsheetID,
		SheetName:     snap.Sheet,
		RangeExpr:     snap.Range,
		BeforeRows:    before,
		Status:        string(snap.Status),
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
	}
	const q = `INSERT INTO sheet_snapshots
		(id, spreadsheet_id, sheet_name, range_expr, before_rows, status, patch, error, created_at, updated_at)
		VALUES (:id, :spreadsheet_id, :sheet_name, :range_expr, :before_rows, :status, '', '', :created_at, :updated_at)`
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		logger.Error(ctx, "service.snapshots", "snapshot.save",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("snapshot: insert: %w", err)
	}
	logger.Debug(ctx, "service.snapshots", "snapshot.save",
		slog.String("status", "ok"),
		slog.String("snapshot_id", snap.ID.String()),
		slog.Int("rows", len(snap.Before)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (s *PostgresStore) MarkApplied(ctx context.Context, id uuid.UUID, after [][]string) error {
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, `SELECT before_rows FROM sheet_snapshots WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("snapshot: load: %w", err)
	}
	var before [][]string
	if err := json.Unmarshal(raw, &before); err != nil {
		return fmt.Errorf("snapshot: decode rows: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sheet_snapshots SET status = $2, patch = $3, updated_at = now() WHERE id = $1`,
		id, string(StatusApplied), RecoveryPatch(before, after),
	)
	if err != nil {
		return fmt.Errorf("snapshot: mark applied: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sheet_snapshots SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, string(StatusFailed), msg,
	)
	if err != nil {
		return fmt.Errorf("snapshot: mark failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, spreadsheet_id, sheet_name, range_expr, before_rows, status, patch, error, created_at, updated_at
		 FROM sheet_snapshots ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		var before [][]string
		if err := json.Unmarshal(r.BeforeRows, &before); err != nil {
			return nil, fmt.Errorf("snapshot: decode rows %s: %w", r.ID, err)
		}
		out = append(out, Snapshot{
			ID:            r.ID,
			SpreadsheetID: r.SpreadsheetID,
			Sheet:         r.SheetName,
			Range:         r.RangeExpr,
			Before:        before,
			Status:        Status(r.Status),
			Patch:         r.Patch,
			Error:         r.Error,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}
