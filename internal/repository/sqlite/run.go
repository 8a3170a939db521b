package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/model"
	"github.com/sakif/cpp-engine/internal/repository"
)

// Compile-time check that *DB implements repository.RunRepository.
var _ repository.RunRepository = (*DB)(nil)

// Create inserts a new run record, generating its ID and timestamp.
// xid IDs are short, URL-safe and sort by creation time, which keeps the
// history listing cheap.
func (db *DB) Create(ctx context.Context, run *model.RunRecord) error {
	run.ID = xid.New().String()
	run.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (id, kind, session_id, success, exit_code, warnings, errors,
		                   compile_time_ms, execute_time_ms, memory_kb, timed_out, sandboxed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Kind,
		run.SessionID,
		run.Success,
		run.ExitCode,
		run.Warnings,
		run.Errors,
		run.CompileTimeMS,
		run.ExecuteTimeMS,
		run.MemoryKB,
		run.TimedOut,
		run.Sandboxed,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating run record: %w", err)
	}
	return nil
}

// GetByID retrieves a single run record by its ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.RunRecord, error) {
	var run model.RunRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, kind, session_id, success, exit_code, warnings, errors,
		        compile_time_ms, execute_time_ms, memory_kb, timed_out, sandboxed, created_at
		 FROM runs
		 WHERE id = ?`,
		id,
	).Scan(
		&run.ID,
		&run.Kind,
		&run.SessionID,
		&run.Success,
		&run.ExitCode,
		&run.Warnings,
		&run.Errors,
		&run.CompileTimeMS,
		&run.ExecuteTimeMS,
		&run.MemoryKB,
		&run.TimedOut,
		&run.Sandboxed,
		&run.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("run", id)
		}
		return nil, fmt.Errorf("sqlite: getting run %s: %w", id, err)
	}
	return &run, nil
}

// List retrieves run records, newest first, with pagination.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.RunRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, kind, session_id, success, exit_code, warnings, errors,
		        compile_time_ms, execute_time_ms, memory_kb, timed_out, sandboxed, created_at
		 FROM runs
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.RunRecord, 0, limit)
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.SessionID, &r.Success, &r.ExitCode, &r.Warnings, &r.Errors,
			&r.CompileTimeMS, &r.ExecuteTimeMS, &r.MemoryKB, &r.TimedOut, &r.Sandboxed, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating runs: %w", err)
	}

	return runs, nil
}
