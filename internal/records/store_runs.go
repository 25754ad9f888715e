package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartRun records the beginning of a harvest run for a source and returns
// the run identifier.
func (s *Store) StartRun(ctx context.Context, source string) (string, error) {
	runID := uuid.NewString()
	start := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO source_runs (source, run_id, run_start, run_end, run_duration_ms)
         VALUES (?, ?, ?, NULL, NULL)
         ON CONFLICT (source) DO UPDATE SET
             run_id = excluded.run_id,
             run_start = excluded.run_start,
             run_end = NULL,
             run_duration_ms = NULL`,
		source, runID, start)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

// FinishRun records the end of the run started by StartRun.
func (s *Store) FinishRun(ctx context.Context, source, runID string) error {
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`UPDATE source_runs
         SET run_end = ?,
             run_duration_ms = CAST((julianday(?) - julianday(run_start)) * 86400000 AS INTEGER)
         WHERE source = ? AND run_id = ?`,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), source, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run for a source, or nil when the source
// has never been harvested.
func (s *Store) LastRun(ctx context.Context, source string) (*SourceRun, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT source, run_id, run_start, run_end, run_duration_ms
         FROM source_runs WHERE source = ?`,
		source)

	var (
		run        SourceRun
		runID      sql.NullString
		startRaw   sql.NullString
		endRaw     sql.NullString
		durationMS sql.NullInt64
	)
	err := row.Scan(&run.Source, &runID, &startRaw, &endRaw, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last run: %w", err)
	}

	run.RunID = runID.String
	if startRaw.Valid {
		if t, err := parseTimeString(startRaw.String); err == nil {
			run.Start = t
		}
	}
	if endRaw.Valid {
		if t, err := parseTimeString(endRaw.String); err == nil {
			run.End = &t
		}
	}
	if durationMS.Valid {
		run.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	return &run, nil
}
