package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportProblem upserts a problem keyed by (source, url). A repeated failure
// on the same url refreshes the message and timestamp rather than adding a row.
func (s *Store) ReportProblem(ctx context.Context, source, url, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO problems (id, source, url, message, reported_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (source, url) DO UPDATE SET
             message = excluded.message,
             reported_at = excluded.reported_at`,
		uuid.NewString(), source, url, message, now)
	if err != nil {
		return fmt.Errorf("report problem: %w", err)
	}
	return nil
}

// Problems returns recorded problems, optionally filtered by source.
func (s *Store) Problems(ctx context.Context, source string) ([]Problem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if source == "" {
		rows, err = s.db.QueryContext(ensureContext(ctx),
			`SELECT id, source, url, message, reported_at FROM problems ORDER BY reported_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ensureContext(ctx),
			`SELECT id, source, url, message, reported_at FROM problems WHERE source = ? ORDER BY reported_at DESC`,
			source)
	}
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var out []Problem
	for rows.Next() {
		var (
			p           Problem
			reportedRaw string
		)
		if err := rows.Scan(&p.ID, &p.Source, &p.URL, &p.Message, &reportedRaw); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		if t, err := parseTimeString(reportedRaw); err == nil {
			p.ReportedAt = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProblemCount returns the number of problems recorded for a source.
func (s *Store) ProblemCount(ctx context.Context, source string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM problems WHERE source = ?`, source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count problems: %w", err)
	}
	return count, nil
}

// ClearProblems removes problems for a source (or all when source is empty).
func (s *Store) ClearProblems(ctx context.Context, source string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if source == "" {
		res, err = s.execWithRetry(ctx, `DELETE FROM problems`)
	} else {
		res, err = s.execWithRetry(ctx, `DELETE FROM problems WHERE source = ?`, source)
	}
	if err != nil {
		return 0, fmt.Errorf("clear problems: %w", err)
	}
	return res.RowsAffected()
}
