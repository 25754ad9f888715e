package api

import (
	"context"
	"fmt"
	"strings"

	"mediaharvest/internal/records"
)

// SourceStats returns the aggregate view for one source.
func SourceStats(ctx context.Context, store *records.Store, source string) (StatsView, error) {
	if strings.TrimSpace(source) == "" {
		return StatsView{}, fmt.Errorf("source is required")
	}
	stats, err := store.Stats(ctx, source)
	if err != nil {
		return StatsView{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return NewStatsView(stats), nil
}

// AllStats returns aggregates for every source present in the store.
func AllStats(ctx context.Context, store *records.Store) ([]StatsView, error) {
	names, err := store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	views := make([]StatsView, 0, len(names))
	for _, name := range names {
		stats, err := store.Stats(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("aggregate stats for %s: %w", name, err)
		}
		views = append(views, NewStatsView(stats))
	}
	return views, nil
}

// ListProblems returns problem views for a source; an empty source lists all.
func ListProblems(ctx context.Context, store *records.Store, source string) ([]ProblemView, error) {
	problems, err := store.Problems(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	views := make([]ProblemView, 0, len(problems))
	for _, problem := range problems {
		views = append(views, NewProblemView(problem))
	}
	return views, nil
}

// ClearProblems removes the recorded problems for a source and returns how
// many rows were dropped.
func ClearProblems(ctx context.Context, store *records.Store, source string) (int64, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("source is required")
	}
	removed, err := store.ClearProblems(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("clear problems: %w", err)
	}
	return removed, nil
}

// LastRun returns the most recent harvest run for a source, or a zero view
// when the source has never run.
func LastRun(ctx context.Context, store *records.Store, source string) (RunView, error) {
	run, err := store.LastRun(ctx, source)
	if err != nil {
		return RunView{}, fmt.Errorf("fetch last run: %w", err)
	}
	return NewRunView(run), nil
}
