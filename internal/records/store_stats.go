package records

import (
	"context"
	"fmt"
)

// Stats aggregates counts for a source. When records carry sub-source
// identifiers (federated sources), a per-sub-source breakdown is included.
func (s *Store) Stats(ctx context.Context, source string) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Source: source, MissingByVariant: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM media_records WHERE source = ? GROUP BY status`,
		source)
	if err != nil {
		return stats, fmt.Errorf("record stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.Total += count
		switch status {
		case StatusPublished:
			stats.Published += count
		case StatusIgnored:
			stats.Ignored += count
		case StatusDuplicate:
			stats.Duplicates += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	problemCount, err := s.ProblemCount(ctx, source)
	if err != nil {
		return stats, err
	}
	stats.Problems = problemCount

	missing, err := s.ListMissing(ctx, source)
	if err != nil {
		return stats, err
	}
	bySub := make(map[string]*Stats)
	for _, record := range missing {
		for _, variant := range record.Variants {
			if !record.IsVariantPublished(variant.Name) {
				stats.MissingByVariant[variant.Name]++
			}
		}
	}

	all, err := s.ListBySource(ctx, source)
	if err != nil {
		return stats, err
	}
	for _, record := range all {
		if record.SubSource == "" {
			continue
		}
		sub, ok := bySub[record.SubSource]
		if !ok {
			sub = &Stats{Source: record.SubSource, MissingByVariant: make(map[string]int)}
			bySub[record.SubSource] = sub
		}
		sub.Total++
		switch record.Status {
		case StatusPublished:
			sub.Published++
		case StatusIgnored:
			sub.Ignored++
		case StatusDuplicate:
			sub.Duplicates++
		}
	}
	if len(bySub) > 0 {
		stats.BySubSource = make(map[string]Stats, len(bySub))
		for name, sub := range bySub {
			stats.BySubSource[name] = *sub
		}
	}

	return stats, nil
}

// Sources returns the distinct source names present in the store.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT DISTINCT source FROM media_records ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		out = append(out, source)
	}
	return out, rows.Err()
}
