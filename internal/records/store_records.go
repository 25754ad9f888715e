package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const recordColumns = "id, source, source_id, sub_source, title, description, categories_json, type_tags_json, captured_at, published_at, status, ignored, ignored_reason, variants_json, duplicates_json, published_names_json, created_at, updated_at"

// Upsert inserts a record or refreshes the stored row keyed by
// (source, source_id). The exact-hash index rows are rebuilt in the same
// transaction so FindByHash never observes a half-updated record.
func (s *Store) Upsert(ctx context.Context, record *MediaRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if record.Source == "" || record.SourceID == "" {
		return errors.New("record requires source and source_id")
	}
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = StatusNew
	}

	categoriesJSON, err := marshalStrings(record.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	typeTagsJSON, err := marshalStrings(record.TypeTags)
	if err != nil {
		return fmt.Errorf("marshal type tags: %w", err)
	}
	variantsJSON, err := json.Marshal(record.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}
	duplicatesJSON, err := json.Marshal(record.Duplicates)
	if err != nil {
		return fmt.Errorf("marshal duplicates: %w", err)
	}
	publishedJSON, err := json.Marshal(record.PublishedNames)
	if err != nil {
		return fmt.Errorf("marshal published names: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin upsert tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO media_records (
                source, source_id, sub_source, title, description,
                categories_json, type_tags_json, captured_at, published_at,
                status, ignored, ignored_reason, variants_json,
                duplicates_json, published_names_json, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (source, source_id) DO UPDATE SET
                sub_source = excluded.sub_source,
                title = excluded.title,
                description = excluded.description,
                categories_json = excluded.categories_json,
                type_tags_json = excluded.type_tags_json,
                captured_at = excluded.captured_at,
                published_at = excluded.published_at,
                status = excluded.status,
                ignored = excluded.ignored,
                ignored_reason = excluded.ignored_reason,
                variants_json = excluded.variants_json,
                duplicates_json = excluded.duplicates_json,
                published_names_json = excluded.published_names_json,
                updated_at = excluded.updated_at`,
			record.Source,
			record.SourceID,
			nullableString(record.SubSource),
			nullableString(record.Title),
			nullableString(record.Description),
			string(categoriesJSON),
			string(typeTagsJSON),
			nullableTime(record.CapturedAt),
			nullableTime(record.PublishedAt),
			record.Status,
			boolToInt(record.Ignored),
			nullableString(record.IgnoredReason),
			string(variantsJSON),
			string(duplicatesJSON),
			string(publishedJSON),
			record.CreatedAt.Format(time.RFC3339Nano),
			record.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("upsert record: %w", err)
		}

		// On the conflict path LastInsertId reports the connection's previous
		// insert, not this row, so the id is always resolved by key.
		if record.ID == 0 {
			row := tx.QueryRowContext(ctx,
				`SELECT id FROM media_records WHERE source = ? AND source_id = ?`,
				record.Source, record.SourceID)
			if err := row.Scan(&record.ID); err != nil {
				return fmt.Errorf("resolve record id: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM record_hashes WHERE record_id = ?`, record.ID); err != nil {
			return fmt.Errorf("clear hash index: %w", err)
		}
		for _, variant := range record.Variants {
			if variant.SHA1 == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO record_hashes (record_id, variant, sha1) VALUES (?, ?, ?)`,
				record.ID, variant.Name, variant.SHA1); err != nil {
				return fmt.Errorf("index variant hash: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit upsert: %w", err)
		}
		return nil
	})
}

// FindByID fetches a record by its stable id within a source namespace.
// Returns nil when the record does not exist.
func (s *Store) FindByID(ctx context.Context, source, sourceID string) (*MediaRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM media_records WHERE source = ? AND source_id = ?`,
		source, sourceID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return record, nil
}

// FindByHash returns every record carrying the given sha1 on any variant,
// across all sources.
func (s *Store) FindByHash(ctx context.Context, sha1 string) ([]*MediaRecord, error) {
	if sha1 == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT DISTINCT `+prefixColumns("r", recordColumns)+`
         FROM media_records r
         JOIN record_hashes h ON h.record_id = r.id
         WHERE h.sha1 = ?
         ORDER BY r.id`,
		sha1)
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Delete removes a record; used only when the source confirms the item is gone.
func (s *Store) Delete(ctx context.Context, source, sourceID string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM media_records WHERE source = ? AND source_id = ?`,
		source, sourceID)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListBySource returns all records for a source ordered by creation time.
func (s *Store) ListBySource(ctx context.Context, source string) ([]*MediaRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM media_records WHERE source = ? ORDER BY created_at, id`,
		source)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByStatus returns records for a source filtered by status set.
func (s *Store) ListByStatus(ctx context.Context, source string, statuses ...Status) ([]*MediaRecord, error) {
	if len(statuses) == 0 {
		return s.ListBySource(ctx, source)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, source)
	for _, status := range statuses {
		args = append(args, status)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM media_records
         WHERE source = ? AND status IN (`+placeholders+`)
         ORDER BY created_at, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListMissing returns records for a source that are neither ignored,
// duplicates, nor published yet.
func (s *Store) ListMissing(ctx context.Context, source string) ([]*MediaRecord, error) {
	return s.ListByStatus(ctx, source, StatusNew, StatusEligible)
}

// ListUnpublished returns every record for a source that has not been
// published, ignored and duplicate rows included. Deletion detection sweeps
// this set: an ignored record removed upstream must still be noticed.
func (s *Store) ListUnpublished(ctx context.Context, source string) ([]*MediaRecord, error) {
	return s.ListByStatus(ctx, source, StatusNew, StatusEligible, StatusIgnored, StatusDuplicate)
}

// ListPerceptualCandidates returns records for a source carrying at least one
// perceptual hash, bounded by limit. The bound keeps near-duplicate search
// cost predictable on large corpora.
func (s *Store) ListPerceptualCandidates(ctx context.Context, source string, limit int) ([]*MediaRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM media_records
         WHERE source = ? AND variants_json LIKE '%perceptual_hash%'
         ORDER BY updated_at DESC
         LIMIT ?`,
		source, limit)
	if err != nil {
		return nil, fmt.Errorf("list perceptual candidates: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func prefixColumns(prefix, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += prefix + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	parts := make([]string, 0, 18)
	start := 0
	for i := 0; i <= len(columns); i++ {
		if i == len(columns) || columns[i] == ',' {
			col := columns[start:i]
			for len(col) > 0 && col[0] == ' ' {
				col = col[1:]
			}
			if col != "" {
				parts = append(parts, col)
			}
			start = i + 1
		}
	}
	return parts
}

func collectRecords(rows *sql.Rows) ([]*MediaRecord, error) {
	var out []*MediaRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*MediaRecord, error) {
	var (
		id             int64
		source         string
		sourceID       string
		subSource      sql.NullString
		title          sql.NullString
		description    sql.NullString
		categoriesRaw  sql.NullString
		typeTagsRaw    sql.NullString
		capturedRaw    sql.NullString
		publishedRaw   sql.NullString
		statusStr      string
		ignored        sql.NullInt64
		ignoredReason  sql.NullString
		variantsRaw    sql.NullString
		duplicatesRaw  sql.NullString
		publishedNames sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&source,
		&sourceID,
		&subSource,
		&title,
		&description,
		&categoriesRaw,
		&typeTagsRaw,
		&capturedRaw,
		&publishedRaw,
		&statusStr,
		&ignored,
		&ignoredReason,
		&variantsRaw,
		&duplicatesRaw,
		&publishedNames,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &MediaRecord{
		ID:            id,
		Source:        source,
		SourceID:      sourceID,
		SubSource:     subSource.String,
		Title:         title.String,
		Description:   description.String,
		Status:        Status(statusStr),
		IgnoredReason: ignoredReason.String,
	}
	if ignored.Valid {
		record.Ignored = ignored.Int64 != 0
	}

	if categoriesRaw.Valid && categoriesRaw.String != "" {
		if err := json.Unmarshal([]byte(categoriesRaw.String), &record.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	if typeTagsRaw.Valid && typeTagsRaw.String != "" {
		if err := json.Unmarshal([]byte(typeTagsRaw.String), &record.TypeTags); err != nil {
			return nil, fmt.Errorf("unmarshal type tags: %w", err)
		}
	}
	if variantsRaw.Valid && variantsRaw.String != "" {
		if err := json.Unmarshal([]byte(variantsRaw.String), &record.Variants); err != nil {
			return nil, fmt.Errorf("unmarshal variants: %w", err)
		}
	}
	if duplicatesRaw.Valid && duplicatesRaw.String != "" {
		if err := json.Unmarshal([]byte(duplicatesRaw.String), &record.Duplicates); err != nil {
			return nil, fmt.Errorf("unmarshal duplicates: %w", err)
		}
	}
	if publishedNames.Valid && publishedNames.String != "" {
		if err := json.Unmarshal([]byte(publishedNames.String), &record.PublishedNames); err != nil {
			return nil, fmt.Errorf("unmarshal published names: %w", err)
		}
	}

	if capturedRaw.Valid {
		if t, err := parseTimeString(capturedRaw.String); err == nil {
			record.CapturedAt = &t
		}
	}
	if publishedRaw.Valid {
		if t, err := parseTimeString(publishedRaw.String); err == nil {
			record.PublishedAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
