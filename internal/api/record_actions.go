package api

import (
	"context"
	"fmt"
	"strings"

	"mediaharvest/internal/publish"
	"mediaharvest/internal/records"
)

// ListRecordsRequest selects records for listing. Filter is a status name or
// the pseudo-status "missing" (not yet published).
type ListRecordsRequest struct {
	Source string
	Filter string
}

// ListRecords returns record views for a source, optionally filtered.
func ListRecords(ctx context.Context, store *records.Store, req ListRecordsRequest) ([]RecordView, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, fmt.Errorf("source is required")
	}

	filter := strings.ToLower(strings.TrimSpace(req.Filter))
	switch filter {
	case "":
		list, err := store.ListBySource(ctx, req.Source)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		return NewRecordViews(list), nil
	case "missing":
		list, err := store.ListMissing(ctx, req.Source)
		if err != nil {
			return nil, fmt.Errorf("list missing records: %w", err)
		}
		return NewRecordViews(list), nil
	default:
		status, ok := records.ParseStatus(filter)
		if !ok {
			return nil, fmt.Errorf("unknown record filter %q", req.Filter)
		}
		list, err := store.ListByStatus(ctx, req.Source, status)
		if err != nil {
			return nil, fmt.Errorf("list %s records: %w", status, err)
		}
		return NewRecordViews(list), nil
	}
}

// ShowRecord returns one record by stable id.
func ShowRecord(ctx context.Context, store *records.Store, source, id string) (RecordView, error) {
	record, err := fetchRecord(ctx, store, source, id)
	if err != nil {
		return RecordView{}, err
	}
	return NewRecordView(record), nil
}

// FindRecordsByHash returns every record carrying the exact hash on any
// variant, across sources.
func FindRecordsByHash(ctx context.Context, store *records.Store, sha1 string) ([]RecordView, error) {
	if strings.TrimSpace(sha1) == "" {
		return nil, fmt.Errorf("sha1 is required")
	}
	list, err := store.FindByHash(ctx, strings.ToLower(strings.TrimSpace(sha1)))
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return NewRecordViews(list), nil
}

// ResetIgnored clears a record's ignore state, including protected reasons.
// The record returns to "new" so the next refresh re-evaluates it.
func ResetIgnored(ctx context.Context, store *records.Store, source, id string) (RecordView, error) {
	record, err := fetchRecord(ctx, store, source, id)
	if err != nil {
		return RecordView{}, err
	}
	record.Ignored = false
	record.IgnoredReason = ""
	if record.Status == records.StatusIgnored {
		record.Status = records.StatusNew
	}
	if err := store.Upsert(ctx, record); err != nil {
		return RecordView{}, fmt.Errorf("save record: %w", err)
	}
	return NewRecordView(record), nil
}

// ResetHashes drops all computed fingerprints so the next refresh re-fetches
// and re-hashes every variant.
func ResetHashes(ctx context.Context, store *records.Store, source, id string) (RecordView, error) {
	record, err := fetchRecord(ctx, store, source, id)
	if err != nil {
		return RecordView{}, err
	}
	for i := range record.Variants {
		record.Variants[i].SHA1 = ""
		record.Variants[i].PerceptualHash = 0
		record.Variants[i].SizeBytes = 0
		record.Variants[i].Width = 0
		record.Variants[i].Height = 0
	}
	if err := store.Upsert(ctx, record); err != nil {
		return RecordView{}, fmt.Errorf("save record: %w", err)
	}
	return NewRecordView(record), nil
}

// ResetDuplicates clears the stored duplicate references. A record parked in
// duplicate status returns to "new" for re-evaluation.
func ResetDuplicates(ctx context.Context, store *records.Store, source, id string) (RecordView, error) {
	record, err := fetchRecord(ctx, store, source, id)
	if err != nil {
		return RecordView{}, err
	}
	record.Duplicates = nil
	if record.Status == records.StatusDuplicate {
		record.Status = records.StatusNew
	}
	if err := store.Upsert(ctx, record); err != nil {
		return RecordView{}, fmt.Errorf("save record: %w", err)
	}
	return NewRecordView(record), nil
}

// PublishRecordRequest identifies what to publish. Either SourceID or SHA1
// must be set; Variant narrows publishing to one variant when non-empty.
type PublishRecordRequest struct {
	Source   string
	SourceID string
	SHA1     string
	Variant  string
}

// PublishRecordResult reports what a manual publish did.
type PublishRecordResult struct {
	Record         RecordView `json:"record"`
	PublishedNames []string   `json:"published_names"`
	Skipped        []string   `json:"skipped,omitempty"`
}

// PublishRecord performs an operator-triggered publish. Manual triggers pass
// the policy's manual gate, so they override the date restriction but still
// respect ignore state, prior publishes, and the file type allow list.
func PublishRecord(ctx context.Context, store *records.Store, policy *publish.Policy, publisher publish.Publisher, req PublishRecordRequest) (PublishRecordResult, error) {
	if publisher == nil {
		return PublishRecordResult{}, fmt.Errorf("no publisher configured")
	}

	record, err := resolvePublishTarget(ctx, store, req)
	if err != nil {
		return PublishRecordResult{}, err
	}

	result := PublishRecordResult{}
	for i := range record.Variants {
		variant := &record.Variants[i]
		if req.Variant != "" && variant.Name != req.Variant {
			continue
		}
		if !policy.ShouldPublishNow(record, variant, true) {
			result.Skipped = append(result.Skipped, variant.Name)
			continue
		}
		name, err := publisher.Publish(ctx, publish.Request{
			Title:     record.Title,
			Markup:    record.Description,
			Extension: variant.FileExtension,
			AssetURL:  variant.AssetURL,
			SHA1:      variant.SHA1,
		})
		if err != nil {
			return PublishRecordResult{}, fmt.Errorf("publish variant %s: %w", variant.Name, err)
		}
		record.AddPublishedName(variant.Name, name)
		result.PublishedNames = append(result.PublishedNames, name)
	}

	if record.IsPublished() {
		record.Status = records.StatusPublished
	}
	if err := store.Upsert(ctx, record); err != nil {
		return PublishRecordResult{}, fmt.Errorf("save record: %w", err)
	}
	result.Record = NewRecordView(record)
	return result, nil
}

func resolvePublishTarget(ctx context.Context, store *records.Store, req PublishRecordRequest) (*records.MediaRecord, error) {
	if strings.TrimSpace(req.SourceID) != "" {
		return fetchRecord(ctx, store, req.Source, req.SourceID)
	}
	if strings.TrimSpace(req.SHA1) == "" {
		return nil, fmt.Errorf("either a record id or a sha1 is required")
	}
	matches, err := store.FindByHash(ctx, strings.ToLower(strings.TrimSpace(req.SHA1)))
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no record carries hash %s", req.SHA1)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("hash %s matches %d records, publish by id instead", req.SHA1, len(matches))
	}
	return matches[0], nil
}

func fetchRecord(ctx context.Context, store *records.Store, source, id string) (*records.MediaRecord, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("source and record id are required")
	}
	record, err := store.FindByID(ctx, source, id)
	if err != nil {
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("record %s/%s not found", source, id)
	}
	return record, nil
}
