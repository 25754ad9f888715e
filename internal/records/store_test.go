package records_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mediaharvest/internal/records"
)

func newStore(t *testing.T) *records.Store {
	t.Helper()
	store, err := records.OpenPath(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func sampleRecord(id string) *records.MediaRecord {
	captured := time.Date(2023, time.April, 12, 10, 30, 0, 0, time.UTC)
	return &records.MediaRecord{
		Source:      "archive",
		SourceID:    id,
		SubSource:   "main-account",
		Title:       "Lighthouse at dusk " + id,
		Description: "long exposure of the west pier lighthouse",
		Categories:  []string{"Lighthouses", "Harbours"},
		TypeTags:    []string{"photograph"},
		CapturedAt:  &captured,
		Status:      records.StatusEligible,
		Variants: []records.FileVariant{
			{Name: "standard", AssetURL: "https://assets.example/" + id + ".jpg", SHA1: "sha-" + id, SizeBytes: 2048, FileExtension: "jpg"},
			{Name: "full-resolution", AssetURL: "https://assets.example/" + id + "-full.jpg", SHA1: "sha-" + id + "-full", SizeBytes: 8192, FileExtension: "jpg"},
		},
	}
}

func TestUpsertInsertAndRefresh(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	record := sampleRecord("x1")
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("insert did not assign an id")
	}

	fetched, err := store.FindByID(ctx, "archive", "x1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if fetched == nil {
		t.Fatal("record not found after insert")
	}
	if fetched.Title != record.Title || len(fetched.Variants) != 2 {
		t.Fatalf("fetched = %+v", fetched)
	}
	if fetched.CapturedAt == nil || !fetched.CapturedAt.Equal(*record.CapturedAt) {
		t.Fatalf("captured_at = %v", fetched.CapturedAt)
	}

	// Refresh overwrites descriptive fields without a second row.
	fetched.Title = "Lighthouse at dusk, retitled"
	fetched.AddPublishedName("standard", "Lighthouse_at_dusk.jpg")
	fetched.Status = records.StatusPublished
	if err := store.Upsert(ctx, fetched); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	all, err := store.ListBySource(ctx, "archive")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("row count after refresh = %d", len(all))
	}
	if all[0].Title != "Lighthouse at dusk, retitled" {
		t.Fatalf("title = %q", all[0].Title)
	}
	if !all[0].IsVariantPublished("standard") {
		t.Fatal("published name lost on refresh")
	}
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	store := newStore(t)
	record, err := store.FindByID(context.Background(), "archive", "nope")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil, got %+v", record)
	}
}

func TestFindByHashAcrossSources(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := sampleRecord("x1")
	second := sampleRecord("x2")
	second.Source = "museum"
	second.Variants[0].SHA1 = "sha-x1" // same bytes on another source
	second.Variants[1].SHA1 = "sha-unrelated"

	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert first: %v", err)
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	matches, err := store.FindByHash(ctx, "sha-x1")
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("match count = %d", len(matches))
	}

	// Dropping the variant hash removes its index row on the next upsert.
	second.Variants[0].SHA1 = ""
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert after hash reset: %v", err)
	}
	matches, err = store.FindByHash(ctx, "sha-x1")
	if err != nil {
		t.Fatalf("find by hash after reset: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("match count after reset = %d", len(matches))
	}
}

func TestDeleteRemovesHashIndex(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	record := sampleRecord("x1")
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := store.Delete(ctx, "archive", "x1")
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	matches, err := store.FindByHash(ctx, "sha-x1")
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("hash index rows survived delete: %d", len(matches))
	}

	deleted, err = store.Delete(ctx, "archive", "x1")
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
}

func TestListMissingAndByStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	eligible := sampleRecord("x1")
	ignored := sampleRecord("x2")
	ignored.Status = records.StatusIgnored
	ignored.Ignored = true
	ignored.Variants[0].SHA1 = "sha-a"
	ignored.Variants[1].SHA1 = "sha-b"
	published := sampleRecord("x3")
	published.Status = records.StatusPublished
	published.Variants[0].SHA1 = "sha-c"
	published.Variants[1].SHA1 = "sha-d"
	published.AddPublishedName("standard", "name.jpg")

	for _, record := range []*records.MediaRecord{eligible, ignored, published} {
		if err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert %s: %v", record.SourceID, err)
		}
	}

	missing, err := store.ListMissing(ctx, "archive")
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	if len(missing) != 1 || missing[0].SourceID != "x1" {
		t.Fatalf("missing = %+v", missing)
	}

	ignoredList, err := store.ListByStatus(ctx, "archive", records.StatusIgnored)
	if err != nil {
		t.Fatalf("list ignored: %v", err)
	}
	if len(ignoredList) != 1 || ignoredList[0].SourceID != "x2" {
		t.Fatalf("ignored = %+v", ignoredList)
	}
}

func TestListUnpublishedIncludesIgnoredAndDuplicates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	eligible := sampleRecord("x1")
	ignored := sampleRecord("x2")
	ignored.Status = records.StatusIgnored
	ignored.Ignored = true
	ignored.Variants[0].SHA1 = "sha-a"
	ignored.Variants[1].SHA1 = "sha-b"
	dupe := sampleRecord("x3")
	dupe.Status = records.StatusDuplicate
	dupe.Variants[0].SHA1 = "sha-c"
	dupe.Variants[1].SHA1 = "sha-d"
	published := sampleRecord("x4")
	published.Status = records.StatusPublished
	published.Variants[0].SHA1 = "sha-e"
	published.Variants[1].SHA1 = "sha-f"
	published.AddPublishedName("standard", "name.jpg")

	for _, record := range []*records.MediaRecord{eligible, ignored, dupe, published} {
		if err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert %s: %v", record.SourceID, err)
		}
	}

	unpublished, err := store.ListUnpublished(ctx, "archive")
	if err != nil {
		t.Fatalf("list unpublished: %v", err)
	}
	if len(unpublished) != 3 {
		t.Fatalf("unpublished count = %d, want 3", len(unpublished))
	}
	for _, record := range unpublished {
		if record.SourceID == "x4" {
			t.Fatal("published record listed as unpublished")
		}
	}
}

func TestUpsertConflictResolvesStoredID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := sampleRecord("x1")
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second := sampleRecord("x2")
	second.Variants[0].SHA1 = "sha-x2"
	second.Variants[1].SHA1 = "sha-x2-full"
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	// A refresh built from scratch carries no id; the update path must bind
	// its hash rows to the stored row, not to whatever row the connection
	// inserted last.
	refresh := sampleRecord("x1")
	refresh.Variants[0].SHA1 = "sha-refresh"
	refresh.Variants[1].SHA1 = "sha-refresh-full"
	if err := store.Upsert(ctx, refresh); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refresh.ID != first.ID {
		t.Fatalf("refresh id = %d, want %d", refresh.ID, first.ID)
	}

	matches, err := store.FindByHash(ctx, "sha-refresh")
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if len(matches) != 1 || matches[0].SourceID != "x1" {
		t.Fatalf("matches = %+v", matches)
	}

	matches, err = store.FindByHash(ctx, "sha-x2")
	if err != nil {
		t.Fatalf("find second by hash: %v", err)
	}
	if len(matches) != 1 || matches[0].SourceID != "x2" {
		t.Fatalf("second record hash rows disturbed: %+v", matches)
	}
}

func TestReportProblemDeduplicatesByURL(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.ReportProblem(ctx, "archive", "https://assets.example/x1.jpg", "first failure"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := store.ReportProblem(ctx, "archive", "https://assets.example/x1.jpg", "second failure"); err != nil {
		t.Fatalf("report again: %v", err)
	}

	problems, err := store.Problems(ctx, "archive")
	if err != nil {
		t.Fatalf("list problems: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("problem rows = %d", len(problems))
	}
	if problems[0].Message != "second failure" {
		t.Fatalf("message = %q", problems[0].Message)
	}

	removed, err := store.ClearProblems(ctx, "archive")
	if err != nil || removed != 1 {
		t.Fatalf("clear = %d, %v", removed, err)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx, "archive")
	if err != nil || runID == "" {
		t.Fatalf("start run = %q, %v", runID, err)
	}
	if err := store.FinishRun(ctx, "archive", runID); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	run, err := store.LastRun(ctx, "archive")
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if run == nil || run.RunID != runID || run.End == nil {
		t.Fatalf("run = %+v", run)
	}
	if run.Duration < 0 {
		t.Fatalf("negative duration %v", run.Duration)
	}
}

func TestStatsAggregation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	eligible := sampleRecord("x1")
	eligible.SubSource = "north-account"
	dupe := sampleRecord("x2")
	dupe.Status = records.StatusDuplicate
	dupe.SubSource = "south-account"
	dupe.Variants[0].SHA1 = "sha-e"
	dupe.Variants[1].SHA1 = "sha-f"

	for _, record := range []*records.MediaRecord{eligible, dupe} {
		if err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := store.ReportProblem(ctx, "archive", "u1", "boom"); err != nil {
		t.Fatalf("report problem: %v", err)
	}

	stats, err := store.Stats(ctx, "archive")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Duplicates != 1 || stats.Problems != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.MissingByVariant["standard"] != 1 {
		t.Fatalf("missing by variant = %+v", stats.MissingByVariant)
	}
	if len(stats.BySubSource) != 2 {
		t.Fatalf("sub-source breakdown = %+v", stats.BySubSource)
	}
}
