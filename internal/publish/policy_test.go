package publish

import (
	"testing"
	"time"

	"mediaharvest/internal/config"
	"mediaharvest/internal/records"
)

func newPolicy(t *testing.T, cfg config.Publish) *Policy {
	t.Helper()
	policy, err := NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return policy
}

func eligibleRecord(year int) *records.MediaRecord {
	record := &records.MediaRecord{
		Source:   "archive",
		SourceID: "x1",
		Title:    "Lighthouse at dusk",
		Status:   records.StatusEligible,
	}
	if year > 0 {
		captured := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		record.CapturedAt = &captured
	}
	return record
}

func jpegVariant() *records.FileVariant {
	return &records.FileVariant{Name: "standard", SHA1: "abc", FileExtension: "jpg"}
}

func TestShouldPublishNowModes(t *testing.T) {
	record := eligibleRecord(2024)
	variant := jpegVariant()

	tests := []struct {
		name   string
		cfg    config.Publish
		manual bool
		want   bool
	}{
		{name: "disabled never publishes", cfg: config.Publish{Mode: "disabled"}, want: false},
		{name: "disabled ignores manual trigger", cfg: config.Publish{Mode: "disabled"}, manual: true, want: false},
		{name: "manual blocks unattended", cfg: config.Publish{Mode: "manual"}, want: false},
		{name: "manual allows operator trigger", cfg: config.Publish{Mode: "manual"}, manual: true, want: true},
		{name: "auto publishes unattended", cfg: config.Publish{Mode: "auto"}, want: true},
		{name: "auto_from_date passes recent record", cfg: config.Publish{Mode: "auto_from_date", FromYear: 2020}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newPolicy(t, tt.cfg)
			if got := policy.ShouldPublishNow(record, variant, tt.manual); got != tt.want {
				t.Fatalf("ShouldPublishNow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutoFromDateGate(t *testing.T) {
	policy := newPolicy(t, config.Publish{Mode: "auto_from_date", FromYear: 2020})
	variant := jpegVariant()

	old := eligibleRecord(2019)
	if policy.ShouldPublishNow(old, variant, false) {
		t.Fatal("record dated before threshold must not auto-publish")
	}
	if !policy.ShouldPublishNow(old, variant, true) {
		t.Fatal("manual trigger must override the date gate")
	}

	undated := eligibleRecord(0)
	if policy.ShouldPublishNow(undated, variant, false) {
		t.Fatal("undated record must not auto-publish under auto_from_date")
	}
}

func TestShouldPublishNowRecordGates(t *testing.T) {
	policy := newPolicy(t, config.Publish{Mode: "auto", AllowedExtensions: []string{"jpg", "png"}})

	ignored := eligibleRecord(2024)
	ignored.Ignored = true
	if policy.ShouldPublishNow(ignored, jpegVariant(), true) {
		t.Fatal("ignored record must never publish")
	}

	published := eligibleRecord(2024)
	published.AddPublishedName("standard", "Lighthouse_abc.jpg")
	if policy.ShouldPublishNow(published, jpegVariant(), true) {
		t.Fatal("already-published variant must not republish")
	}
	other := &records.FileVariant{Name: "full-resolution", SHA1: "def", FileExtension: "jpg"}
	if !policy.ShouldPublishNow(published, other, false) {
		t.Fatal("unpublished sibling variant should still publish")
	}

	pdf := eligibleRecord(2024)
	if policy.ShouldPublishNow(pdf, &records.FileVariant{Name: "standard", SHA1: "abc", FileExtension: "pdf"}, true) {
		t.Fatal("disallowed extension must not publish")
	}

	duplicate := eligibleRecord(2024)
	duplicate.Duplicates = []records.DuplicateRef{{Source: "other", SourceID: "y9", Kind: records.DuplicateExact}}
	if policy.ShouldPublishNow(duplicate, jpegVariant(), false) {
		t.Fatal("exact duplicate must not auto-publish")
	}
	if !policy.ShouldPublishNow(duplicate, jpegVariant(), true) {
		t.Fatal("manual trigger may publish a flagged duplicate")
	}

	similar := eligibleRecord(2024)
	similar.Duplicates = []records.DuplicateRef{{Source: "other", SourceID: "y9", Kind: records.DuplicateSimilar, Score: 0.9}}
	if !policy.ShouldPublishNow(similar, jpegVariant(), false) {
		t.Fatal("similar duplicate alone must not block auto publish")
	}
}

func TestParseMode(t *testing.T) {
	if mode, err := ParseMode(" AUTO_FROM_DATE "); err != nil || mode != ModeAutoFromDate {
		t.Fatalf("ParseMode = %q, %v", mode, err)
	}
	if mode, err := ParseMode(""); err != nil || mode != ModeManual {
		t.Fatalf("empty mode should default to manual, got %q, %v", mode, err)
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestDestinationName(t *testing.T) {
	got := DestinationName("Lighthouse at dusk, west pier", "abcdef0123456789", "JPG")
	want := "Lighthouse_at_dusk_west_pier_abcdef01.jpg"
	if got != want {
		t.Fatalf("DestinationName = %q, want %q", got, want)
	}
	if got := DestinationName("  ", "abcdef0123456789", ""); got != "untitled_abcdef01" {
		t.Fatalf("DestinationName fallback = %q", got)
	}
}
