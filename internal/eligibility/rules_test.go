package eligibility

import (
	"testing"

	"mediaharvest/internal/config"
	"mediaharvest/internal/records"
)

func testRules() *Rules {
	return NewRules(config.Eligibility{
		ForbiddenCategories: []string{"Screenshots", "Logos"},
		PeopleCategories:    []string{"People"},
		PersonTypeTags:      []string{"portrait", "person"},
		CourtesyMarkers:     []string{"courtesy of"},
		CourtesyAllowList:   []string{"public domain"},
		MinContentLength:    20,
		ProtectedReasons:    []string{"block list", "manually ignored"},
	})
}

func TestEvaluateRuleOrder(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name       string
		record     records.MediaRecord
		wantStatus records.Status
		wantReason string
	}{
		{
			name: "forbidden category wins",
			record: records.MediaRecord{
				Title:       "A perfectly good title",
				Description: "with a perfectly good description",
				Categories:  []string{"Nature", "Screenshots"},
			},
			wantStatus: records.StatusIgnored,
			wantReason: ReasonForbiddenCategory,
		},
		{
			name: "single people category with person tags",
			record: records.MediaRecord{
				Title:       "Untitled portrait of somebody",
				Description: "a person standing in front of a wall",
				Categories:  []string{"People"},
				TypeTags:    []string{"portrait", "person"},
			},
			wantStatus: records.StatusIgnored,
			wantReason: ReasonIdentifiablePerson,
		},
		{
			name: "people category with a non-person tag stays eligible",
			record: records.MediaRecord{
				Title:       "Crowd at the harbour festival",
				Description: "wide shot of the waterfront during the festival",
				Categories:  []string{"People"},
				TypeTags:    []string{"portrait", "landscape"},
			},
			wantStatus: records.StatusEligible,
		},
		{
			name: "courtesy marker without allow-list term",
			record: records.MediaRecord{
				Title:       "Old mill on the river",
				Description: "Image courtesy of the county archive.",
				Categories:  []string{"Buildings"},
			},
			wantStatus: records.StatusIgnored,
			wantReason: ReasonCourtesyContent,
		},
		{
			name: "courtesy marker neutralized by allow-list term",
			record: records.MediaRecord{
				Title:       "Old mill on the river",
				Description: "Image courtesy of the county archive, released into the public domain.",
				Categories:  []string{"Buildings"},
			},
			wantStatus: records.StatusEligible,
		},
		{
			name: "degenerate content",
			record: records.MediaRecord{
				Title:       "img_0042",
				Description: "",
			},
			wantStatus: records.StatusIgnored,
			wantReason: ReasonDegenerateContent,
		},
		{
			name: "exact duplicate becomes duplicate status",
			record: records.MediaRecord{
				Title:       "Lighthouse at dusk, west pier",
				Description: "long exposure of the west pier lighthouse",
				Duplicates: []records.DuplicateRef{
					{Source: "archive", SourceID: "123", Kind: records.DuplicateExact, Score: 1},
				},
			},
			wantStatus: records.StatusDuplicate,
		},
		{
			name: "similar duplicate stays eligible",
			record: records.MediaRecord{
				Title:       "Lighthouse at dusk, west pier",
				Description: "long exposure of the west pier lighthouse",
				Duplicates: []records.DuplicateRef{
					{Source: "archive", SourceID: "123", Kind: records.DuplicateSimilar, Score: 0.9},
				},
			},
			wantStatus: records.StatusEligible,
		},
		{
			name: "clean record is eligible",
			record: records.MediaRecord{
				Title:       "Lighthouse at dusk, west pier",
				Description: "long exposure of the west pier lighthouse",
				Categories:  []string{"Lighthouses"},
			},
			wantStatus: records.StatusEligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := rules.Evaluate(&tt.record)
			if decision.Status != tt.wantStatus {
				t.Fatalf("Evaluate() status = %q, want %q", decision.Status, tt.wantStatus)
			}
			if decision.Reason != tt.wantReason {
				t.Fatalf("Evaluate() reason = %q, want %q", decision.Reason, tt.wantReason)
			}
			if decision.Ignored != (tt.wantStatus == records.StatusIgnored) {
				t.Fatalf("Evaluate() ignored = %v for status %q", decision.Ignored, decision.Status)
			}
		})
	}
}

func TestProtectedReasonSurvivesRefresh(t *testing.T) {
	rules := testRules()

	record := records.MediaRecord{
		Title:         "Lighthouse at dusk, west pier",
		Description:   "long exposure of the west pier lighthouse",
		Ignored:       true,
		IgnoredReason: "operator decision: on block list since 2024",
	}

	decision := rules.Evaluate(&record)
	if decision.Status != records.StatusIgnored || !decision.Ignored {
		t.Fatalf("protected ignore was overturned: %+v", decision)
	}
	if decision.Reason != record.IgnoredReason {
		t.Fatalf("protected reason rewritten: %q", decision.Reason)
	}
}

func TestUnprotectedIgnoreIsReevaluated(t *testing.T) {
	rules := testRules()

	// An automatic ignore whose cause has gone away is lifted on refresh.
	record := records.MediaRecord{
		Title:         "Lighthouse at dusk, west pier",
		Description:   "long exposure of the west pier lighthouse",
		Ignored:       true,
		IgnoredReason: ReasonDegenerateContent,
	}

	decision := rules.Evaluate(&record)
	if decision.Status != records.StatusEligible {
		t.Fatalf("expected eligible after cause removed, got %q (%q)", decision.Status, decision.Reason)
	}
}

func TestPublishedRecordNotDemotedByDuplicate(t *testing.T) {
	rules := testRules()

	record := records.MediaRecord{
		Title:       "Lighthouse at dusk, west pier",
		Description: "long exposure of the west pier lighthouse",
		Duplicates: []records.DuplicateRef{
			{Source: "archive", SourceID: "123", Kind: records.DuplicateExact, Score: 1},
		},
	}
	record.AddPublishedName("standard", "Lighthouse_at_dusk.jpg")

	decision := rules.Evaluate(&record)
	if decision.Status != records.StatusPublished {
		t.Fatalf("published record demoted to %q", decision.Status)
	}
}

func TestIsProtectedMatchesSubstringCaseInsensitive(t *testing.T) {
	rules := testRules()

	if !rules.IsProtected("Manually Ignored by operator") {
		t.Fatal("expected case-insensitive substring match")
	}
	if rules.IsProtected(ReasonDegenerateContent) {
		t.Fatal("automatic reason must not be protected")
	}
	if rules.IsProtected("") {
		t.Fatal("empty reason must not be protected")
	}
}
