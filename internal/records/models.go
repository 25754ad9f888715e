package records

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a media record.
type Status string

const (
	StatusNew       Status = "new"
	StatusEligible  Status = "eligible"
	StatusIgnored   Status = "ignored"
	StatusDuplicate Status = "duplicate"
	StatusPublished Status = "published"
)

var allStatuses = []Status{
	StatusNew,
	StatusEligible,
	StatusIgnored,
	StatusDuplicate,
	StatusPublished,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// DuplicateKind distinguishes exact-hash matches from perceptual ones.
type DuplicateKind string

const (
	DuplicateExact   DuplicateKind = "exact"
	DuplicateSimilar DuplicateKind = "similar"
)

// FileVariant is one concrete downloadable rendition of a record.
type FileVariant struct {
	Name           string `json:"name"`
	AssetURL       string `json:"asset_url,omitempty"`
	SHA1           string `json:"sha1,omitempty"`
	PerceptualHash uint64 `json:"perceptual_hash,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	FileExtension  string `json:"file_extension,omitempty"`
}

// DuplicateRef points at another record sharing content with this one.
type DuplicateRef struct {
	Source   string        `json:"source"`
	SourceID string        `json:"source_id"`
	Variant  string        `json:"variant"`
	Kind     DuplicateKind `json:"kind"`
	Score    float64       `json:"score,omitempty"`
}

// MediaRecord is the unit of harvesting, keyed by (Source, SourceID).
type MediaRecord struct {
	ID             int64
	Source         string
	SourceID       string
	SubSource      string
	Title          string
	Description    string
	Categories     []string
	TypeTags       []string
	CapturedAt     *time.Time
	PublishedAt    *time.Time
	Status         Status
	Ignored        bool
	IgnoredReason  string
	Variants       []FileVariant
	Duplicates     []DuplicateRef
	PublishedNames map[string][]string // variant name -> destination identifiers
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Variant returns the named variant, or nil when absent.
func (r *MediaRecord) Variant(name string) *FileVariant {
	for i := range r.Variants {
		if r.Variants[i].Name == name {
			return &r.Variants[i]
		}
	}
	return nil
}

// IsPublished reports whether any variant has been published.
func (r *MediaRecord) IsPublished() bool {
	for _, names := range r.PublishedNames {
		if len(names) > 0 {
			return true
		}
	}
	return false
}

// IsVariantPublished reports whether the named variant has been published.
func (r *MediaRecord) IsVariantPublished(variant string) bool {
	return len(r.PublishedNames[variant]) > 0
}

// AddPublishedName records a destination identifier for a variant.
func (r *MediaRecord) AddPublishedName(variant, name string) {
	if r.PublishedNames == nil {
		r.PublishedNames = make(map[string][]string)
	}
	for _, existing := range r.PublishedNames[variant] {
		if existing == name {
			return
		}
	}
	r.PublishedNames[variant] = append(r.PublishedNames[variant], name)
}

// HasExactDuplicate reports whether any duplicate reference is an exact match.
func (r *MediaRecord) HasExactDuplicate() bool {
	for _, ref := range r.Duplicates {
		if ref.Kind == DuplicateExact {
			return true
		}
	}
	return false
}

// SubjectText returns the text used for near-duplicate candidate scoping.
func (r *MediaRecord) SubjectText() string {
	parts := make([]string, 0, 2+len(r.Categories))
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	parts = append(parts, r.Categories...)
	return strings.Join(parts, " ")
}

// Problem records a harvesting or publishing failure for an item.
// Problems are deduplicated by (Source, URL); a repeated failure updates the
// message and timestamp instead of inserting a second row.
type Problem struct {
	ID         string
	Source     string
	URL        string
	Message    string
	ReportedAt time.Time
}

// SourceRun captures the most recent harvest run for a source.
type SourceRun struct {
	Source   string
	RunID    string
	Start    time.Time
	End      *time.Time
	Duration time.Duration
}

// Stats aggregates record counts for a source.
type Stats struct {
	Source           string
	Total            int
	Published        int
	Ignored          int
	Duplicates       int
	Problems         int
	MissingByVariant map[string]int
	BySubSource      map[string]Stats
}
