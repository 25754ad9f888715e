package api

import (
	"time"

	"mediaharvest/internal/records"
)

// VariantView is the external representation of one file variant.
type VariantView struct {
	Name           string   `json:"name"`
	AssetURL       string   `json:"asset_url,omitempty"`
	SHA1           string   `json:"sha1,omitempty"`
	PerceptualHash uint64   `json:"perceptual_hash,omitempty"`
	SizeBytes      int64    `json:"size_bytes,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	FileExtension  string   `json:"file_extension,omitempty"`
	PublishedNames []string `json:"published_names,omitempty"`
}

// DuplicateView is the external representation of one duplicate reference.
type DuplicateView struct {
	Source   string  `json:"source"`
	SourceID string  `json:"source_id"`
	Variant  string  `json:"variant"`
	Kind     string  `json:"kind"`
	Score    float64 `json:"score,omitempty"`
}

// RecordView is the external representation of a media record.
type RecordView struct {
	ID            int64           `json:"id"`
	Source        string          `json:"source"`
	SourceID      string          `json:"source_id"`
	SubSource     string          `json:"sub_source,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	TypeTags      []string        `json:"type_tags,omitempty"`
	CapturedAt    string          `json:"captured_at,omitempty"`
	PublishedAt   string          `json:"published_at,omitempty"`
	Status        string          `json:"status"`
	Ignored       bool            `json:"ignored,omitempty"`
	IgnoredReason string          `json:"ignored_reason,omitempty"`
	Variants      []VariantView   `json:"variants,omitempty"`
	Duplicates    []DuplicateView `json:"duplicates,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// ProblemView is the external representation of a recorded problem.
type ProblemView struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	URL        string `json:"url"`
	Message    string `json:"message"`
	ReportedAt string `json:"reported_at"`
}

// RunView is the external representation of a source's last harvest run.
type RunView struct {
	Source          string `json:"source"`
	RunID           string `json:"run_id"`
	Start           string `json:"start"`
	End             string `json:"end,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// StatsView is the external representation of per-source aggregates.
type StatsView struct {
	Source           string               `json:"source"`
	Total            int                  `json:"total"`
	Published        int                  `json:"published"`
	Ignored          int                  `json:"ignored"`
	Duplicates       int                  `json:"duplicates"`
	Problems         int                  `json:"problems"`
	MissingByVariant map[string]int       `json:"missing_by_variant,omitempty"`
	BySubSource      map[string]StatsView `json:"by_sub_source,omitempty"`
}

// NewRecordView converts a stored record into its external representation.
func NewRecordView(record *records.MediaRecord) RecordView {
	if record == nil {
		return RecordView{}
	}
	view := RecordView{
		ID:            record.ID,
		Source:        record.Source,
		SourceID:      record.SourceID,
		SubSource:     record.SubSource,
		Title:         record.Title,
		Description:   record.Description,
		Categories:    record.Categories,
		TypeTags:      record.TypeTags,
		CapturedAt:    formatTime(record.CapturedAt),
		PublishedAt:   formatTime(record.PublishedAt),
		Status:        string(record.Status),
		Ignored:       record.Ignored,
		IgnoredReason: record.IgnoredReason,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     record.UpdatedAt.Format(time.RFC3339),
	}
	for _, variant := range record.Variants {
		view.Variants = append(view.Variants, VariantView{
			Name:           variant.Name,
			AssetURL:       variant.AssetURL,
			SHA1:           variant.SHA1,
			PerceptualHash: variant.PerceptualHash,
			SizeBytes:      variant.SizeBytes,
			Width:          variant.Width,
			Height:         variant.Height,
			FileExtension:  variant.FileExtension,
			PublishedNames: record.PublishedNames[variant.Name],
		})
	}
	for _, ref := range record.Duplicates {
		view.Duplicates = append(view.Duplicates, DuplicateView{
			Source:   ref.Source,
			SourceID: ref.SourceID,
			Variant:  ref.Variant,
			Kind:     string(ref.Kind),
			Score:    ref.Score,
		})
	}
	return view
}

// NewRecordViews converts a record slice.
func NewRecordViews(list []*records.MediaRecord) []RecordView {
	views := make([]RecordView, 0, len(list))
	for _, record := range list {
		views = append(views, NewRecordView(record))
	}
	return views
}

// NewProblemView converts a stored problem.
func NewProblemView(problem records.Problem) ProblemView {
	return ProblemView{
		ID:         problem.ID,
		Source:     problem.Source,
		URL:        problem.URL,
		Message:    problem.Message,
		ReportedAt: problem.ReportedAt.Format(time.RFC3339),
	}
}

// NewRunView converts a stored run.
func NewRunView(run *records.SourceRun) RunView {
	if run == nil {
		return RunView{}
	}
	view := RunView{
		Source: run.Source,
		RunID:  run.RunID,
		Start:  run.Start.Format(time.RFC3339),
	}
	if run.End != nil {
		view.End = run.End.Format(time.RFC3339)
		view.DurationSeconds = int64(run.Duration.Seconds())
	}
	return view
}

// NewStatsView converts stored aggregates.
func NewStatsView(stats records.Stats) StatsView {
	view := StatsView{
		Source:           stats.Source,
		Total:            stats.Total,
		Published:        stats.Published,
		Ignored:          stats.Ignored,
		Duplicates:       stats.Duplicates,
		Problems:         stats.Problems,
		MissingByVariant: stats.MissingByVariant,
	}
	if len(stats.BySubSource) > 0 {
		view.BySubSource = make(map[string]StatsView, len(stats.BySubSource))
		for name, sub := range stats.BySubSource {
			view.BySubSource[name] = NewStatsView(sub)
		}
	}
	return view
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(time.RFC3339)
}
