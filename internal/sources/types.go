package sources

import (
	"context"
	"time"
)

// VariantLink names one downloadable rendition of a source item.
type VariantLink struct {
	Name     string
	AssetURL string
}

// SourceItem is the normalized input to the harvest pipeline. Adapters are
// responsible for all source-specific parsing; the pipeline never sees raw
// pages.
type SourceItem struct {
	ID          string
	SubSource   string
	Title       string
	Description string
	CapturedAt  *time.Time
	PublishedAt *time.Time
	Variants    []VariantLink
	Categories  []string
	TypeTags    []string
}

// Cursor identifies the next page to fetch. Adapters interpret Offset and
// Token as they see fit; Year is non-zero only during the year-splitting
// fallback, restricting the query to a single year.
type Cursor struct {
	Offset int
	Token  string
	Year   int
}

// Page is the result of fetching one page from an adapter. EndOfResults and
// TooManyResults are pagination signals, not errors: the first terminates
// the page loop, the second tells the harvester the query is too coarse to
// enumerate and triggers year-splitting.
type Page struct {
	Items          []SourceItem
	NextCursor     Cursor
	TotalKnown     int
	EndOfResults   bool
	TooManyResults bool
}

// Adapter yields normalized items from one external source, page by page.
type Adapter interface {
	// Name returns the source name used as the record namespace.
	Name() string
	// FetchPage retrieves the page identified by cursor.
	FetchPage(ctx context.Context, cursor Cursor) (Page, error)
	// RefreshOne fetches a single item by stable id. found is false when the
	// source confirms the item no longer exists.
	RefreshOne(ctx context.Context, id string) (SourceItem, bool, error)
}
