package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSSAdapter harvests media items from an RSS or Atom feed. A feed document
// is a single page: the adapter signals end-of-results after one fetch.
type RSSAdapter struct {
	def    Definition
	client *http.Client
	parser *gofeed.Parser
}

// NewRSSAdapter constructs an adapter for the given definition.
func NewRSSAdapter(def Definition, client *http.Client) *RSSAdapter {
	return &RSSAdapter{
		def:    def,
		client: client,
		parser: gofeed.NewParser(),
	}
}

// Name returns the source name used as the record namespace.
func (a *RSSAdapter) Name() string {
	return a.def.Name
}

// FetchPage retrieves the feed document. Feeds carry no pagination, so any
// cursor beyond the first returns an empty final page.
func (a *RSSAdapter) FetchPage(ctx context.Context, cursor Cursor) (Page, error) {
	if cursor.Offset > 0 {
		return Page{EndOfResults: true}, nil
	}

	feed, err := a.fetch(ctx)
	if err != nil {
		return Page{}, err
	}

	items := make([]SourceItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := a.normalize(entry)
		if item.ID == "" {
			continue
		}
		if cursor.Year != 0 && !itemInYear(item, cursor.Year) {
			continue
		}
		items = append(items, item)
	}

	return Page{
		Items:        items,
		TotalKnown:   len(items),
		EndOfResults: true,
	}, nil
}

// RefreshOne re-fetches the feed and looks the item up by stable id.
func (a *RSSAdapter) RefreshOne(ctx context.Context, id string) (SourceItem, bool, error) {
	feed, err := a.fetch(ctx)
	if err != nil {
		return SourceItem{}, false, err
	}
	for _, entry := range feed.Items {
		item := a.normalize(entry)
		if item.ID == id {
			return item, true, nil
		}
	}
	return SourceItem{}, false, nil
}

func (a *RSSAdapter) fetch(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.def.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	if a.def.UserAgent != "" {
		req.Header.Set("User-Agent", a.def.UserAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (a *RSSAdapter) normalize(entry *gofeed.Item) SourceItem {
	item := SourceItem{
		Title:       strings.TrimSpace(entry.Title),
		Description: strings.TrimSpace(entry.Description),
		Categories:  append([]string(nil), entry.Categories...),
	}
	item.ID = entry.GUID
	if item.ID == "" {
		item.ID = entry.Link
	}
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		item.PublishedAt = &t
	}
	if entry.UpdatedParsed != nil && item.PublishedAt == nil {
		t := entry.UpdatedParsed.UTC()
		item.PublishedAt = &t
	}

	for i, enclosure := range entry.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		name := "standard"
		if i > 0 {
			name = fmt.Sprintf("extra-%d", i)
		}
		item.Variants = append(item.Variants, VariantLink{Name: name, AssetURL: enclosure.URL})
		if enclosure.Type != "" {
			item.TypeTags = append(item.TypeTags, enclosure.Type)
		}
	}
	if entry.Image != nil && entry.Image.URL != "" && len(item.Variants) == 0 {
		item.Variants = append(item.Variants, VariantLink{Name: "standard", AssetURL: entry.Image.URL})
	}
	return item
}

func itemInYear(item SourceItem, year int) bool {
	when := item.PublishedAt
	if when == nil {
		when = item.CapturedAt
	}
	if when == nil {
		return false
	}
	return when.Year() == year
}

// ExtensionForURL derives a lowercase file extension from an asset URL or a
// MIME type hint, in that order.
func ExtensionForURL(assetURL, mimeType string) string {
	if ext := strings.TrimPrefix(path.Ext(stripQuery(assetURL)), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return ""
}

func stripQuery(raw string) string {
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		return raw[:idx]
	}
	return raw
}
