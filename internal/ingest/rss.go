package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSFetcher is the mandatory SourceFetcher implementation, built on the
// teacher's internal/rss.Service: per-item normalization (PublishedAt /
// Content / Author fallback logic) is kept close to the original.
type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser()}
}

func (f *RSSFetcher) Fetch(ctx context.Context, sourceURL string) ([]RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(sourceURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch feed %s: %w", sourceURL, err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, RawItem{
			Title:       strings.TrimSpace(it.Title),
			RawText:     normalizeContent(it),
			URL:         it.Link,
			PublishedAt: normalizePublished(it),
			Author:      normalizeAuthor(it),
		})
	}
	return items, nil
}

// normalizeContent prefers the full content field and falls back to the
// description, the same fallback order the teacher's rss.go used.
func normalizeContent(it *gofeed.Item) string {
	if it.Content != "" {
		return it.Content
	}
	if it.Description != "" {
		return it.Description
	}
	return ""
}

// normalizePublished falls back to "now" when a feed omits a publish date,
// matching the teacher's defensive default; clock-skew clamping for dates
// too far in the future happens later in Normalize, not here.
func normalizePublished(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Now().UTC()
}

func normalizeAuthor(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return it.Author.Name
	}
	if len(it.Authors) > 0 {
		return it.Authors[0].Name
	}
	return ""
}
