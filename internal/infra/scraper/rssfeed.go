package scraper

import (
	"context"

	"github.com/mmcdole/gofeed"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// RSSFeedScraper handles sources that publish a syndication feed (RSS or
// Atom). The raw feed body is fetched through the shared fetcher so the
// content hash and politeness rules match the HTML scrapers, then parsed
// with gofeed which covers both formats and the common malformed variants.
type RSSFeedScraper struct {
	base
	parser *gofeed.Parser
}

// NewRSSFeedScraper creates an RSSFeedScraper. The fetcher should carry the
// feed resilience profiles, which retry more aggressively than the page
// profiles since feed endpoints are built for frequent polling.
func NewRSSFeedScraper(f *fetcher.Fetcher) *RSSFeedScraper {
	return &RSSFeedScraper{
		base:   base{fetcher: f},
		parser: gofeed.NewParser(),
	}
}

// Scrape fetches and parses a feed, mapping entries to scraped items.
func (s *RSSFeedScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
	page, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, asFetchError(sourceURL, err)
	}

	feed, err := s.parser.ParseString(page.Body)
	if err != nil {
		return nil, &ParseError{URL: sourceURL, Err: err}
	}

	items := make([]entity.ScrapedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}

		item := entity.ScrapedItem{
			Title:       cleanText(entry.Title),
			URL:         entry.Link,
			Description: cleanText(entry.Description),
		}
		if entry.PublishedParsed != nil {
			t := *entry.PublishedParsed
			item.Date = &t
		} else if entry.UpdatedParsed != nil {
			t := *entry.UpdatedParsed
			item.Date = &t
		}
		items = append(items, item)
	}

	// Feeds link out to the publisher's site, so every host is allowed;
	// dedupe and chrome filtering still apply.
	items = dedupeFeedItems(items)

	return buildResult(ctx, page, sourceURL, items), nil
}

// dedupeFeedItems collapses duplicate entry links keeping the first
// occurrence. Feed order is preserved: feeds are already newest-first and
// re-sorting by title would bury new entries.
func dedupeFeedItems(items []entity.ScrapedItem) []entity.ScrapedItem {
	seen := make(map[string]bool, len(items))
	deduped := make([]entity.ScrapedItem, 0, len(items))
	for _, item := range items {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		deduped = append(deduped, item)
	}
	return deduped
}
