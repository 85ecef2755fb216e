package entity

import "time"

// ScrapedItem is one normalized entry extracted from a source page,
// typically a link to a memo, handbook section, bulletin, or publication.
// Items are produced fresh on every scrape and are not persisted verbatim.
type ScrapedItem struct {
	Title       string
	URL         string
	Description string
	Date        *time.Time
}

// ScrapeMetadata records how and when a ScraperResult was produced.
type ScrapeMetadata struct {
	ScrapedAt   time.Time
	SourceURL   string
	ItemCount   int
	HTTPStatus  int
	ContentType string
}

// ScraperResult is the outcome of one scrape of one source. It lives only
// for the duration of a single check; only its hash and item deltas survive
// into persisted state.
type ScraperResult struct {
	// ContentHash is a SHA-256 hex digest over the raw fetched body. It is
	// the sole whole-page change signal when item-level data is unavailable.
	ContentHash string
	Content     string
	Items       []ScrapedItem
	Metadata    ScrapeMetadata
}
