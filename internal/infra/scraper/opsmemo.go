package scraper

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// OpsMemoScraper extracts operations memos from agency memo listing pages.
// These pages are flat lists of anchors pointing at memo documents
// (PDF or HTML), usually carrying a memo number and an issue date in the
// link text, e.g. "OPS Memo 26-04: SNAP Interview Waivers (January 5, 2026)".
type OpsMemoScraper struct {
	base
}

// NewOpsMemoScraper creates an OpsMemoScraper using the shared page fetcher.
func NewOpsMemoScraper(f *fetcher.Fetcher) *OpsMemoScraper {
	return &OpsMemoScraper{base: base{fetcher: f}}
}

// memoHrefPattern matches document links on memo listing pages: direct
// document files or paths that mention memos.
var memoHrefPattern = regexp.MustCompile(`(?i)(\.pdf$|\.html?$|memo)`)

// memoDatePattern matches a trailing parenthesized date, e.g. "(January 5, 2026)".
var memoDatePattern = regexp.MustCompile(`\(([A-Z][a-z]+ \d{1,2}, \d{4})\)\s*$`)

// Scrape fetches a memo listing page and extracts its memo links.
func (s *OpsMemoScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
	page, doc, err := s.fetchDocument(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	var items []entity.ScrapedItem
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := attrHref(sel)
		title := cleanText(sel.Text())
		if title == "" || href == "" {
			return
		}
		if !memoHrefPattern.MatchString(href) {
			return
		}

		item := entity.ScrapedItem{Title: title, URL: href}
		if m := memoDatePattern.FindStringSubmatch(title); m != nil {
			item.Date = parseItemDate(m[1])
		}
		items = append(items, item)
	})

	items = normalizeItems(items, sourceURL, nil)
	sortItemsByTitle(items)

	return buildResult(ctx, page, sourceURL, items), nil
}

// itemDateFormats are the date layouts seen across the monitored sources.
var itemDateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
}

// parseItemDate parses a date string against the known layouts.
// Returns nil when nothing matches; item dates are optional and a missing
// date must not be fabricated.
func parseItemDate(dateStr string) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}
	for _, layout := range itemDateFormats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return &t
		}
	}
	return nil
}
