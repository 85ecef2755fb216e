package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// PubHubScraper extracts publication links from agency publication hubs.
// Hubs list downloadable documents, almost always PDFs, grouped under
// headings; the scraper keeps only direct document links so the item set
// tracks the catalog itself rather than surrounding page chrome.
type PubHubScraper struct {
	base
}

// NewPubHubScraper creates a PubHubScraper using the shared page fetcher.
func NewPubHubScraper(f *fetcher.Fetcher) *PubHubScraper {
	return &PubHubScraper{base: base{fetcher: f}}
}

// Scrape fetches a publication hub page and extracts its document links.
func (s *PubHubScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
	page, doc, err := s.fetchDocument(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	var items []entity.ScrapedItem
	doc.Find("a[href$='.pdf'], a[href$='.PDF']").Each(func(_ int, sel *goquery.Selection) {
		href := attrHref(sel)
		title := cleanText(sel.Text())
		if title == "" {
			// Image-only links fall back to the document filename.
			title = pdfFilename(href)
		}
		if title == "" || href == "" {
			return
		}

		items = append(items, entity.ScrapedItem{
			Title:       title,
			URL:         href,
			Description: cleanText(sel.AttrOr("title", "")),
		})
	})

	items = normalizeItems(items, sourceURL, nil)
	sortItemsByTitle(items)

	return buildResult(ctx, page, sourceURL, items), nil
}

// pdfFilename derives a display title from the last path segment of a
// document href.
func pdfFilename(href string) string {
	href = strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return href
}
