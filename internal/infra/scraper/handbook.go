package scraper

import (
	"context"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// HandbookScraper extracts section links from numbered-handbook tables of
// contents. Section titles start with a dotted section number
// ("258.1 Income Limits", "258.10 Utility Allowances") and the result is
// ordered numerically by that number, not lexicographically.
type HandbookScraper struct {
	base
}

// NewHandbookScraper creates a HandbookScraper using the shared page fetcher.
func NewHandbookScraper(f *fetcher.Fetcher) *HandbookScraper {
	return &HandbookScraper{base: base{fetcher: f}}
}

// sectionTitlePattern matches titles carrying a leading dotted section number.
var sectionTitlePattern = regexp.MustCompile(`^\d+(\.\d+)*(\s|$)`)

// Scrape fetches a handbook table of contents and extracts its section links.
func (s *HandbookScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
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
		if !sectionTitlePattern.MatchString(title) {
			return
		}

		items = append(items, entity.ScrapedItem{Title: title, URL: href})
	})

	items = normalizeItems(items, sourceURL, nil)
	sortItemsBySection(items)

	return buildResult(ctx, page, sourceURL, items), nil
}
