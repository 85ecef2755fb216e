package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// MCOScraper extracts provider handbook and guidance links from managed
// care organization pages. Unlike the agency sources, MCO pages routinely
// host their documents on partner CDN domains, so the scraper carries an
// explicit allow-list of additional hosts instead of the default
// same-host rule.
type MCOScraper struct {
	base
	allowHosts []string
}

// NewMCOScraper creates an MCOScraper. allowHosts names the partner
// document hosts to keep in addition to the page's own host.
func NewMCOScraper(f *fetcher.Fetcher, allowHosts []string) *MCOScraper {
	return &MCOScraper{
		base:       base{fetcher: f},
		allowHosts: allowHosts,
	}
}

// Scrape fetches an MCO page and extracts its document and guidance links.
func (s *MCOScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
	page, doc, err := s.fetchDocument(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	var items []entity.ScrapedItem
	doc.Find("main a[href], article a[href], .content a[href], #content a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := attrHref(sel)
		title := cleanText(sel.Text())
		if title == "" || href == "" {
			return
		}

		items = append(items, entity.ScrapedItem{Title: title, URL: href})
	})

	// Pages without a recognizable content region fall back to all anchors;
	// the navigation filter handles the chrome.
	if len(items) == 0 {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href := attrHref(sel)
			title := cleanText(sel.Text())
			if title == "" || href == "" {
				return
			}
			items = append(items, entity.ScrapedItem{Title: title, URL: href})
		})
	}

	items = normalizeItems(items, sourceURL, s.allowHosts)
	sortItemsByTitle(items)

	return buildResult(ctx, page, sourceURL, items), nil
}
