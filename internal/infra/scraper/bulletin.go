package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
)

// BulletinScraper extracts notices from legal-bulletin notice boards.
// These pages are tables where each row is one notice; rows are kept only
// when they mention the watched agency, since bulletin boards interleave
// notices from many departments.
type BulletinScraper struct {
	base
	agencyKeyword string
}

// NewBulletinScraper creates a BulletinScraper that keeps rows mentioning
// the given agency keyword (case-insensitive).
func NewBulletinScraper(f *fetcher.Fetcher, agencyKeyword string) *BulletinScraper {
	return &BulletinScraper{
		base:          base{fetcher: f},
		agencyKeyword: agencyKeyword,
	}
}

// Scrape fetches a bulletin board page and extracts the watched agency's notices.
func (s *BulletinScraper) Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error) {
	page, doc, err := s.fetchDocument(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	agency := strings.ToLower(s.agencyKeyword)

	var items []entity.ScrapedItem
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		rowText := cleanText(row.Text())
		if agency != "" && !strings.Contains(strings.ToLower(rowText), agency) {
			return
		}

		link := row.Find("a[href]").First()
		href := attrHref(link)
		title := cleanText(link.Text())
		if title == "" || href == "" {
			return
		}

		// Remaining cell text becomes the description.
		description := cleanText(strings.Replace(rowText, title, "", 1))

		item := entity.ScrapedItem{
			Title:       title,
			URL:         href,
			Description: description,
		}
		if d := parseItemDate(firstDateToken(rowText)); d != nil {
			item.Date = d
		}
		items = append(items, item)
	})

	items = normalizeItems(items, sourceURL, nil)
	sortItemsByTitle(items)

	return buildResult(ctx, page, sourceURL, items), nil
}

// firstDateToken scans row text for the first token sequence that parses as
// a date under the known layouts. Bulletin rows put dates in arbitrary
// cells, so this is best-effort.
func firstDateToken(text string) string {
	fields := strings.Fields(text)
	for i := range fields {
		// Try three-word dates ("January 5, 2026") then single tokens.
		if i+2 < len(fields) {
			candidate := strings.Join(fields[i:i+3], " ")
			if parseItemDate(candidate) != nil {
				return candidate
			}
		}
		if parseItemDate(fields[i]) != nil {
			return fields[i]
		}
	}
	return ""
}
