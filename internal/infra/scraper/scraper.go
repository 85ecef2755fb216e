// Package scraper provides source-family-specific scrapers for the
// government pages the monitor watches, plus the shared extraction
// pipeline (navigation filtering, deduplication, deterministic ordering,
// keyword filtering, content hashing) and the change detector.
package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/fetcher"
	"policy-watch/internal/resilience/retry"
)

// Scraper fetches a source URL and extracts a normalized item list from it.
// Implementations fail with *FetchError when the HTTP request does not
// succeed after retry and *ParseError when structural extraction throws.
type Scraper interface {
	Scrape(ctx context.Context, sourceURL string) (*entity.ScraperResult, error)
}

// ContextKey is the type for context keys used in scrapers.
// Exported for use in tests.
type ContextKey string

// keywordsKey carries the monitor's filter keywords into a scrape.
const keywordsKey ContextKey = "scrape_keywords"

// WithKeywords returns a context carrying the monitor's filter keywords.
// An empty or nil list means no filtering.
func WithKeywords(ctx context.Context, keywords []string) context.Context {
	return context.WithValue(ctx, keywordsKey, keywords)
}

// KeywordsFromContext extracts filter keywords from the context.
// Returns nil if none were set.
func KeywordsFromContext(ctx context.Context) []string {
	keywords, _ := ctx.Value(keywordsKey).([]string)
	return keywords
}

// HashContent returns the SHA-256 hex digest of the raw fetched content.
// The digest is computed over the unmodified body so that any byte change
// on the page is detectable even when item extraction finds nothing.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FilterByKeywords retains only items whose title contains at least one of
// the keywords (case-insensitive substring match). An absent or empty
// keyword list means no filtering.
func FilterByKeywords(items []entity.ScrapedItem, keywords []string) []entity.ScrapedItem {
	if len(keywords) == 0 {
		return items
	}

	filtered := make([]entity.ScrapedItem, 0, len(items))
	for _, item := range items {
		title := strings.ToLower(item.Title)
		for _, kw := range keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}

// chromeTerms are link titles that mark site navigation rather than content.
var chromeTerms = map[string]bool{
	"home":            true,
	"back":            true,
	"login":           true,
	"log in":          true,
	"logout":          true,
	"menu":            true,
	"search":          true,
	"contact":         true,
	"contact us":      true,
	"sitemap":         true,
	"site map":        true,
	"skip to content": true,
	"top of page":     true,
	"privacy":         true,
	"accessibility":   true,
	"next":            true,
	"previous":        true,
	"about":           true,
	"about us":        true,
}

// isNavigationItem reports whether an item is site chrome: a common
// navigation title, or an anchor-only href that stays on the same page.
func isNavigationItem(item entity.ScrapedItem) bool {
	if strings.HasPrefix(item.URL, "#") {
		return true
	}
	title := strings.ToLower(strings.TrimSpace(item.Title))
	return chromeTerms[title]
}

// normalizeItems runs the shared post-extraction pipeline: drop navigation
// chrome, resolve hrefs to absolute URLs against the page URL, drop
// external domains not on the allow-list, and collapse duplicates keeping
// the first occurrence of each resolved URL. Ordering is left to the
// variant (sortItemsByTitle or sortItemsBySection).
func normalizeItems(items []entity.ScrapedItem, pageURL string, allowHosts []string) []entity.ScrapedItem {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool, len(items))
	normalized := make([]entity.ScrapedItem, 0, len(items))

	for _, item := range items {
		if isNavigationItem(item) {
			continue
		}

		resolved := item.URL
		if base != nil {
			if ref, err := url.Parse(item.URL); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}

		if !hostAllowed(resolved, base, allowHosts) {
			continue
		}

		if seen[resolved] {
			continue
		}
		seen[resolved] = true

		item.URL = resolved
		normalized = append(normalized, item)
	}

	return normalized
}

// hostAllowed reports whether the resolved URL stays on the page's own host
// or one of the explicitly allow-listed partner hosts.
func hostAllowed(resolved string, base *url.URL, allowHosts []string) bool {
	u, err := url.Parse(resolved)
	if err != nil {
		return false
	}
	if base != nil && strings.EqualFold(u.Host, base.Host) {
		return true
	}
	for _, host := range allowHosts {
		if strings.EqualFold(u.Host, host) {
			return true
		}
	}
	return false
}

// sortItemsByTitle orders items lexicographically by title, then URL for a
// stable tiebreak. Used by generic hub pages where no better key exists.
func sortItemsByTitle(items []entity.ScrapedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].URL < items[j].URL
	})
}

// sortItemsBySection orders items by the dotted section number embedded in
// their titles, comparing each segment numerically so that 258.2 sorts
// before 258.10. A naive string sort gets this wrong.
func sortItemsBySection(items []entity.ScrapedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return compareSectionNumbers(sectionNumber(items[i].Title), sectionNumber(items[j].Title)) < 0
	})
}

// sectionNumber extracts the leading dotted section number from a title,
// e.g. "258.10 Utility Allowances" yields "258.10". Returns "" when the
// title carries no section number.
func sectionNumber(title string) string {
	title = strings.TrimSpace(title)
	end := 0
	for end < len(title) {
		c := title[end]
		if (c >= '0' && c <= '9') || c == '.' {
			end++
			continue
		}
		break
	}
	return strings.Trim(title[:end], ".")
}

// compareSectionNumbers compares two dotted section numbers segment by
// segment. Numeric segments compare numerically; non-numeric segments fall
// back to lexical comparison. A missing segment sorts first.
func compareSectionNumbers(a, b string) int {
	if a == b {
		return 0
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		default:
			if as[i] != bs[i] {
				if as[i] < bs[i] {
					return -1
				}
				return 1
			}
		}
	}

	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// base carries the shared fetch step and result assembly for the HTML
// scraper variants.
type base struct {
	fetcher *fetcher.Fetcher
}

// fetchDocument fetches the page and parses it as HTML. Fetch failures are
// surfaced as *FetchError carrying the last HTTP status when one was seen;
// HTML parse failures as *ParseError.
func (b base) fetchDocument(ctx context.Context, sourceURL string) (*fetcher.Page, *goquery.Document, error) {
	page, err := b.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, nil, asFetchError(sourceURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, nil, &ParseError{URL: sourceURL, Err: err}
	}

	return page, doc, nil
}

// asFetchError wraps a fetch failure as *FetchError, extracting the last
// known HTTP status when the underlying error carries one.
func asFetchError(sourceURL string, err error) error {
	status := 0
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.StatusCode
	}
	return &FetchError{URL: sourceURL, Status: status, Err: err}
}

// buildResult assembles the final ScraperResult: keyword filtering from the
// context, content hash over the raw body, and metadata reflecting the
// surviving item count.
func buildResult(ctx context.Context, page *fetcher.Page, sourceURL string, items []entity.ScrapedItem) *entity.ScraperResult {
	items = FilterByKeywords(items, KeywordsFromContext(ctx))

	return &entity.ScraperResult{
		ContentHash: HashContent(page.Body),
		Content:     page.Body,
		Items:       items,
		Metadata: entity.ScrapeMetadata{
			ScrapedAt:   page.FetchedAt,
			SourceURL:   sourceURL,
			ItemCount:   len(items),
			HTTPStatus:  page.StatusCode,
			ContentType: page.ContentType,
		},
	}
}

// attrHref returns the trimmed href attribute of a selection, or "" when
// absent.
func attrHref(sel *goquery.Selection) string {
	href, ok := sel.Attr("href")
	if !ok {
		return ""
	}
	return strings.TrimSpace(href)
}

// cleanText collapses the whitespace inside an extracted text fragment.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
