package monitor

import (
	"errors"

	"policy-watch/internal/infra/scraper"
)

// errorKind buckets a per-source failure for metrics labels.
func errorKind(err error) string {
	var fetchErr *scraper.FetchError
	if errors.As(err, &fetchErr) {
		return "fetch"
	}
	var parseErr *scraper.ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	var cfgErr *scraper.ConfigurationError
	if errors.As(err, &cfgErr) {
		return "configuration"
	}
	return "other"
}
