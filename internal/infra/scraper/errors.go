package scraper

import "fmt"

// FetchError indicates the HTTP request for a source page did not succeed
// after retries were exhausted. Status carries the last HTTP status seen,
// or 0 when the failure happened below the HTTP layer.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates structural extraction failed on a fetched page.
// A page that merely yields zero items is not a ParseError; some pages
// legitimately have nothing new.
type ParseError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError indicates an unknown source type was requested from
// the registry. Fatal for the single operation that requested it.
type ConfigurationError struct {
	SourceType string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown source type: %q", e.SourceType)
}
