// Package fetcher provides the shared HTTP page fetcher used by every
// scraper variant. It layers SSRF validation, per-host politeness rate
// limiting, retry with backoff, and a circuit breaker over a plain GET.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"policy-watch/internal/resilience/circuitbreaker"
	"policy-watch/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// Page is the raw outcome of fetching one URL. The body is kept verbatim:
// content hashing must run over the unmodified fetched bytes.
type Page struct {
	Body        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Fetcher performs resilient HTTP GETs against monitored source pages.
type Fetcher struct {
	client         *http.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher with the given HTTP client and configuration,
// using the page-scrape retry and circuit breaker profiles.
func New(client *http.Client, cfg Config) *Fetcher {
	return NewWithResilience(client, cfg, retry.PageScrapeConfig(), circuitbreaker.PageScrapeConfig())
}

// NewWithResilience creates a Fetcher with explicit retry and circuit
// breaker profiles. Feed sources use the cheaper feed-fetch profiles.
func NewWithResilience(client *http.Client, cfg Config, retryCfg retry.Config, cbCfg circuitbreaker.Config) *Fetcher {
	return &Fetcher{
		client:         client,
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(cbCfg),
		retryConfig:    retryCfg,
		limiters:       make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves the page at rawURL. On transient failure (network error,
// 5xx, 408, 429) it retries with exponential backoff; on final failure it
// returns the last error, which carries the HTTP status when one was seen.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}

	if err := f.waitHost(ctx, rawURL); err != nil {
		return nil, err
	}

	var page *Page
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, rawURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("page fetch circuit breaker open, request rejected",
					slog.String("url", rawURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		page = cbResult.(*Page)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return page, nil
}

// doFetch performs a single GET without retry or circuit breaker.
func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (*Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	// Limit body size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		Body:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	}, nil
}

// waitHost blocks on the per-host politeness limiter for the URL's host.
func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	f.mu.Lock()
	limiter, ok := f.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.cfg.PerHostRPS), f.cfg.PerHostBurst)
		f.limiters[u.Host] = limiter
	}
	f.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
