package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"policy-watch/internal/resilience/circuitbreaker"
	"policy-watch/internal/resilience/retry"
)

func mustParseIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	if ip == nil {
		t.Fatalf("invalid test IP %q", s)
	}
	return ip
}

func fastRetryConfig(maxAttempts int) retry.Config {
	return retry.Config{
		MaxAttempts:    maxAttempts,
		InitialDelay:   5 * time.Millisecond,
		MaxDelay:       20 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func testFetcher(maxAttempts int, cfg Config) *Fetcher {
	return NewWithResilience(&http.Client{}, cfg, fastRetryConfig(maxAttempts),
		circuitbreaker.DefaultConfig("fetcher-test"))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PerHostRPS = 1000
	cfg.PerHostBurst = 100
	return cfg
}

func TestFetch_Success(t *testing.T) {
	var gotUserAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ops memos</body></html>"))
	}))
	defer srv.Close()

	f := testFetcher(1, testConfig())

	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", page.StatusCode)
	}
	if page.Body != "<html><body>ops memos</body></html>" {
		t.Errorf("unexpected body: %q", page.Body)
	}
	if !strings.HasPrefix(page.ContentType, "text/html") {
		t.Errorf("ContentType = %q, want text/html", page.ContentType)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}

	ua, _ := gotUserAgent.Load().(string)
	if !strings.Contains(ua, "PolicyWatchBot") {
		t.Errorf("User-Agent = %q, want the monitor's descriptive agent", ua)
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := testFetcher(3, testConfig())

	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var httpErr *retry.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *retry.HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hit %d times, want 1 (404 is not retryable)", got)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := testFetcher(3, testConfig())

	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.Body != "recovered" {
		t.Errorf("body = %q, want %q", page.Body, "recovered")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestFetch_ExhaustedRetriesReturnLastError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := testFetcher(2, testConfig())

	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	var httpErr *retry.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *retry.HTTPError in chain, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", httpErr.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestFetch_BodySizeCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 1024
	f := testFetcher(1, cfg)

	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(page.Body) != 1024 {
		t.Errorf("body length = %d, want capped at 1024", len(page.Body))
	}
}

func TestFetch_RejectsInvalidURL(t *testing.T) {
	f := testFetcher(1, testConfig())

	_, err := f.Fetch(context.Background(), "ftp://example.gov/file")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "URL validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetch_PerHostRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.PerHostRPS = 20
	cfg.PerHostBurst = 1
	f := testFetcher(1, cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch %d returned error: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// Burst 1 at 20 rps: the second and third requests each wait ~50ms.
	if elapsed < 80*time.Millisecond {
		t.Errorf("3 requests took %v, expected rate limiting to slow them down", elapsed)
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	f := testFetcher(1, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Error("Fetch did not honor context deadline")
	}
}
