package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func testConfig() Config {
	return Config{
		Name:             "test",
		MaxRequests:      2,
		Interval:         time.Second,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig())

	if cb == nil {
		t.Fatal("New returned nil")
	}
	if cb.Name() != "test" {
		t.Errorf("expected name 'test', got %q", cb.Name())
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	cb := New(testConfig())

	result, err := cb.Execute(func() (interface{}, error) {
		return 42, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != 42 {
		t.Errorf("expected result 42, got %v", result)
	}
}

func TestCircuitBreaker_Execute_Error(t *testing.T) {
	cb := New(testConfig())
	testErr := errors.New("boom")

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected original error, got %v", err)
	}
	// A single failure must not trip the breaker (below MinRequests)
	if cb.IsOpen() {
		t.Error("breaker opened after a single failure")
	}
}

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := New(testConfig())
	testErr := errors.New("boom")

	// MinRequests=3 with FailureThreshold=0.5: three straight failures trip it
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}

	if !cb.IsOpen() {
		t.Fatalf("expected open state after repeated failures, got %v", cb.State())
	}

	// Calls while open fail fast with ErrOpenState
	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function should not run while breaker is open")
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := New(testConfig())
	testErr := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}
	if !cb.IsOpen() {
		t.Fatal("expected open state")
	}

	// Wait out the open timeout, then a success should start closing it
	time.Sleep(150 * time.Millisecond)

	_, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Errorf("expected half-open probe to succeed, got %v", err)
	}
	if cb.State() == gobreaker.StateOpen {
		t.Error("expected breaker to leave open state after successful probe")
	}
}

func TestCircuitBreaker_BelowMinRequestsStaysClosed(t *testing.T) {
	cfg := testConfig()
	cfg.MinRequests = 10
	cb := New(cfg)
	testErr := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
	}

	if cb.IsOpen() {
		t.Error("breaker opened below the minimum request count")
	}
}

func TestPageScrapeConfig(t *testing.T) {
	cfg := PageScrapeConfig()

	if cfg.Name != "page-scrape" {
		t.Errorf("expected name 'page-scrape', got %q", cfg.Name)
	}
	if cfg.Timeout != 3600*time.Second {
		t.Errorf("expected 1h open timeout, got %v", cfg.Timeout)
	}
	if cfg.FailureThreshold != 0.8 {
		t.Errorf("expected failure threshold 0.8, got %f", cfg.FailureThreshold)
	}
}

func TestFeedFetchConfig(t *testing.T) {
	cfg := FeedFetchConfig()

	if cfg.Name != "feed-fetch" {
		t.Errorf("expected name 'feed-fetch', got %q", cfg.Name)
	}
	if cfg.MinRequests != 10 {
		t.Errorf("expected MinRequests 10, got %d", cfg.MinRequests)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("widget")

	if cfg.Name != "widget" {
		t.Errorf("expected name 'widget', got %q", cfg.Name)
	}
	if cfg.FailureThreshold != 0.6 {
		t.Errorf("expected failure threshold 0.6, got %f", cfg.FailureThreshold)
	}
}
