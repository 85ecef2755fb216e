// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers and retry logic to keep the
// monitoring worker healthy when agency sites misbehave.
//
// The package supports:
//   - Circuit breakers for outbound HTTP calls (page scrapes, RSS feed fetches)
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.PageScrapeConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchPage()
//	})
//
//	retryConfig := retry.PageScrapeConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
