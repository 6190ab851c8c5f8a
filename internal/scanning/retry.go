package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// RetryConfig controls how provider calls are retried
type RetryConfig struct {
	// Attempts is the total number of calls, including the first
	Attempts int
	// BaseDelay is multiplied by the attempt number between calls
	BaseDelay time.Duration
	// Timeout bounds each individual call
	Timeout time.Duration
}

// DefaultRetryConfig is 3 attempts, 1s/2s backoff and a 30s call timeout
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: time.Second,
		Timeout:   30 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// statusError is a non-2xx reply from a plain HTTP provider
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// isRetryable reports whether a failed call may succeed if repeated:
// rate limits, server errors, timeouts and transport failures.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var sErr *statusError
	if errors.As(err, &sErr) {
		return retryableStatus(sErr.Code)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// withRetry runs call until it succeeds, fails with a non-retryable error or
// runs out of attempts. Each call gets its own timeout.
func withRetry(ctx context.Context, cfg RetryConfig, name string, call func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err = call(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		if !isRetryable(err) || attempt == cfg.Attempts {
			break
		}

		delay := time.Duration(attempt) * cfg.BaseDelay
		slog.Warn("OCR call failed, retrying", "provider", name, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting to retry %s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}
