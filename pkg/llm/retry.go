package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy is retry behavior as data: how many attempts, how backoff
// grows, and how long each attempt may run. It is passed into the client
// rather than hard-coded at call sites.
type RetryPolicy struct {
	MaxAttempts    int           // total attempts, including the first
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // backoff ceiling
	PerCallTimeout time.Duration // bound on each individual attempt
}

// DefaultRetryPolicy matches the provider call budget used in production:
// three attempts with 1s/2s/4s backoff and a 10s bound per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		PerCallTimeout: 10 * time.Second,
	}
}

// backoff returns the delay after the given zero-based attempt.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.InitialBackoff << attempt
	if delay > p.MaxBackoff || delay <= 0 {
		return p.MaxBackoff
	}
	return delay
}

// Error classification is substring-based because langchaingo providers do
// not expose typed errors for transient failures.
var (
	rateLimitPatterns = []string{"rate limit", "quota exceeded", "429", "resource exhausted"}
	transientPatterns = []string{
		"500", "502", "503", "504", "unavailable",
		"connection reset", "connection refused", "timeout", "temporary",
		"deadline exceeded",
	}
)

// rateLimited reports whether err is a rate-limit signal.
func rateLimited(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	return containsAny(err, rateLimitPatterns)
}

// retryable reports whether err is transient and should trigger a retry.
// Validation, auth and other malformed-request failures are terminal.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	return rateLimited(err) || containsAny(err, transientPatterns)
}

func containsAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// sleepBackoff waits for the policy delay after attempt, honoring ctx.
func (p RetryPolicy) sleepBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
