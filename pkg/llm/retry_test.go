package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUpToCeiling(t *testing.T) {
	p := RetryPolicy{
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
	}

	assert.Equal(t, time.Second, p.backoff(0))
	assert.Equal(t, 2*time.Second, p.backoff(1))
	assert.Equal(t, 4*time.Second, p.backoff(2))
	assert.Equal(t, 8*time.Second, p.backoff(3))
	assert.Equal(t, 8*time.Second, p.backoff(10))
	// Shift overflow clamps to the ceiling rather than going negative.
	assert.Equal(t, 8*time.Second, p.backoff(62))
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		rateLimit bool
	}{
		{"nil", nil, false, false},
		{"rate limit text", errors.New("429 Too Many Requests"), true, true},
		{"quota", errors.New("quota exceeded for project"), true, true},
		{"wrapped rate limit type", &RateLimitError{Err: errors.New("slow down")}, true, true},
		{"server error", errors.New("503 Service Unavailable"), true, false},
		{"network", errors.New("read: connection reset by peer"), true, false},
		{"per-call timeout", errors.New("context deadline exceeded"), true, false},
		{"auth", errors.New("API key not valid"), false, false},
		{"malformed", errors.New("invalid request payload"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryable(tt.err))
			assert.Equal(t, tt.rateLimit, rateLimited(tt.err))
		})
	}
}
