package reliability

import (
	"context"
	"errors"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsRetryableAgentCode classifies retryable agent-runtime error codes.
func IsRetryableAgentCode(code string) bool {
	switch code {
	case "timeout", "rate_limited", "resource_exhausted", "upstream_unavailable", "stream_read_failed":
		return true
	default:
		return false
	}
}

// IsTimeout reports whether err is a deadline expiry rather than a
// deliberate cancellation.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
