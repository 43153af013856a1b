package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// RetryPolicy controls SendWithRetry
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts; values below 1 mean one attempt
	MaxAttempts int
	Interval    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns three attempts with exponential backoff starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Interval:    time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait before the attempt following attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	return time.Duration(float64(p.Interval) * math.Pow(multiplier, float64(attempt-1)))
}

// Retryable reports whether a failed Send may succeed when repeated.
// Server errors, 429 and transport failures are retryable. Client errors,
// context cancellation and bodies that cannot be reopened are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, stream.ErrInvalidArgument) || errors.Is(err, stream.ErrUnsupported) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// SendWithRetry sends body like Send and repeats retryable failures
// according to policy. Each attempt opens a fresh stream of body.
func (c *HTTPSClient) SendWithRetry(ctx context.Context, endpoint string, body stream.Factory, contentType string, policy RetryPolicy) ([]byte, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		response, err := c.Send(ctx, endpoint, body, contentType)
		if err == nil {
			return response, nil
		}
		if attempt >= maxAttempts || !Retryable(err) {
			if attempt > 1 {
				return nil, fmt.Errorf("failed after %d attempts: %w", attempt, err)
			}
			return nil, err
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
}
