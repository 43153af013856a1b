package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, Interval: 100 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, time.Duration(0), policy.Delay(0))
	assert.Equal(t, 100*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 400*time.Millisecond, policy.Delay(3))

	flat := RetryPolicy{Interval: time.Second}
	assert.Equal(t, time.Second, flat.Delay(3))

	def := DefaultRetryPolicy()
	assert.Equal(t, 3, def.MaxAttempts)
	assert.Equal(t, 2*time.Second, def.Delay(2))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{StatusCode: http.StatusBadGateway}, true},
		{"too many requests", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"client error", &StatusError{StatusCode: http.StatusBadRequest}, false},
		{"wrapped status", fmt.Errorf("send: %w", &StatusError{StatusCode: http.StatusServiceUnavailable}), true},
		{"cancelled", fmt.Errorf("failed to send request: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
		{"invalid argument", stream.ErrInvalidArgument, false},
		{"single-use body", fmt.Errorf("failed to open body: %w", stream.ErrUnsupported), false},
		{"connection", io.ErrUnexpectedEOF, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

// flakyServer fails the first failures requests with status
func flakyServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if calls.Add(1) <= failures {
			http.Error(w, "try later", status)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestSendWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Interval: time.Millisecond, Multiplier: 2}
	client := NewHTTPSClient(nil)

	t.Run("recovers", func(t *testing.T) {
		ts, calls := flakyServer(t, 2, http.StatusServiceUnavailable)
		var opens atomic.Int32

		response, err := client.SendWithRetry(context.Background(), ts.URL, countingFactory("payload", &opens), "text/plain", policy)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(response))
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, int32(3), opens.Load())
	})

	t.Run("gives up", func(t *testing.T) {
		ts, calls := flakyServer(t, 10, http.StatusInternalServerError)
		var opens atomic.Int32

		_, err := client.SendWithRetry(context.Background(), ts.URL, countingFactory("payload", &opens), "text/plain", policy)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.ErrorContains(t, err, "failed after 3 attempts")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client error is final", func(t *testing.T) {
		ts, calls := flakyServer(t, 10, http.StatusBadRequest)
		var opens atomic.Int32

		_, err := client.SendWithRetry(context.Background(), ts.URL, countingFactory("payload", &opens), "text/plain", policy)
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("single attempt", func(t *testing.T) {
		ts, calls := flakyServer(t, 10, http.StatusServiceUnavailable)
		var opens atomic.Int32

		_, err := client.SendWithRetry(context.Background(), ts.URL, countingFactory("payload", &opens), "text/plain", RetryPolicy{})
		assert.Error(t, err)
		assert.NotContains(t, err.Error(), "attempts")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("context cancelled while waiting", func(t *testing.T) {
		ts, _ := flakyServer(t, 10, http.StatusServiceUnavailable)
		var opens atomic.Int32
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		slow := RetryPolicy{MaxAttempts: 5, Interval: time.Hour}
		_, err := client.SendWithRetry(ctx, ts.URL, countingFactory("payload", &opens), "text/plain", slow)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int32(1), opens.Load())
	})
}
