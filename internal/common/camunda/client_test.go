// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"obsp-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{errors.New("rpc error: code = Unavailable desc = connection refused"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("rpc error: code = PermissionDenied"), false},
		{errors.New("invalid gateway address"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.retryable, isRetryableZeebeError(tt.err), tt.err.Error())
	}
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	rc := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(rc, 0))
	assert.Equal(t, 4*time.Second, backoff(rc, 2))
	assert.Equal(t, 5*time.Second, backoff(rc, 3))
	assert.Equal(t, 5*time.Second, backoff(rc, 70))
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	c := &Client{
		config: &ClientConfig{RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}},
		logger: logger.NewTestLogger(t),
	}

	calls := 0
	err := c.retry(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return errors.New("permission denied")
	})

	assert.EqualError(t, err, "permission denied")
	assert.Equal(t, 3, calls)
}

func TestRetry_HonoursContext(t *testing.T) {
	c := &Client{
		config: &ClientConfig{RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}},
		logger: logger.NewNoOpLogger(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.retry(ctx, "op", func(context.Context) error { return errors.New("unavailable") })
	assert.ErrorIs(t, err, context.Canceled)
}
