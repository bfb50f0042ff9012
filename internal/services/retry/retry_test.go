package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() models.RetryConfig {
	return models.RetryConfig{
		MaxRetries:        3,
		BackoffMultiplier: 2.0,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		RateLimitDelay:    2 * time.Second,
	}
}

// sleepRecorder captures requested delays without actually sleeping
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func noJitter() float64 { return 0 }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	calls := 0
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	calls := 0
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 503}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2)
}

func TestDoExhaustsRetries(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	calls := 0
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		calls++
		return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 502}
	})

	require.Error(t, err)
	// MaxRetries=3 means 4 total calls and 3 sleeps
	assert.Equal(t, 4, calls)
	assert.Len(t, rec.delays, 3)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrorTypeExternalAPI, appErr.Type)
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	calls := 0
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		calls++
		return models.NewValidationError("bad input", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoPreservesOriginalError(t *testing.T) {
	exec := New(testConfig(), WithSleep((&sleepRecorder{}).sleep), WithJitter(noJitter))

	original := &models.HTTPStatusError{Provider: "serpapi", StatusCode: 404, Body: "no results"}
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		return original
	})

	require.Error(t, err)
	var statusErr *models.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Same(t, original, statusErr)
}

func TestBackoffDelayGrowsExponentially(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 500}
	})
	require.Error(t, err)

	// With zero jitter: 100ms, 200ms, 400ms
	require.Len(t, rec.delays, 3)
	assert.Equal(t, 100*time.Millisecond, rec.delays[0])
	assert.Equal(t, 200*time.Millisecond, rec.delays[1])
	assert.Equal(t, 400*time.Millisecond, rec.delays[2])
}

func TestBackoffDelayCappedAtMax(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 6
	rec := &sleepRecorder{}
	exec := New(cfg, WithSleep(rec.sleep), WithJitter(noJitter))

	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 500}
	})
	require.Error(t, err)

	require.Len(t, rec.delays, 6)
	// 100ms * 2^5 = 3.2s, capped at 1s
	assert.Equal(t, 1*time.Second, rec.delays[5])
}

func TestRateLimitAddsSurcharge(t *testing.T) {
	rec := &sleepRecorder{}
	exec := New(testConfig(), WithSleep(rec.sleep), WithJitter(noJitter))

	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 429}
	})
	require.Error(t, err)

	// Surcharge is added after the cap: 100ms + 2s for the first delay
	require.NotEmpty(t, rec.delays)
	assert.Equal(t, 100*time.Millisecond+2*time.Second, rec.delays[0])
}

func TestDoStopsOnContextCancel(t *testing.T) {
	exec := New(testConfig(), WithJitter(noJitter), WithSleep(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}))

	calls := 0
	err := exec.Do(context.Background(), "op", "req_test", func(ctx context.Context) error {
		calls++
		return &models.HTTPStatusError{Provider: "serpapi", StatusCode: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValueReturnsResult(t *testing.T) {
	exec := New(testConfig(), WithSleep((&sleepRecorder{}).sleep), WithJitter(noJitter))

	calls := 0
	got, err := DoValue(context.Background(), exec, "op", "req_test", func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, &models.HTTPStatusError{Provider: "serpapi", StatusCode: 503}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := models.DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, 1*time.Second, cfg.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2*time.Second, cfg.RateLimitDelay)
}
