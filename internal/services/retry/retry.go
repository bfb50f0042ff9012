// Package retry implements the exponential-backoff executor that wraps
// every downstream provider call. Failures are classified before the retry
// verdict; non-retryable kinds surface immediately with the original error.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// SleepFunc waits for the given duration or until the context is done.
// Injectable so tests run without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Operation is one attempt of the wrapped call
type Operation func(ctx context.Context) error

// Executor retries operations per a RetryConfig
type Executor struct {
	cfg    models.RetryConfig
	sleep  SleepFunc
	jitter func() float64
}

// Option customizes an Executor
type Option func(*Executor)

// WithSleep overrides the sleep function
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithJitter overrides the jitter source (returns a value in [0, 1))
func WithJitter(jitter func() float64) Option {
	return func(e *Executor) { e.jitter = jitter }
}

// New creates an Executor with the given config
func New(cfg models.RetryConfig, opts ...Option) *Executor {
	e := &Executor{
		cfg:    cfg,
		sleep:  contextSleep,
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefault creates an Executor with the default config
func NewDefault(opts ...Option) *Executor {
	return New(models.DefaultRetryConfig(), opts...)
}

// Config returns the executor's retry configuration
func (e *Executor) Config() models.RetryConfig {
	return e.cfg
}

// Do executes op, retrying classified-retryable failures with exponential
// backoff and jitter. The total number of calls is MaxRetries+1. Each
// attempt runs under a timeout derived from the retry envelope.
func (e *Executor) Do(ctx context.Context, name, requestID string, op Operation) error {
	var lastErr *models.AppError

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout())
		err := op(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 0 {
				fiberlog.Infof("[%s] Retry: %s succeeded on attempt %d", requestID, name, attempt)
			}
			return nil
		}

		lastErr = models.ClassifyError(err)

		if !lastErr.IsRetryable() {
			fiberlog.Debugf("[%s] Retry: %s failed with terminal %s error, not retrying", requestID, name, lastErr.Type)
			return lastErr
		}

		if attempt == e.cfg.MaxRetries {
			break
		}

		delay := e.backoffDelay(attempt, lastErr.Type)
		metrics.RetryAttempts.WithLabelValues(string(lastErr.Type)).Inc()
		fiberlog.Warnf("[%s] Retry: %s attempt %d failed (%s), retrying in %v: %v",
			requestID, name, attempt, lastErr.Type, delay, err)

		if err := e.sleep(ctx, delay); err != nil {
			return models.ClassifyError(err)
		}
	}

	fiberlog.Errorf("[%s] Retry: %s exhausted %d attempts: %v", requestID, name, e.cfg.MaxRetries+1, lastErr)
	return lastErr
}

// backoffDelay computes min(initial * multiplier^attempt + jitter, max),
// plus the fixed rate-limit surcharge when applicable.
func (e *Executor) backoffDelay(attempt int, errType models.ErrorType) time.Duration {
	base := float64(e.cfg.InitialDelay) * math.Pow(e.cfg.BackoffMultiplier, float64(attempt))
	jittered := base + e.jitter()*float64(e.cfg.InitialDelay)

	delay := time.Duration(jittered)
	if delay > e.cfg.MaxDelay {
		delay = e.cfg.MaxDelay
	}

	if errType == models.ErrorTypeRateLimit {
		delay += e.cfg.RateLimitDelay
	}
	return delay
}

// contextSleep is the default SleepFunc; it honors cancellation
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoValue runs op through exec and returns its value alongside the
// classified error.
func DoValue[T any](ctx context.Context, exec *Executor, name, requestID string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := exec.Do(ctx, name, requestID, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
