package models

import "time"

// RetryConfig controls the retry/backoff executor. Attempt numbering starts
// at 0; the total number of calls is MaxRetries+1.
type RetryConfig struct {
	MaxRetries        int           `json:"maxRetries"`
	BackoffMultiplier float64       `json:"backoffMultiplier"`
	InitialDelay      time.Duration `json:"initialDelay"`
	MaxDelay          time.Duration `json:"maxDelay"`
	// RateLimitDelay is added on top of the backoff when the classified
	// error kind is rate_limit.
	RateLimitDelay time.Duration `json:"rateLimitDelay"`
}

// DefaultRetryConfig returns the retry defaults used when a call site
// supplies nothing.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BackoffMultiplier: 2.0,
		InitialDelay:      1 * time.Second,
		MaxDelay:          10 * time.Second,
		RateLimitDelay:    2 * time.Second,
	}
}

// CallTimeout derives the per-call timeout from the retry envelope so a
// single attempt can never outlive the whole budget.
func (c RetryConfig) CallTimeout() time.Duration {
	if c.MaxDelay > 0 {
		return 3 * c.MaxDelay
	}
	return 30 * time.Second
}
