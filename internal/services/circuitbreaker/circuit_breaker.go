// Package circuitbreaker guards each downstream provider with a
// Redis-backed breaker so one melting provider does not keep burning the
// retry budget of every request. State is shared across instances.
package circuitbreaker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Config tunes a breaker
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultConfig returns the per-provider breaker defaults
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

const (
	keyPrefix          = "breaker:"
	stateKey           = "state"
	failureCountKey    = "failures"
	successCountKey    = "successes"
	lastFailureTimeKey = "last_failure"
	opTimeout          = 1 * time.Second
)

// successScript resets failures and, in HalfOpen, counts successes toward
// closing the circuit.
// KEYS: state, failures, successes  ARGV: success threshold
var successScript = redis.NewScript(`
	local state = tonumber(redis.call('GET', KEYS[1]) or '0')
	redis.call('SET', KEYS[2], 0)
	if state == 2 then
		local count = redis.call('INCR', KEYS[3])
		if count >= tonumber(ARGV[1]) then
			redis.call('SET', KEYS[1], 0)
			redis.call('SET', KEYS[3], 0)
			return 1
		end
	end
	return 0
`)

// failureScript counts failures and opens the circuit when the threshold is
// crossed (or immediately on a HalfOpen failure).
// KEYS: state, failures, successes, last_failure  ARGV: failure threshold, now
var failureScript = redis.NewScript(`
	local state = tonumber(redis.call('GET', KEYS[1]) or '0')
	local failures = redis.call('INCR', KEYS[2])
	redis.call('SET', KEYS[4], ARGV[2])
	if (state == 0 and failures >= tonumber(ARGV[1])) or state == 2 then
		redis.call('SET', KEYS[1], 1)
		redis.call('SET', KEYS[3], 0)
		return 1
	end
	return 0
`)

// CircuitBreaker is one provider's breaker. A nil breaker is valid and
// always allows execution (Redis not configured).
type CircuitBreaker struct {
	client   *redis.Client
	provider string
	cfg      Config
	prefix   string
}

// NewForProvider creates a breaker for a named provider. Returns nil when
// Redis is not configured, which disables breaking for that provider.
func NewForProvider(client *redis.Client, provider string) *CircuitBreaker {
	if client == nil {
		return nil
	}
	return &CircuitBreaker{
		client:   client,
		provider: provider,
		cfg:      DefaultConfig(),
		prefix:   keyPrefix + provider + ":",
	}
}

// CanExecute reports whether a call to the provider may proceed. Redis
// trouble fails open: the breaker never blocks traffic it cannot reason
// about.
func (cb *CircuitBreaker) CanExecute() bool {
	if cb == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state, err := cb.getState(ctx)
	if err != nil {
		fiberlog.Warnf("CircuitBreaker: %s state unavailable, allowing execution: %v", cb.provider, err)
		return true
	}

	switch state {
	case Closed, HalfOpen:
		return true
	case Open:
		lastFailure, err := cb.client.Get(ctx, cb.prefix+lastFailureTimeKey).Int64()
		if err != nil {
			return false
		}
		if time.Since(time.Unix(lastFailure, 0)) > cb.cfg.OpenTimeout {
			cb.setState(ctx, HalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess notes a successful provider call
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys := []string{cb.prefix + stateKey, cb.prefix + failureCountKey, cb.prefix + successCountKey}
	closed, err := successScript.Run(ctx, cb.client, keys, cb.cfg.SuccessThreshold).Int()
	if err != nil {
		fiberlog.Warnf("CircuitBreaker: %s failed to record success: %v", cb.provider, err)
		return
	}
	if closed == 1 {
		fiberlog.Infof("CircuitBreaker: %s closed after recovery", cb.provider)
	}
}

// RecordFailure notes a failed provider call
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys := []string{
		cb.prefix + stateKey,
		cb.prefix + failureCountKey,
		cb.prefix + successCountKey,
		cb.prefix + lastFailureTimeKey,
	}
	opened, err := failureScript.Run(ctx, cb.client, keys, cb.cfg.FailureThreshold, time.Now().Unix()).Int()
	if err != nil {
		fiberlog.Warnf("CircuitBreaker: %s failed to record failure: %v", cb.provider, err)
		return
	}
	if opened == 1 {
		fiberlog.Warnf("CircuitBreaker: %s opened", cb.provider)
	}
}

// GetState returns the current breaker state, defaulting to Closed when
// the state cannot be read.
func (cb *CircuitBreaker) GetState() State {
	if cb == nil {
		return Closed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state, err := cb.getState(ctx)
	if err != nil {
		return Closed
	}
	return state
}

// Reset forces the breaker back to Closed
func (cb *CircuitBreaker) Reset() {
	if cb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := cb.client.Pipeline()
	pipe.Set(ctx, cb.prefix+stateKey, int(Closed), 0)
	pipe.Set(ctx, cb.prefix+failureCountKey, 0, 0)
	pipe.Set(ctx, cb.prefix+successCountKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		fiberlog.Warnf("CircuitBreaker: %s reset failed: %v", cb.provider, err)
	}
}

func (cb *CircuitBreaker) getState(ctx context.Context) (State, error) {
	raw, err := cb.client.Get(ctx, cb.prefix+stateKey).Result()
	if err == redis.Nil {
		return Closed, nil
	}
	if err != nil {
		return Closed, err
	}

	stateInt, err := strconv.Atoi(raw)
	if err != nil {
		return Closed, fmt.Errorf("invalid state value %q: %w", raw, err)
	}
	return State(stateInt), nil
}

func (cb *CircuitBreaker) setState(ctx context.Context, s State) {
	if err := cb.client.Set(ctx, cb.prefix+stateKey, int(s), 0).Err(); err != nil {
		fiberlog.Warnf("CircuitBreaker: %s transition to %s failed: %v", cb.provider, s, err)
		return
	}
	fiberlog.Debugf("CircuitBreaker: %s transitioned to %s", cb.provider, s)
}
