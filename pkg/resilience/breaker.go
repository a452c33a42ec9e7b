package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned for calls rejected by an open breaker. Callers
// match it with errors.Is to tell shed load apart from downstream failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes when a breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and errors.
	Name string
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed (0 keeps them forever).
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
	// FailureRatioThreshold trips the breaker once the failure ratio reaches
	// this value and at least MinRequestsToTrip requests have been observed.
	FailureRatioThreshold float64
	MinRequestsToTrip     uint32
}

// DefaultCircuitBreakerConfig returns the defaults used for outbound calls.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		MaxRequests:           3,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

// CircuitBreaker wraps gobreaker with logging and a stable sentinel error.
type CircuitBreaker struct {
	inner  *gobreaker.CircuitBreaker
	name   string
	logger *slog.Logger
}

// NewCircuitBreaker builds a breaker from config. State transitions log at warn.
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		inner: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        config.Name,
			MaxRequests: config.MaxRequests,
			Interval:    config.Interval,
			Timeout:     config.Timeout,
			ReadyToTrip: readyToTrip(config),
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
		name:   config.Name,
		logger: logger,
	}
}

func readyToTrip(config *CircuitBreakerConfig) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= config.FailureThreshold {
			return true
		}
		if counts.Requests < config.MinRequestsToTrip {
			return false
		}
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return ratio >= config.FailureRatioThreshold
	}
}

// Execute runs fn through the breaker. Rejections in open or half-open state
// come back wrapping ErrCircuitOpen; other errors pass through unchanged.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.inner.Execute(fn)
	switch err {
	case gobreaker.ErrOpenState:
		c.logger.Warn("Circuit breaker is open", "name", c.name)
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
	case gobreaker.ErrTooManyRequests:
		c.logger.Warn("Circuit breaker rejected half-open probe", "name", c.name)
		return nil, fmt.Errorf("%w: too many requests for %s", ErrCircuitOpen, c.name)
	}
	return result, err
}

// State reports the breaker's current state.
func (c *CircuitBreaker) State() gobreaker.State {
	return c.inner.State()
}
