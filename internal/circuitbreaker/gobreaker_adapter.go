// Package circuitbreaker provides circuit breaker functionality using Sony's gobreaker
package circuitbreaker

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before transitioning to half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the number of requests allowed in half-open state
	MaxConcurrentRequests int
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// ProviderConfig is tuned for AI provider calls: trip fast and recover fast,
// since every request held behind an open circuit is a user-facing chat turn.
var ProviderConfig = Config{
	MaxFailures:           3,
	Timeout:               30 * time.Second,
	MaxConcurrentRequests: 2,
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the circuit breaker is closed and allowing requests through
	StateClosed State = iota
	// StateOpen means the circuit breaker is open and rejecting requests
	StateOpen
	// StateHalfOpen means the circuit breaker is testing if the service has recovered
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Stats returns statistics about the circuit breaker
type Stats struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
}

// GoBreakerAdapter wraps Sony's gobreaker to match our interface
type GoBreakerAdapter struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
}

// NewGoBreaker creates a new circuit breaker using Sony's gobreaker implementation
func NewGoBreaker(name string, config Config, logger logging.Logger) *GoBreakerAdapter {
	if err := config.Validate(); err != nil {
		if logger != nil {
			logger.Warn("Invalid circuit breaker config, using defaults",
				logging.Field{"error", err.Error()},
				logging.Field{"name", name},
			)
		}
		config = DefaultConfig()
	}

	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute, // Rolling window for statistics
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.Field{"breaker", name},
				logging.Field{"from", from.String()},
				logging.Field{"to", to.String()},
			)
		},
		IsSuccessful: isSuccessful,
	}

	return &GoBreakerAdapter{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// isSuccessful decides what counts against the breaker. Fatal upstream
// errors and client-side errors mean the request was wrong, not that the
// provider is unhealthy, so they do not trip the circuit.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}

	if appErr, ok := err.(*errors.AppError); ok {
		switch appErr.Type {
		case errors.ErrTypeValidation, errors.ErrTypeNotFound, errors.ErrTypeAuth:
			return true
		case errors.ErrTypeUpstream:
			return !appErr.Retryable
		}
	}

	return false
}

// Execute runs the given function within the circuit breaker
func (g *GoBreakerAdapter) Execute(ctx context.Context, fn func() error) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err == gobreaker.ErrOpenState {
		return errors.UpstreamError(fmt.Sprintf("circuit breaker '%s' is open", g.name), false, err)
	}
	if err == gobreaker.ErrTooManyRequests {
		return errors.UpstreamError(fmt.Sprintf("circuit breaker '%s' has too many requests", g.name), false, err)
	}

	return err
}

// State returns the current state of the circuit breaker
func (g *GoBreakerAdapter) State() State {
	switch g.breaker.State() {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Stats returns current statistics
func (g *GoBreakerAdapter) Stats() Stats {
	counts := g.breaker.Counts()

	return Stats{
		Name:      g.name,
		State:     g.State().String(),
		Failures:  int(counts.TotalFailures),
		Successes: int(counts.TotalSuccesses),
	}
}

// IsOpen returns true if the circuit breaker is open
func (g *GoBreakerAdapter) IsOpen() bool {
	return g.breaker.State() == gobreaker.StateOpen
}
