// Package retry wraps outbound calls with classified-error retries and
// bounded exponential backoff. Fatal errors surface immediately; retryable
// ones are reattempted until the budget runs out, at which point the last
// error is returned carrying the retries-exhausted marker.
package retry

import (
	"context"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
)

// Config controls the retry budget and backoff curve
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int
	// InitialDelay is the sleep before the first retry
	InitialDelay time.Duration
	// BackoffMultiplier scales the delay after each retry
	BackoffMultiplier float64
}

// DefaultConfig matches the provider-call defaults: up to 2 retries,
// starting at one second and doubling.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        2,
		InitialDelay:      1 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c Config) normalized() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 1 * time.Second
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 2.0
	}
	return c
}

// sleepFunc suspends the calling goroutine for the given delay, returning
// early with the context error on cancellation. Injected in tests.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Caller executes units of work under one retry policy
type Caller struct {
	config Config
	logger logging.Logger
	sleep  sleepFunc
}

// New creates a caller with the given policy
func New(config Config, logger logging.Logger) *Caller {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Caller{
		config: config.normalized(),
		logger: logger,
		sleep:  defaultSleep,
	}
}

// Do runs fn, retrying on retryable errors with exponential backoff. op names
// the operation in logs. Errors outside the taxonomy are wrapped as
// retryable upstream errors before classification. Only the sleep between
// attempts observes context cancellation; an attempt already in flight runs
// to completion and its result is discarded by the caller.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	delay := c.config.InitialDelay

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("operation succeeded after retry",
					logging.Field{"operation", op},
					logging.Field{"attempt", attempt + 1},
				)
			}
			return nil
		}

		appErr := errors.Classify(err)

		if !appErr.Retryable {
			c.logger.Warn("operation failed with fatal error",
				logging.Field{"operation", op},
				logging.Field{"error_type", string(appErr.Type)},
			)
			return appErr
		}

		if attempt >= c.config.MaxRetries {
			c.logger.Error("operation exhausted retries", appErr,
				logging.Field{"operation", op},
				logging.Field{"attempts", attempt + 1},
			)
			return appErr.WithCode(errors.CodeRetriesExhausted)
		}

		c.logger.Warn("operation failed, retrying",
			logging.Field{"operation", op},
			logging.Field{"attempt", attempt + 1},
			logging.Field{"delay", delay.String()},
		)

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return errors.InternalError("retry aborted by context", sleepErr).
				WithContext("operation", op)
		}

		delay = time.Duration(float64(delay) * c.config.BackoffMultiplier)
	}
}
