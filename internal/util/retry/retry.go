// Package retry provides bounded retry with exponential backoff for
// transient failures, such as Helm repo updates and key vault availability
// checks right after creation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry behaviour. Zero values are replaced with defaults by Do.
type Config struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Option customises retry behaviour.
type Option func(*Config)

// Attempts sets the total number of attempts (not retries).
func Attempts(n int) Option {
	return func(c *Config) { c.Attempts = n }
}

// InitialDelay sets the delay before the second attempt.
func InitialDelay(d time.Duration) Option {
	return func(c *Config) { c.InitialDelay = d }
}

// MaxDelay caps the backoff delay.
func MaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// Multiplier sets the backoff growth factor.
func Multiplier(m float64) Option {
	return func(c *Config) { c.Multiplier = m }
}

// Do runs op until it succeeds, returns a permanent error, the attempt budget
// is exhausted, or ctx is cancelled.
func Do(ctx context.Context, op func() error, opts ...Option) error {
	cfg := &Config{
		Attempts:     5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return fmt.Errorf("permanent error on attempt %d: %w", attempt, lastErr)
		}
		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.Attempts, lastErr)
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
