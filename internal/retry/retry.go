// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry wraps external calls (search providers, the LLM judge) with
// classified retry and exponential backoff. Rate-limited failures back off
// geometrically with jitter under the full attempt budget; timeouts and
// transport failures get a smaller budget; everything else fails fast.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/pdiddy/research-triage/pkg/types"
)

// Class buckets an error by how the invoker should respond to it.
type Class int

const (
	// ClassPermanent errors are never retried.
	ClassPermanent Class = iota

	// ClassRateLimit errors retry under the full MaxAttempts budget.
	ClassRateLimit

	// ClassTransient errors (timeout, transport) retry under the smaller
	// TransientAttempts budget.
	ClassTransient
)

// rateLimitError marks an error as a provider rate limit.
type rateLimitError struct{ err error }

func (e *rateLimitError) Error() string { return e.err.Error() }
func (e *rateLimitError) Unwrap() error { return e.err }

// transientError marks an error as a transient transport failure.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// RateLimited wraps err so Classify reports ClassRateLimit.
func RateLimited(err error) error {
	if err == nil {
		return nil
	}
	return &rateLimitError{err: err}
}

// Transient wraps err so Classify reports ClassTransient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Classify reports the retry class of err. Explicit markers win; otherwise
// network timeouts are transient and anything else is permanent. Context
// cancellation is always permanent.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	var rl *rateLimitError
	if errors.As(err, &rl) {
		return ClassRateLimit
	}
	var tr *transientError
	if errors.As(err, &tr) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	return ClassPermanent
}

// Policy holds the backoff parameters for one call site.
type Policy struct {
	// MaxAttempts bounds total attempts for rate-limited failures.
	MaxAttempts int

	// TransientAttempts bounds total attempts for transient failures.
	TransientAttempts int

	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration

	// Factor is the multiplicative growth per subsequent attempt.
	Factor float64

	// Jitter adds a random fraction in [0, Jitter] of the computed delay.
	Jitter float64
}

// DefaultPolicy mirrors the empirically tuned defaults: five attempts for
// rate limits, two for transport blips, 2s base delay doubling per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       5,
		TransientAttempts: 2,
		BaseDelay:         2 * time.Second,
		Factor:            2.0,
		Jitter:            0.2,
	}
}

// PolicyFromConfig builds a Policy from configuration, filling unset fields
// with defaults.
func PolicyFromConfig(cfg types.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.TransientAttempts > 0 {
		p.TransientAttempts = cfg.TransientAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.Factor > 0 {
		p.Factor = cfg.Factor
	}
	if cfg.Jitter > 0 {
		p.Jitter = cfg.Jitter
	}
	return p
}

// delay computes the backoff before attempt n (0-based failures so far).
func (p Policy) delay(n int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n))
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// budget returns the attempt budget for the given error class.
func (p Policy) budget(c Class) int {
	switch c {
	case ClassRateLimit:
		return p.MaxAttempts
	case ClassTransient:
		return p.TransientAttempts
	default:
		return 1
	}
}

// Do invokes fn until it succeeds, its class budget is exhausted, or the
// context is cancelled. The last error is surfaced on exhaustion, wrapped
// with the attempt count.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		class := Classify(err)
		if attempt+1 >= p.budget(class) {
			if attempt == 0 {
				return zero, lastErr
			}
			return zero, fmt.Errorf("after %d attempts: %w", attempt+1, lastErr)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
}
