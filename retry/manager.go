// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// Outcome reports how an operation ran.
type Outcome struct {
	Attempts    int           // Calls made to the operation
	RateLimited int           // Rate-limited responses absorbed
	Waited      time.Duration // Total time spent sleeping between attempts
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Manager executes operations under a Policy.
type Manager struct {
	logger *slog.Logger
	sleep  SleepFunc
	rand   func() float64
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(m *Manager) error {
		if sleep == nil {
			return fmt.Errorf("sleep cannot be nil")
		}
		m.sleep = sleep
		return nil
	}
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(m *Manager) error {
		if fn == nil {
			return fmt.Errorf("rand cannot be nil")
		}
		m.rand = fn
		return nil
	}
}

// NewManager creates a retry manager.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		logger: slog.Default(),
		sleep:  Sleep,
		rand:   rand.Float64,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "retry")
	return m, nil
}

// Sleep waits for d with context awareness.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy's budget runs out. Each attempt gets its own deadline when
// policy.Timeout is set. Transient failures count against MaxAttempts;
// rate-limited failures count only against RateLimitCeiling and wait at least
// the provider's advised delay. An exhausted budget returns a permanent
// core.CodeExhaustedRetries error wrapping the last failure.
func (m *Manager) Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) (Outcome, error) {
	var out Outcome
	if err := policy.Validate(); err != nil {
		return out, err
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		out.Attempts++
		err := m.attempt(ctx, policy, op)
		if err == nil {
			if out.Attempts > 1 {
				m.logger.Debug("operation succeeded after retry", "attempt", out.Attempts)
			}
			return out, nil
		}
		if ctx.Err() != nil {
			// Parent cancellation is not a stage failure
			return out, ctx.Err()
		}

		kind := core.KindOf(err)
		if !policy.Retries(kind) {
			return out, err
		}

		var delay time.Duration
		if kind == core.KindRateLimited {
			out.RateLimited++
			if out.RateLimited > policy.RateLimitCeiling {
				return out, exhausted(err, out.Attempts)
			}
			delay = max(core.RetryAfterOf(err), policy.Delay(failures+1))
		} else {
			failures++
			if failures >= policy.MaxAttempts {
				return out, exhausted(err, out.Attempts)
			}
			delay = m.jitter(policy, policy.Delay(failures))
		}

		m.logger.Debug("operation failed, will retry",
			"attempt", out.Attempts,
			"maxAttempts", policy.MaxAttempts,
			"kind", kind,
			"delay", delay,
			"error", err)

		if err := m.sleep(ctx, delay); err != nil {
			return out, err
		}
		out.Waited += delay
	}
}

func (m *Manager) attempt(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		// The attempt ran out of time; whatever op returned, it is retryable
		var se *core.StageError
		if errors.As(err, &se) && se.Kind == core.KindPermanent {
			return &core.StageError{Code: se.Code, Kind: core.KindTransient, Err: err}
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("attempt timed out after %v: %w: %w", policy.Timeout, context.DeadlineExceeded, err)
		}
	}
	return err
}

func (m *Manager) jitter(policy Policy, d time.Duration) time.Duration {
	if policy.Jitter <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(m.rand()*policy.Jitter*float64(d))
}

func exhausted(last error, attempts int) error {
	return core.Permanent(core.CodeExhaustedRetries, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last))
}
