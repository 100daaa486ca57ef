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
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// Policy describes how a stage operation is retried.
type Policy struct {
	MaxAttempts      int              // Total attempts for transient failures, including the first
	BaseDelay        time.Duration    // Delay before the second attempt
	Multiplier       float64          // Growth factor per attempt; values < 1 are treated as 1
	MaxDelay         time.Duration    // Upper bound for computed delays, 0 means unbounded
	Jitter           float64          // Random extra delay as a fraction of the computed delay
	RateLimitCeiling int              // Rate-limited waits allowed before giving up
	Timeout          time.Duration    // Per-attempt deadline, 0 means none
	Retryable        []core.ErrorKind // Kinds that may be retried; nil means transient and rate limited
}

// DefaultPolicy returns the policy used for stages without an explicit one.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		BaseDelay:        500 * time.Millisecond,
		Multiplier:       2,
		MaxDelay:         30 * time.Second,
		Jitter:           0.2,
		RateLimitCeiling: 5,
		Timeout:          2 * time.Minute,
	}
}

// NoRetry returns a policy that makes exactly one attempt.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1, Retryable: []core.ErrorKind{}}
}

// Validate checks the policy for nonsensical values.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.Timeout < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidDelay)
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		return fmt.Errorf("%w: base delay %v exceeds max delay %v", ErrInvalidDelay, p.BaseDelay, p.MaxDelay)
	}
	if p.Jitter < 0 || p.RateLimitCeiling < 0 {
		return fmt.Errorf("%w: negative jitter or ceiling", ErrInvalidDelay)
	}
	return nil
}

// Delay returns the backoff before attempt n+1 after n failures, without
// jitter: min(BaseDelay * Multiplier^(n-1), MaxDelay).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Retries reports whether errors of kind may be retried under p.
func (p Policy) Retries(kind core.ErrorKind) bool {
	if p.Retryable == nil {
		return kind == core.KindTransient || kind == core.KindRateLimited
	}
	return slices.Contains(p.Retryable, kind)
}
