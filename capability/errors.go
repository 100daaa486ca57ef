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

package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

var (
	// ErrPermanent marks failures that retrying cannot fix, such as
	// unsupported media or rejected credentials.
	ErrPermanent = errors.New("permanent capability failure")

	// ErrUnavailable indicates no service is configured for a capability.
	ErrUnavailable = errors.New("capability unavailable")
)

// RetryAfterError reports that the provider is rate limiting. After is the
// provider's advised delay, zero if it gave none.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited (retry after %v): %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// Permanentf returns an error wrapping ErrPermanent.
func Permanentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}

// Classify converts a service error into a core stage error. Context
// cancellation is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *core.StageError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var rae *RetryAfterError
	if errors.As(err, &rae) {
		return core.RateLimited(core.CodeExtraction, err, rae.After)
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrUnavailable) {
		return core.Permanent(core.CodeExtraction, err)
	}
	return core.Transient(core.CodeExtraction, err)
}
