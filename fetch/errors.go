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

package fetch

import (
	"errors"
	"fmt"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

var (
	// ErrUnsupportedScheme indicates no fetcher handles the reference scheme.
	ErrUnsupportedScheme = errors.New("unsupported payload reference scheme")

	// ErrNotFound indicates the referenced object does not exist.
	ErrNotFound = errors.New("payload reference not found")

	// ErrForbidden indicates access to the referenced object was denied.
	ErrForbidden = errors.New("payload reference access denied")

	// ErrInvalidRef indicates the reference could not be parsed.
	ErrInvalidRef = errors.New("invalid payload reference")
)

func unavailable(err error) error {
	return core.Permanent(core.CodeSourceUnavailable, err)
}

func transient(err error) error {
	return core.Transient(core.CodeSourceUnavailable, err)
}

func rateLimited(err error, after time.Duration) error {
	return core.RateLimited(core.CodeSourceUnavailable, err, after)
}

func oversized(ref string, limit int64) error {
	return core.Permanent(core.CodeValidation, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrOversized, ref, limit))
}
