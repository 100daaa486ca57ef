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

package openai

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
)

// statusPattern finds an HTTP status code in client error messages such as
// "API returned unexpected status code: 429".
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// classifyLLMError maps a langchaingo client error onto the capability error
// shapes. The client reports HTTP failures only as text.
func classifyLLMError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code, 0, err)
	}
	if strings.Contains(msg, "rate limit") {
		return &capability.RetryAfterError{Err: err}
	}
	return err
}

// classifyStatus maps an HTTP status onto the capability error shapes.
func classifyStatus(code int, retryAfter time.Duration, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return &capability.RetryAfterError{After: retryAfter, Err: err}
	case code == http.StatusRequestTimeout:
		return err
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: %w", capability.ErrPermanent, err)
	}
	return err
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
