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

// Package retry runs fallible stage operations under a backoff policy.
//
// Errors are classified with core.KindOf. Permanent errors surface
// immediately. Transient errors are retried with capped exponential backoff
// plus jitter until Policy.MaxAttempts is reached. Rate-limited errors wait at
// least the provider's advised delay and are bounded separately by
// Policy.RateLimitCeiling. When a budget runs out the last error is wrapped
// in a permanent ExhaustedRetries error.
//
// Tests can replace the wait with WithSleep to record delays without
// sleeping.
package retry
