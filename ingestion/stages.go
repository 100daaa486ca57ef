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

package ingestion

import (
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/retry"
)

// Stage names a retryable unit of work.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageValidate  Stage = "validate"
	StageExtract   Stage = "extract"
	StageTranslate Stage = "translate"
	StageNormalize Stage = "normalize"
	StageDedup     Stage = "dedup"
	StageStore     Stage = "store"
)

// fallbackCode is the error code reported for unclassified stage failures.
func (s Stage) fallbackCode() core.ErrorCode {
	switch s {
	case StageFetch:
		return core.CodeSourceUnavailable
	case StageValidate:
		return core.CodeValidation
	case StageExtract, StageTranslate:
		return core.CodeExtraction
	case StageNormalize:
		return core.CodeNormalization
	case StageDedup:
		return core.CodeDedup
	default:
		return core.CodeStorage
	}
}

// DefaultStagePolicies returns the retry policy of every stage.
func DefaultStagePolicies() map[Stage]retry.Policy {
	extract := retry.DefaultPolicy()
	extract.Timeout = 10 * time.Minute

	dedup := retry.DefaultPolicy()
	dedup.MaxAttempts = 6
	dedup.BaseDelay = 200 * time.Millisecond
	dedup.MaxDelay = 5 * time.Second
	dedup.Timeout = 30 * time.Second

	store := retry.DefaultPolicy()
	store.MaxAttempts = 5
	store.BaseDelay = 100 * time.Millisecond
	store.Timeout = 30 * time.Second

	return map[Stage]retry.Policy{
		StageFetch:     retry.DefaultPolicy(),
		StageValidate:  retry.NoRetry(),
		StageExtract:   extract,
		StageTranslate: retry.DefaultPolicy(),
		StageNormalize: retry.NoRetry(),
		StageDedup:     dedup,
		StageStore:     store,
	}
}
