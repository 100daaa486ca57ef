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

package core

import "fmt"

// itemStageOrder is the only legal forward path through the pipeline.
var itemStageOrder = []ItemStatus{
	ItemStatusQueued,
	ItemStatusValidating,
	ItemStatusExtracting,
	ItemStatusNormalizing,
	ItemStatusDeduping,
	ItemStatusStoring,
	ItemStatusDone,
}

func stageRank(s ItemStatus) int {
	for i, st := range itemStageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether the item can no longer change.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusDone || s == ItemStatusFailed
}

// CanTransition reports whether an item may move from one status to another.
//
// Rules:
//   - terminal states never change
//   - any non-terminal state may move to Failed
//   - a state may loop on itself (retry)
//   - Deduping may short-circuit to Done (duplicate content)
//   - otherwise only the next stage in order is allowed
func CanTransition(from, to ItemStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == ItemStatusFailed {
		return true
	}
	if from == to {
		return true
	}
	if from == ItemStatusDeduping && to == ItemStatusDone {
		return true
	}
	fr, tr := stageRank(from), stageRank(to)
	return fr >= 0 && tr == fr+1
}

// Transition moves the item to the given status or returns ErrInvalidTransition.
func (it *ImportItem) Transition(to ItemStatus) error {
	if !CanTransition(it.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, to)
	}
	if it.Status != to {
		it.Attempts = 0
	}
	it.Status = to
	return nil
}

// ComputeJobStatus derives a job's aggregate status from its items.
func ComputeJobStatus(items []ImportItem) JobStatus {
	if len(items) == 0 {
		return JobStatusQueued
	}
	var done, failed, queued int
	for _, it := range items {
		switch it.Status {
		case ItemStatusDone:
			done++
		case ItemStatusFailed:
			failed++
		case ItemStatusQueued:
			queued++
		}
	}
	switch {
	case done == len(items):
		return JobStatusCompleted
	case failed == len(items):
		return JobStatusFailed
	case done+failed == len(items):
		return JobStatusPartiallyFailed
	case queued == len(items):
		return JobStatusQueued
	default:
		return JobStatusRunning
	}
}

// Clone returns a deep copy of the job, safe to hand to callers.
func (j *ImportJob) Clone() *ImportJob {
	if j == nil {
		return nil
	}
	c := *j
	c.Items = make([]ImportItem, len(j.Items))
	for i, it := range j.Items {
		c.Items[i] = it.clone()
	}
	return &c
}

func (it ImportItem) clone() ImportItem {
	c := it
	if it.LastError != nil {
		e := *it.LastError
		c.LastError = &e
	}
	c.Warnings = append([]string(nil), it.Warnings...)
	c.MessageIDs = append([]string(nil), it.MessageIDs...)
	return c
}
