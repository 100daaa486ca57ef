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
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limited bounds the number of concurrent calls to a Service.
type Limited struct {
	svc      Service
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
}

var _ Service = (*Limited)(nil)

// Limit wraps svc so that at most n calls run at once. n < 1 is treated as 1.
func Limit(svc Service, n int) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{svc: svc, sem: semaphore.NewWeighted(int64(n))}
}

// Kind reports the wrapped service's kind.
func (l *Limited) Kind() Kind {
	return l.svc.Kind()
}

// Process waits for a slot, then calls the wrapped service. Waiting honors
// ctx cancellation.
func (l *Limited) Process(ctx context.Context, req Request) (*Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)

	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return l.svc.Process(ctx, req)
}

// Peak returns the highest number of concurrent calls observed.
func (l *Limited) Peak() int {
	return int(l.peak.Load())
}

// Unwrap returns the wrapped service.
func (l *Limited) Unwrap() Service {
	return l.svc
}
