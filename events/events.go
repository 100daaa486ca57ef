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

package events

import (
	"context"
	"sync"
	"time"
)

// Type names an event.
type Type string

const (
	TypeJobSubmitted       Type = "job.submitted"
	TypeJobCancelRequested Type = "job.cancel_requested"
	TypeItemStatus         Type = "item.status"
	TypeJobFinished        Type = "job.finished"
)

// Event is a job or item progress notification.
type Event struct {
	Type      Type      `json:"type"`
	JobID     string    `json:"jobId"`
	OwnerID   string    `json:"ownerId,omitempty"`
	ItemID    string    `json:"itemId,omitempty"`
	Status    string    `json:"status"`
	JobStatus string    `json:"jobStatus,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Time      time.Time `json:"time"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Publisher = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns recorded events of type t for jobID.
func (r *Recorder) Filter(jobID string, t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.JobID == jobID && ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
