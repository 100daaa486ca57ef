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

package storage

import (
	"context"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// MessageSink persists normalized messages.
type MessageSink interface {
	// WriteMessages upserts msgs keyed by (itemID, SequenceIndex) in a single
	// transaction. Rewriting identical messages is a no-op. If any key already
	// holds a different message nothing is written and ErrConflict is returned.
	WriteMessages(ctx context.Context, itemID string, msgs []core.NormalizedMessage) error

	// GetMessages returns the messages of an item ordered by SequenceIndex.
	// Returns an empty slice if the item has no stored messages.
	GetMessages(ctx context.Context, itemID string) ([]core.NormalizedMessage, error)
}

// FingerprintStore holds dedup records keyed by fingerprint.
type FingerprintStore interface {
	// Reserve atomically claims fingerprint rec.Fingerprint for rec.ItemID.
	// The claim succeeds when no record exists, when the existing reservation
	// is older than lease, or when it is held by the same item. On success the
	// returned record is nil. Otherwise the existing record is returned
	// unchanged.
	Reserve(ctx context.Context, rec core.FingerprintRecord, lease time.Duration) (*core.FingerprintRecord, error)

	// Commit marks a reservation as committed with the stored message IDs.
	// Returns ErrTokenMismatch if token does not hold the reservation.
	Commit(ctx context.Context, fingerprint, token string, messageIDs []string) error

	// Release drops a reservation held by token. Releasing a committed record
	// or a reservation held by another token is a no-op.
	Release(ctx context.Context, fingerprint, token string) error

	// Get returns the record for fingerprint or ErrNotFound.
	Get(ctx context.Context, fingerprint string) (*core.FingerprintRecord, error)
}

// JobRepository persists import job snapshots.
type JobRepository interface {
	// SaveJob stores a snapshot of job, replacing any previous snapshot.
	SaveJob(ctx context.Context, job *core.ImportJob) error

	// LoadJob returns the latest snapshot of a job or ErrNotFound.
	LoadJob(ctx context.Context, jobID string) (*core.ImportJob, error)

	// ListJobs returns all stored jobs, newest first.
	ListJobs(ctx context.Context) ([]*core.ImportJob, error)
}
