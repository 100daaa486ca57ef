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

import (
	"time"
)

// JobStatus is the aggregate status of an ImportJob. It is always derived
// from the statuses of the job's items, never stored independently.
type JobStatus string

const (
	JobStatusQueued          JobStatus = "queued"
	JobStatusRunning         JobStatus = "running"
	JobStatusPartiallyFailed JobStatus = "partially_failed"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
)

// IsTerminal reports whether no further item progress can change the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusPartiallyFailed
}

// ItemStatus mirrors the pipeline stage an ImportItem is in or last executed.
type ItemStatus string

const (
	ItemStatusQueued      ItemStatus = "queued"
	ItemStatusValidating  ItemStatus = "validating"
	ItemStatusExtracting  ItemStatus = "extracting"
	ItemStatusNormalizing ItemStatus = "normalizing"
	ItemStatusDeduping    ItemStatus = "deduping"
	ItemStatusStoring     ItemStatus = "storing"
	ItemStatusDone        ItemStatus = "done"
	ItemStatusFailed      ItemStatus = "failed"
)

// Descriptor identifies what a piece of content is and where it came from.
// It is the key used for adapter and format handler lookup.
type Descriptor struct {
	Platform  string // Source platform tag, e.g. "chatgpt", "podcast"
	Format    string // Declared format, e.g. "json", "mp3"
	MIMEType  string // Optional MIME type hint
	SourceURI string // Optional origin of the payload (payloadRef)
}

// ContentType classifies the body of a NormalizedMessage.
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeTranscript ContentType = "transcript"
	ContentTypeOCR        ContentType = "ocr"
)

// ImportJob is a batch submission owned by a single user.
type ImportJob struct {
	ID              string
	OwnerID         string
	Items           []ImportItem
	Status          JobStatus
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ImportItem is one unit of work within a job. Failure of one item never
// blocks the others.
type ImportItem struct {
	ID          string
	JobID       string
	Descriptor  Descriptor
	Title       string // Optional human-readable label (e.g. conversation title)
	Status      ItemStatus
	Attempts    int        // Attempts spent in the current or last stage
	LastError   *ItemError // Classified failure, set only when Status is Failed
	Warnings    []string   // Absorbed, non-fatal conditions
	MessageIDs  []string   // Resulting NormalizedMessage IDs once Done
	Duplicate   bool       // True when Done via the dedup short-circuit
	DuplicateOf string     // Item owning the stored messages when Duplicate
	Fingerprint string     // Dedup fingerprint, computed during Deduping
	TranslateTo string     // Optional target language for translation
	UpdatedAt   time.Time
}

// ItemError is the classified failure surfaced through the status API.
type ItemError struct {
	Code     ErrorCode
	Kind     ErrorKind
	Message  string
	Attempts int
}

// RawContent is the validated-to-be payload handed from adapters to the
// pipeline. It must not be mutated once produced.
type RawContent struct {
	Descriptor       Descriptor
	Data             []byte
	SizeBytes        int64
	Checksum         string // BLAKE2b-256 hex of Data, computed by the producer
	DeclaredSize     int64  // Client-declared size, 0 if unknown
	DeclaredChecksum string // Client-declared checksum, empty if unknown
	Title            string
	Metadata         map[string]string
}

// NewRawContent builds a RawContent with size and checksum derived from data.
func NewRawContent(desc Descriptor, data []byte) RawContent {
	return RawContent{
		Descriptor: desc,
		Data:       data,
		SizeBytes:  int64(len(data)),
		Checksum:   Checksum(data),
	}
}

// Entry is one provider-shaped message before normalization.
type Entry struct {
	Ordinal      int            // Provider order, meaningful when ExtractedContent.ProviderOrdered
	SpeakerRaw   string         // Provider role/author/speaker label
	TextRaw      string         // Message body
	TimestampRaw string         // Provider timestamp, any supported layout; empty if unknown
	Offset       *time.Duration // Relative offset from the start of the source (media)
	Metadata     map[string]string
}

// ExtractedContent is the intermediate structure produced by extraction.
// It is never persisted.
type ExtractedContent struct {
	Entries         []Entry
	ProviderOrdered bool
	ContentType     ContentType
	Warnings        []string
	Metadata        map[string]string // Merged into every message's SourceMetadata
}

// NormalizedMessage is the canonical unit of imported content.
type NormalizedMessage struct {
	ID             string
	ImportItemID   string
	SequenceIndex  int
	Speaker        string
	Content        string
	ContentType    ContentType
	Timestamp      time.Time // Always UTC
	SourceMetadata map[string]string
}

// ReservationState is the lifecycle of a dedup fingerprint entry.
type ReservationState string

const (
	ReservationReserved  ReservationState = "reserved"
	ReservationCommitted ReservationState = "committed"
)

// FingerprintRecord is the dedup table entry for one fingerprint.
type FingerprintRecord struct {
	Fingerprint string
	State       ReservationState
	ItemID      string   // Item holding the reservation or owning the stored messages
	Token       string   // Reservation token, required to commit or release
	MessageIDs  []string // Stored message IDs once committed
	ReservedAt  time.Time
	CommittedAt time.Time
}
