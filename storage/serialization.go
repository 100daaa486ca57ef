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
	"fmt"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// MarshalMessage serializes a NormalizedMessage to bytes.
func MarshalMessage(msg *core.NormalizedMessage) []byte {
	buf := make([]byte, core.NormalizedMessageMUS.Size(*msg))
	core.NormalizedMessageMUS.Marshal(*msg, buf)
	return buf
}

// UnmarshalMessage deserializes a NormalizedMessage from bytes.
func UnmarshalMessage(data []byte) (*core.NormalizedMessage, error) {
	msg, _, err := core.NormalizedMessageMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: message: %w", ErrSerializationFailed, err)
	}
	return &msg, nil
}

// MarshalJob serializes an ImportJob to bytes.
func MarshalJob(job *core.ImportJob) []byte {
	buf := make([]byte, core.ImportJobMUS.Size(*job))
	core.ImportJobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes an ImportJob from bytes.
func UnmarshalJob(data []byte) (*core.ImportJob, error) {
	job, _, err := core.ImportJobMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: job: %w", ErrSerializationFailed, err)
	}
	return &job, nil
}

// MarshalFingerprintRecord serializes a FingerprintRecord to bytes.
func MarshalFingerprintRecord(rec *core.FingerprintRecord) []byte {
	buf := make([]byte, core.FingerprintRecordMUS.Size(*rec))
	core.FingerprintRecordMUS.Marshal(*rec, buf)
	return buf
}

// UnmarshalFingerprintRecord deserializes a FingerprintRecord from bytes.
func UnmarshalFingerprintRecord(data []byte) (*core.FingerprintRecord, error) {
	rec, _, err := core.FingerprintRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint: %w", ErrSerializationFailed, err)
	}
	return &rec, nil
}
