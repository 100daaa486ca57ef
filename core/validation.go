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
	"fmt"
	"time"
)

// ValidateNormalizedMessage validates a NormalizedMessage according to domain rules.
//
// Validation rules:
//   - ID and ImportItemID must not be empty
//   - SequenceIndex must not be negative
//   - Speaker and Content must not be empty
//   - Timestamp must be set and expressed in UTC
func ValidateNormalizedMessage(msg *NormalizedMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if msg.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if msg.ImportItemID == "" {
		return fmt.Errorf("%w: missing import item id", ErrInvalidMessage)
	}
	if msg.SequenceIndex < 0 {
		return fmt.Errorf("%w: negative sequence index %d", ErrInvalidMessage, msg.SequenceIndex)
	}
	if msg.Speaker == "" {
		return fmt.Errorf("%w: missing speaker", ErrInvalidMessage)
	}
	if msg.Content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}
	if msg.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	if msg.Timestamp.Location() != time.UTC {
		return fmt.Errorf("%w: timestamp not in UTC", ErrInvalidMessage)
	}
	return nil
}

// ValidateSequence checks that msgs belong to one item and that their
// sequence indices are exactly 0..N-1 in order.
func ValidateSequence(msgs []NormalizedMessage) error {
	for i := range msgs {
		if err := ValidateNormalizedMessage(&msgs[i]); err != nil {
			return err
		}
		if msgs[i].SequenceIndex != i {
			return fmt.Errorf("%w: sequence index %d at position %d", ErrInvalidMessage, msgs[i].SequenceIndex, i)
		}
		if msgs[i].ImportItemID != msgs[0].ImportItemID {
			return fmt.Errorf("%w: mixed import items", ErrInvalidMessage)
		}
	}
	return nil
}
