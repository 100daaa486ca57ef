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
	"encoding/hex"
	"strconv"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// messageNamespace scopes deterministic message IDs.
var messageNamespace = uuid.MustParse("6f1c3a52-8d0e-4c55-9a0b-2f4d7c1e9b30")

// Checksum returns the BLAKE2b-256 digest of data as lowercase hex.
func Checksum(data []byte) string {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies content for deduplication. Identical bytes from the
// same platform imported by the same owner always yield the same fingerprint.
func Fingerprint(platform, checksum, ownerID string) string {
	h, _ := blake2b.New(32, nil)
	// Length-prefix each part so ("ab","c") and ("a","bc") differ
	for _, part := range []string{platform, checksum, ownerID} {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MessageID derives a stable message ID from its item and position, so that
// rewriting the same item yields the same IDs.
func MessageID(itemID string, sequenceIndex int) string {
	return uuid.NewSHA1(messageNamespace, []byte(itemID+"#"+strconv.Itoa(sequenceIndex))).String()
}
