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

package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// Document is the canonical chat document produced by platform adapters.
type Document struct {
	Title    string            `json:"title,omitempty"`
	Ordered  *bool             `json:"ordered,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Messages []Message         `json:"messages"`

	skipped []string
}

// Message is one entry of the canonical document. When decoding, common
// aliases are accepted for each field (role, author, text, ts, ...).
type Message struct {
	Speaker   string            `json:"speaker,omitempty"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp,omitempty"`
	Offset    *float64          `json:"offset,omitempty"` // Seconds from the start of the source
	Metadata  map[string]string `json:"metadata,omitempty"`
}

var (
	speakerKeys   = []string{"speaker", "role", "author", "sender", "from", "name", "user"}
	contentKeys   = []string{"content", "text", "message", "body", "value"}
	timestampKeys = []string{"timestamp", "ts", "time", "created_at", "create_time", "date"}
)

// decodeMessage reads a message object accepting the common aliases for
// each field. Values may be strings, numbers, arrays of parts or nested
// objects carrying a role or text.
func decodeMessage(raw json.RawMessage) (Message, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Message{}, err
	}
	var msg Message
	msg.Speaker = flatten(firstField(obj, speakerKeys), "role", "name")
	msg.Content = flatten(firstField(obj, contentKeys), "text", "parts")
	msg.Timestamp = flatten(firstField(obj, timestampKeys))
	if off, ok := obj["offset"]; ok {
		var f float64
		if err := json.Unmarshal(off, &f); err == nil {
			msg.Offset = &f
		}
	}
	if md, ok := obj["metadata"]; ok {
		msg.Metadata = flattenMap(md)
	}
	return msg, nil
}

func firstField(obj map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// flatten renders a JSON value as text. Strings and numbers are used as is;
// arrays are joined line by line; objects yield the first of nested keys.
func flatten(v json.RawMessage, nested ...string) string {
	if isNull(v) {
		return ""
	}
	switch bytes.TrimSpace(v)[0] {
	case '"':
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
	case '[':
		var parts []json.RawMessage
		if json.Unmarshal(v, &parts) == nil {
			var out []string
			for _, p := range parts {
				if s := flatten(p, nested...); s != "" {
					out = append(out, s)
				}
			}
			return strings.Join(out, "\n")
		}
	case '{':
		var obj map[string]json.RawMessage
		if json.Unmarshal(v, &obj) == nil {
			for _, k := range nested {
				if inner, ok := obj[k]; ok {
					return flatten(inner, nested...)
				}
			}
		}
	case 't', 'f':
		return ""
	default:
		var n json.Number
		if json.Unmarshal(v, &n) == nil {
			return n.String()
		}
	}
	return ""
}

func flattenMap(v json.RawMessage) map[string]string {
	var obj map[string]json.RawMessage
	if json.Unmarshal(v, &obj) != nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s := flatten(val); s != "" {
			out[k] = s
		}
	}
	return out
}

// toEntry converts a message into an extraction entry.
func (m Message) toEntry(ordinal int) core.Entry {
	e := core.Entry{
		Ordinal:      ordinal,
		SpeakerRaw:   m.Speaker,
		TextRaw:      m.Content,
		TimestampRaw: m.Timestamp,
		Metadata:     m.Metadata,
	}
	if m.Offset != nil {
		d := time.Duration(*m.Offset * float64(time.Second))
		e.Offset = &d
	}
	return e
}

// MarshalDocument encodes doc in the canonical json format.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// OffsetSeconds converts d for Message.Offset.
func OffsetSeconds(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}

// FormatUnix renders epoch seconds as a timestamp string.
func FormatUnix(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

func malformed(format string, args ...any) error {
	return core.Permanent(core.CodeValidation, fmt.Errorf("%w: %s", core.ErrMalformed, fmt.Sprintf(format, args...)))
}
