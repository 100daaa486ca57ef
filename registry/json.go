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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// JSONHandler extracts the canonical chat document, or a bare array of
// message objects.
type JSONHandler struct{}

var _ FormatHandler = (*JSONHandler)(nil)

// NewJSONHandler creates the json handler.
func NewJSONHandler() *JSONHandler {
	return &JSONHandler{}
}

func (h *JSONHandler) Name() string { return "json" }
func (h *JSONHandler) Media() bool  { return false }

func (h *JSONHandler) Matches(desc core.Descriptor) bool {
	return strings.EqualFold(desc.Format, "json") || mimeBase(desc.MIMEType) == "application/json"
}

func (h *JSONHandler) Validate(raw core.RawContent) error {
	doc, err := parseDocument(raw.Data)
	if err != nil {
		return err
	}
	if len(doc.Messages) == 0 && len(doc.skipped) > 0 {
		return malformed("json: no readable messages")
	}
	return nil
}

func (h *JSONHandler) Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error) {
	doc, err := parseDocument(raw.Data)
	if err != nil {
		return nil, err
	}
	ec := &core.ExtractedContent{
		ProviderOrdered: doc.Ordered == nil || *doc.Ordered,
		ContentType:     core.ContentTypeText,
		Metadata:        doc.Metadata,
		Warnings:        doc.skipped,
	}
	for i, msg := range doc.Messages {
		ec.Entries = append(ec.Entries, msg.toEntry(i))
	}
	return ec, nil
}

// parseDocument accepts either {"messages": [...]} or [...]. Elements that
// are not message objects are skipped with a warning.
func parseDocument(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, malformed("json: invalid UTF-8")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, malformed("json: empty document")
	}

	var rawMessages []json.RawMessage
	doc := &Document{}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rawMessages); err != nil {
			return nil, malformed("json: %v", err)
		}
	case '{':
		var envelope struct {
			Title    string            `json:"title"`
			Ordered  *bool             `json:"ordered"`
			Metadata map[string]string `json:"metadata"`
			Messages []json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, malformed("json: %v", err)
		}
		if envelope.Messages == nil {
			return nil, malformed("json: document has no messages array")
		}
		doc.Title = envelope.Title
		doc.Ordered = envelope.Ordered
		doc.Metadata = envelope.Metadata
		rawMessages = envelope.Messages
	default:
		return nil, malformed("json: expected an object or array")
	}

	for i, raw := range rawMessages {
		msg, err := decodeMessage(raw)
		if err != nil {
			doc.skipped = append(doc.skipped, fmt.Sprintf("message %d skipped: %v", i, err))
			continue
		}
		doc.Messages = append(doc.Messages, msg)
	}
	return doc, nil
}

// mimeBase strips parameters and lowercases a MIME type.
func mimeBase(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
