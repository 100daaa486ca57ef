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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// JSONLHandler extracts one message object per line. Malformed lines are
// skipped with a warning.
type JSONLHandler struct{}

var _ FormatHandler = (*JSONLHandler)(nil)

// NewJSONLHandler creates the jsonl handler.
func NewJSONLHandler() *JSONLHandler {
	return &JSONLHandler{}
}

func (h *JSONLHandler) Name() string { return "jsonl" }
func (h *JSONLHandler) Media() bool  { return false }

func (h *JSONLHandler) Matches(desc core.Descriptor) bool {
	f := strings.ToLower(desc.Format)
	return f == "jsonl" || f == "ndjson" || mimeBase(desc.MIMEType) == "application/x-ndjson"
}

func (h *JSONLHandler) Validate(raw core.RawContent) error {
	ec, err := h.Extract(context.Background(), raw)
	if err != nil {
		return err
	}
	if len(ec.Entries) == 0 {
		return malformed("jsonl: no readable lines")
	}
	return nil
}

func (h *JSONLHandler) Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error) {
	ec := &core.ExtractedContent{ProviderOrdered: true, ContentType: core.ContentTypeText}

	scanner := bufio.NewScanner(bytes.NewReader(raw.Data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := decodeMessage(line)
		if err != nil {
			ec.Warnings = append(ec.Warnings, fmt.Sprintf("line %d skipped: %v", lineNo, err))
			continue
		}
		ec.Entries = append(ec.Entries, msg.toEntry(len(ec.Entries)))
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed("jsonl: %v", err)
	}
	return ec, nil
}
