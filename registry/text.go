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
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

var (
	// [2024-01-01 10:00] Alice: hello
	bracketLine = regexp.MustCompile(`^\[([^\]]+)\]\s*([^:\[\]]{1,64}):\s?(.*)$`)
	// 12/31/23, 9:15 PM - Alice: hello
	dashLine = regexp.MustCompile(`^(\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4},? \d{1,2}:\d{2}(?::\d{2})?(?: ?[APap][Mm])?) - ([^:]{1,64}):\s?(.*)$`)
	// Alice: hello
	speakerLine = regexp.MustCompile(`^([\p{L}\p{N} _.@'()-]{1,64}):\s?(.*)$`)
)

// TextHandler extracts plain-text transcripts. Lines without a speaker
// prefix continue the previous message.
type TextHandler struct{}

var _ FormatHandler = (*TextHandler)(nil)

// NewTextHandler creates the txt handler.
func NewTextHandler() *TextHandler {
	return &TextHandler{}
}

func (h *TextHandler) Name() string { return "txt" }
func (h *TextHandler) Media() bool  { return false }

func (h *TextHandler) Matches(desc core.Descriptor) bool {
	f := strings.ToLower(desc.Format)
	return f == "txt" || f == "text" || mimeBase(desc.MIMEType) == "text/plain"
}

func (h *TextHandler) Validate(raw core.RawContent) error {
	if !utf8.Valid(raw.Data) {
		return malformed("txt: invalid UTF-8")
	}
	if len(bytes.TrimSpace(raw.Data)) == 0 {
		return malformed("txt: no text")
	}
	return nil
}

func (h *TextHandler) Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error) {
	return &core.ExtractedContent{
		Entries:         ParseTranscript(string(raw.Data)),
		ProviderOrdered: true,
		ContentType:     core.ContentTypeText,
	}, nil
}

// ParseTranscript splits chat-like text into entries.
func ParseTranscript(text string) []core.Entry {
	var entries []core.Entry
	var current *core.Entry

	flush := func() {
		if current != nil {
			current.TextRaw = strings.TrimSpace(current.TextRaw)
			entries = append(entries, *current)
			current = nil
		}
	}
	start := func(ts, speaker, body string) {
		flush()
		current = &core.Entry{
			Ordinal:      len(entries),
			SpeakerRaw:   strings.TrimSpace(speaker),
			TimestampRaw: strings.TrimSpace(ts),
			TextRaw:      body,
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if m := bracketLine.FindStringSubmatch(trimmed); m != nil {
			start(m[1], m[2], m[3])
			continue
		}
		if m := dashLine.FindStringSubmatch(trimmed); m != nil {
			start(m[1], m[2], m[3])
			continue
		}
		if m := speakerLine.FindStringSubmatch(trimmed); m != nil && !strings.HasPrefix(m[2], "//") {
			start("", m[1], m[2])
			continue
		}
		if trimmed == "" && current == nil {
			continue
		}
		if current == nil {
			start("", "", "")
		}
		current.TextRaw += "\n" + line
	}
	flush()
	return entries
}
