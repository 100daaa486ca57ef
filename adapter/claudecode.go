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

package adapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// ClaudeCodeAdapter reads Claude Code session transcripts (JSONL). Lines
// are ordered by following parentUuid links from the root; tool results
// and non-text blocks are dropped.
type ClaudeCodeAdapter struct{}

// NewClaudeCodeAdapter creates the claude-code adapter.
func NewClaudeCodeAdapter() *ClaudeCodeAdapter { return &ClaudeCodeAdapter{} }

func (a *ClaudeCodeAdapter) Name() string { return "claude-code" }

func (a *ClaudeCodeAdapter) Matches(desc core.Descriptor) bool {
	p := strings.ToLower(desc.Platform)
	f := strings.ToLower(desc.Format)
	return p == "claude-code" || (p == "claude" && (f == "jsonl" || f == "ndjson"))
}

// ccLine is a single line of a session transcript.
type ccLine struct {
	Type       string    `json:"type"`
	UUID       string    `json:"uuid"`
	ParentUUID *string   `json:"parentUuid"`
	SessionID  string    `json:"sessionId"`
	Timestamp  string    `json:"timestamp"`
	Message    ccMessage `json:"message"`

	index int
}

type ccMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type ccContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (a *ClaudeCodeAdapter) Translate(p Payload) ([]core.RawContent, error) {
	if err := verify(p); err != nil {
		return nil, err
	}

	byUUID := make(map[string]*ccLine)
	var roots []string
	children := make(map[string]string)
	var sessionID string

	scanner := bufio.NewScanner(bytes.NewReader(p.Data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var line ccLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Type != "user" && line.Type != "assistant" {
			continue
		}
		line.index = len(byUUID)
		byUUID[line.UUID] = &line
		if sessionID == "" {
			sessionID = line.SessionID
		}
		if line.ParentUUID == nil || *line.ParentUUID == "" {
			roots = append(roots, line.UUID)
		} else {
			children[*line.ParentUUID] = line.UUID
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, malformedSource(a.Name(), "%v", err)
	}
	if len(byUUID) == 0 {
		return nil, core.Permanent(core.CodeMalformedSource, ErrNoConversations)
	}

	// Parents that are not user or assistant lines (summaries, system
	// events) break the chain; the lines after them are picked up below.
	var ordered []*ccLine
	visited := make(map[string]bool, len(byUUID))
	for _, id := range roots {
		for current := id; current != "" && !visited[current]; current = children[current] {
			line, ok := byUUID[current]
			if !ok {
				break
			}
			visited[current] = true
			ordered = append(ordered, line)
		}
	}
	var orphans []*ccLine
	for id, line := range byUUID {
		if !visited[id] {
			orphans = append(orphans, line)
		}
	}
	slices.SortFunc(orphans, func(a, b *ccLine) int { return a.index - b.index })
	ordered = append(ordered, orphans...)

	inOrder := true
	doc := registry.Document{
		Title:    p.Title,
		Ordered:  &inOrder,
		Metadata: map[string]string{"session_id": sessionID},
	}
	for _, line := range ordered {
		text, isToolResult := ccText(line)
		if isToolResult || strings.TrimSpace(text) == "" {
			continue
		}
		doc.Messages = append(doc.Messages, registry.Message{
			Speaker:   line.Type,
			Content:   text,
			Timestamp: line.Timestamp,
			Metadata:  map[string]string{"message_id": line.UUID},
		})
	}
	if len(doc.Messages) == 0 {
		return nil, core.Permanent(core.CodeMalformedSource, ErrNoConversations)
	}
	if doc.Title == "" {
		doc.Title = "session " + sessionID
	}

	raw, err := documentContent(p, doc)
	if err != nil {
		return nil, err
	}
	return []core.RawContent{raw}, nil
}

// ccText returns the text of a line and whether it carries a tool result.
func ccText(line *ccLine) (string, bool) {
	if line.Message.Content == nil {
		return "", false
	}
	var plain string
	if err := json.Unmarshal(line.Message.Content, &plain); err == nil {
		return plain, false
	}
	var blocks []ccContentBlock
	if err := json.Unmarshal(line.Message.Content, &blocks); err != nil {
		return "", false
	}
	var texts []string
	for _, b := range blocks {
		switch {
		case b.Type == "tool_result":
			return "", true
		case b.Type == "text" && b.Text != "":
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n"), false
}
