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
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// ClaudeAdapter reads claude.ai conversations.json exports, one item per
// conversation.
type ClaudeAdapter struct{}

// NewClaudeAdapter creates the claude adapter.
func NewClaudeAdapter() *ClaudeAdapter { return &ClaudeAdapter{} }

func (a *ClaudeAdapter) Name() string { return "claude" }

func (a *ClaudeAdapter) Matches(desc core.Descriptor) bool {
	p := strings.ToLower(desc.Platform)
	return (p == "claude" || p == "anthropic") && isJSON(desc)
}

type claudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	CreatedAt    string          `json:"created_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	CreatedAt string `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *ClaudeAdapter) Translate(p Payload) ([]core.RawContent, error) {
	if err := verify(p); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(p.Data)

	var convs []claudeConversation
	var err error
	if data[0] == '{' {
		var conv claudeConversation
		err = json.Unmarshal(data, &conv)
		convs = append(convs, conv)
	} else {
		err = json.Unmarshal(data, &convs)
	}
	if err != nil {
		return nil, malformedSource(a.Name(), "%v", err)
	}

	var out []core.RawContent
	for _, conv := range convs {
		ordered := true
		doc := registry.Document{
			Title:   conv.Name,
			Ordered: &ordered,
			Metadata: map[string]string{
				"conversation_id": conv.UUID,
				"started_at":      conv.CreatedAt,
			},
		}
		for _, msg := range conv.ChatMessages {
			text := claudeText(msg)
			if strings.TrimSpace(text) == "" {
				continue
			}
			doc.Messages = append(doc.Messages, registry.Message{
				Speaker:   msg.Sender,
				Content:   text,
				Timestamp: msg.CreatedAt,
				Metadata:  map[string]string{"message_id": msg.UUID},
			})
		}
		if len(doc.Messages) == 0 {
			continue
		}
		raw, err := documentContent(p, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if len(out) == 0 {
		return nil, core.Permanent(core.CodeMalformedSource, ErrNoConversations)
	}
	return out, nil
}

func claudeText(msg claudeMessage) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return msg.Text
	}
	return strings.Join(parts, "\n")
}
