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
	"slices"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// ChatGPTAdapter reads ChatGPT conversations.json exports. Each
// conversation's mapping tree is linearized along the active branch and
// becomes one item. A plain array of messages is forwarded unchanged.
type ChatGPTAdapter struct{}

// NewChatGPTAdapter creates the chatgpt adapter.
func NewChatGPTAdapter() *ChatGPTAdapter { return &ChatGPTAdapter{} }

func (a *ChatGPTAdapter) Name() string { return "chatgpt" }

func (a *ChatGPTAdapter) Matches(desc core.Descriptor) bool {
	p := strings.ToLower(desc.Platform)
	return (p == "chatgpt" || p == "openai") && isJSON(desc)
}

type chatgptConversation struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Title          string                 `json:"title"`
	CreateTime     *float64               `json:"create_time"`
	Mapping        map[string]chatgptNode `json:"mapping"`
	CurrentNode    string                 `json:"current_node"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
		Text        string            `json:"text"`
	} `json:"content"`
	Metadata struct {
		Hidden    bool   `json:"is_visually_hidden_from_conversation"`
		ModelSlug string `json:"model_slug"`
	} `json:"metadata"`
}

func (a *ChatGPTAdapter) Translate(p Payload) ([]core.RawContent, error) {
	if err := verify(p); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(p.Data)

	var convs []chatgptConversation
	switch data[0] {
	case '{':
		var conv chatgptConversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return nil, malformedSource(a.Name(), "%v", err)
		}
		if conv.Mapping == nil {
			return nil, malformedSource(a.Name(), "conversation has no mapping")
		}
		convs = append(convs, conv)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, malformedSource(a.Name(), "%v", err)
		}
		if len(elems) > 0 && !hasKey(elems[0], "mapping") {
			raw := passthrough(p)
			raw.Descriptor.Format = "json"
			return []core.RawContent{raw}, nil
		}
		if err := json.Unmarshal(data, &convs); err != nil {
			return nil, malformedSource(a.Name(), "%v", err)
		}
	default:
		return nil, malformedSource(a.Name(), "expected an object or array")
	}

	var out []core.RawContent
	for _, conv := range convs {
		doc := a.document(conv)
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

func (a *ChatGPTAdapter) document(conv chatgptConversation) registry.Document {
	ordered := true
	doc := registry.Document{
		Title:    conv.Title,
		Ordered:  &ordered,
		Metadata: map[string]string{"conversation_id": firstNonEmpty(conv.ConversationID, conv.ID)},
	}
	if conv.CreateTime != nil {
		doc.Metadata["started_at"] = registry.FormatUnix(*conv.CreateTime)
	}

	for _, node := range activeBranch(conv) {
		msg := node.Message
		if msg == nil || msg.Metadata.Hidden {
			continue
		}
		text := chatgptText(msg)
		if strings.TrimSpace(text) == "" {
			continue
		}
		m := registry.Message{
			Speaker:  msg.Author.Role,
			Content:  text,
			Metadata: map[string]string{"message_id": firstNonEmpty(msg.ID, node.ID)},
		}
		if msg.CreateTime != nil {
			m.Timestamp = registry.FormatUnix(*msg.CreateTime)
		}
		if msg.Metadata.ModelSlug != "" {
			m.Metadata["model"] = msg.Metadata.ModelSlug
		}
		doc.Messages = append(doc.Messages, m)
	}
	return doc
}

// activeBranch returns the nodes from the root to the current node. Without
// a current node the latest child is followed from the root.
func activeBranch(conv chatgptConversation) []chatgptNode {
	if node, ok := conv.Mapping[conv.CurrentNode]; ok {
		var path []chatgptNode
		seen := make(map[string]bool)
		for ok && !seen[node.ID] {
			seen[node.ID] = true
			path = append(path, node)
			if node.Parent == nil {
				break
			}
			node, ok = conv.Mapping[*node.Parent]
		}
		slices.Reverse(path)
		return path
	}

	var roots []string
	for id, node := range conv.Mapping {
		if node.Parent == nil {
			roots = append(roots, id)
		} else if _, ok := conv.Mapping[*node.Parent]; !ok {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return nil
	}
	slices.Sort(roots)

	var path []chatgptNode
	seen := make(map[string]bool)
	id := roots[0]
	for id != "" && !seen[id] {
		node, ok := conv.Mapping[id]
		if !ok {
			break
		}
		seen[id] = true
		path = append(path, node)
		id = ""
		if n := len(node.Children); n > 0 {
			id = node.Children[n-1]
		}
	}
	return path
}

func chatgptText(msg *chatgptMessage) string {
	var parts []string
	for _, part := range msg.Content.Parts {
		var s string
		if json.Unmarshal(part, &s) == nil && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return msg.Content.Text
	}
	return strings.Join(parts, "\n")
}

func hasKey(raw json.RawMessage, key string) bool {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

func isJSON(desc core.Descriptor) bool {
	f := strings.ToLower(desc.Format)
	return f == "" || f == "json" || strings.HasPrefix(strings.ToLower(desc.MIMEType), "application/json")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
