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
	"strconv"
	"strings"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

var socialPlatforms = []string{
	"social", "twitter", "x", "reddit", "mastodon", "bluesky", "threads",
	"hackernews", "forum", "discord", "slack",
}

// SocialAdapter reads social threads. Posts are ordered depth first along
// reply links, siblings by time when every sibling carries one.
type SocialAdapter struct{}

// NewSocialAdapter creates the social adapter.
func NewSocialAdapter() *SocialAdapter { return &SocialAdapter{} }

func (a *SocialAdapter) Name() string { return "social" }

func (a *SocialAdapter) Matches(desc core.Descriptor) bool {
	return slices.Contains(socialPlatforms, strings.ToLower(desc.Platform)) && isJSON(desc)
}

type socialThread struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"thread_id"`
	Title    string       `json:"title"`
	URL      string       `json:"url"`
	Posts    []socialPost `json:"posts"`
}

type socialPost struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Timestamp string `json:"timestamp"`
	ReplyTo   string `json:"reply_to"`
	ParentID  string `json:"parent_id"`
}

func (p socialPost) parent() string { return firstNonEmpty(p.ReplyTo, p.ParentID) }
func (p socialPost) when() string   { return firstNonEmpty(p.CreatedAt, p.Timestamp) }

func (a *SocialAdapter) Translate(p Payload) ([]core.RawContent, error) {
	if err := verify(p); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(p.Data)

	var threads []socialThread
	switch data[0] {
	case '{':
		var t socialThread
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, malformedSource(a.Name(), "%v", err)
		}
		threads = append(threads, t)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, malformedSource(a.Name(), "%v", err)
		}
		if len(elems) > 0 && hasKey(elems[0], "posts") {
			if err := json.Unmarshal(data, &threads); err != nil {
				return nil, malformedSource(a.Name(), "%v", err)
			}
		} else {
			var t socialThread
			if err := json.Unmarshal(data, &t.Posts); err != nil {
				return nil, malformedSource(a.Name(), "%v", err)
			}
			threads = append(threads, t)
		}
	default:
		return nil, malformedSource(a.Name(), "expected an object or array")
	}

	var out []core.RawContent
	for _, t := range threads {
		doc := a.document(t)
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

func (a *SocialAdapter) document(t socialThread) registry.Document {
	ordered := true
	doc := registry.Document{
		Title:    t.Title,
		Ordered:  &ordered,
		Metadata: map[string]string{"thread_id": firstNonEmpty(t.ThreadID, t.ID)},
	}
	if t.URL != "" {
		doc.Metadata["url"] = t.URL
	}

	for _, n := range replyOrder(t.Posts) {
		post := t.Posts[n.index]
		text := firstNonEmpty(post.Text, post.Body)
		if strings.TrimSpace(text) == "" {
			continue
		}
		md := map[string]string{"depth": strconv.Itoa(n.depth)}
		if post.ID != "" {
			md["post_id"] = post.ID
		}
		if parent := post.parent(); parent != "" {
			md["reply_to"] = parent
		}
		doc.Messages = append(doc.Messages, registry.Message{
			Speaker:   firstNonEmpty(post.Author, post.Username),
			Content:   text,
			Timestamp: post.when(),
			Metadata:  md,
		})
	}
	return doc
}

type threadPosition struct {
	index int
	depth int
}

// replyOrder returns post positions in reply-tree order. Posts whose parent
// is missing are treated as roots.
func replyOrder(posts []socialPost) []threadPosition {
	ids := make(map[string]int, len(posts))
	for i, p := range posts {
		if p.ID != "" {
			ids[p.ID] = i
		}
	}
	children := make(map[int][]int)
	var roots []int
	for i, p := range posts {
		parent, ok := ids[p.parent()]
		if !ok || parent == i {
			roots = append(roots, i)
			continue
		}
		children[parent] = append(children[parent], i)
	}

	var out []threadPosition
	visited := make([]bool, len(posts))
	var walk func(i, depth int)
	walk = func(i, depth int) {
		if visited[i] {
			return
		}
		visited[i] = true
		out = append(out, threadPosition{index: i, depth: depth})
		for _, c := range byTime(posts, children[i]) {
			walk(c, depth+1)
		}
	}
	for _, r := range byTime(posts, roots) {
		walk(r, 0)
	}
	// Reply cycles leave posts unreachable from any root.
	for i := range posts {
		walk(i, 0)
	}
	return out
}

// byTime sorts sibling positions chronologically when all of them carry a
// parseable time, else keeps input order.
func byTime(posts []socialPost, idx []int) []int {
	times := make(map[int]time.Time, len(idx))
	for _, i := range idx {
		ts, ok := parsePostTime(posts[i].when())
		if !ok {
			return idx
		}
		times[i] = ts
	}
	sorted := slices.Clone(idx)
	slices.SortStableFunc(sorted, func(a, b int) int { return times[a].Compare(times[b]) })
	return sorted
}

func parsePostTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RubyDate, time.RFC1123Z} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0), true
	}
	return time.Time{}, false
}
