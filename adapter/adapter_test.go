package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(platform, format, data string) Payload {
	return Payload{Descriptor: core.Descriptor{Platform: platform, Format: format}, Data: []byte(data)}
}

// extract runs raw through the json handler the way the pipeline does.
func extract(t *testing.T, raw core.RawContent) *core.ExtractedContent {
	t.Helper()
	h := registry.NewJSONHandler()
	require.True(t, h.Matches(raw.Descriptor))
	require.NoError(t, h.Validate(raw))
	ec, err := h.Extract(context.Background(), raw)
	require.NoError(t, err)
	return ec
}

func TestSet_Resolve(t *testing.T) {
	set, err := NewSet(Builtin()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-code", "chatgpt", "claude", "social", "media", "generic"}, set.Names())

	tests := []struct {
		desc core.Descriptor
		want string
	}{
		{core.Descriptor{Platform: "chatgpt", Format: "json"}, "chatgpt"},
		{core.Descriptor{Platform: "claude", Format: "json"}, "claude"},
		{core.Descriptor{Platform: "claude", Format: "jsonl"}, "claude-code"},
		{core.Descriptor{Platform: "claude-code", Format: "jsonl"}, "claude-code"},
		{core.Descriptor{Platform: "reddit", Format: "json"}, "social"},
		{core.Descriptor{Platform: "podcast", Format: "mp3"}, "media"},
		{core.Descriptor{Platform: "notes", Format: "png"}, "media"},
		{core.Descriptor{Platform: "chatgpt", Format: "txt"}, "generic"},
		{core.Descriptor{Platform: "whatever", Format: "csv"}, "generic"},
	}
	for _, tt := range tests {
		a, err := set.Resolve(tt.desc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, a.Name(), "%+v", tt.desc)
	}

	_, err = NewSet(NewGenericAdapter(), NewGenericAdapter())
	assert.Error(t, err)
}

func TestSet_ResolveWithoutGeneric(t *testing.T) {
	set, err := NewSet(NewChatGPTAdapter())
	require.NoError(t, err)
	_, err = set.Resolve(core.Descriptor{Platform: "unknown"})
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestPassthrough_KeepsDeclaredIntegrity(t *testing.T) {
	p := payload("notes", "txt", "a: b")
	p.DeclaredSize = 99
	p.DeclaredChecksum = "abc"
	p.Metadata = map[string]string{"k": "v"}

	out, err := NewGenericAdapter().Translate(p)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(99), out[0].DeclaredSize)
	assert.Equal(t, "abc", out[0].DeclaredChecksum)
	assert.Equal(t, core.Checksum([]byte("a: b")), out[0].Checksum)
	assert.Equal(t, "v", out[0].Metadata["k"])

	p.Metadata["k"] = "changed"
	assert.Equal(t, "v", out[0].Metadata["k"])
}

func TestVerify(t *testing.T) {
	data := `[{"role":"user","content":"hi"}]`
	good := payload("chatgpt", "json", data)
	good.DeclaredSize = int64(len(data))
	good.DeclaredChecksum = core.Checksum([]byte(data))
	assert.NoError(t, verify(good))

	truncated := good
	truncated.DeclaredSize = int64(len(data) + 10)
	assert.True(t, errors.Is(verify(truncated), core.ErrTruncated))

	corrupt := good
	corrupt.DeclaredChecksum = core.Checksum([]byte("other"))
	assert.True(t, errors.Is(verify(corrupt), core.ErrChecksumMismatch))

	assert.True(t, errors.Is(verify(payload("chatgpt", "json", "  ")), core.ErrEmptyPayload))
}

const chatgptExport = `[
  {
    "title": "Packing list",
    "create_time": 1700000000.0,
    "conversation_id": "conv-1",
    "current_node": "n3",
    "mapping": {
      "root": {"id": "root", "message": null, "parent": null, "children": ["n0"]},
      "n0": {"id": "n0", "parent": "root", "children": ["n1"],
             "message": {"id": "n0", "author": {"role": "system"}, "content": {"content_type": "text", "parts": [""]},
                         "metadata": {"is_visually_hidden_from_conversation": true}}},
      "n1": {"id": "n1", "parent": "n0", "children": ["n2", "n2b"],
             "message": {"id": "n1", "author": {"role": "user"}, "create_time": 1700000001.5,
                         "content": {"content_type": "text", "parts": ["what should I pack?"]}}},
      "n2b": {"id": "n2b", "parent": "n1", "children": [],
             "message": {"id": "n2b", "author": {"role": "assistant"}, "create_time": 1700000002,
                         "content": {"content_type": "text", "parts": ["abandoned branch"]}}},
      "n2": {"id": "n2", "parent": "n1", "children": ["n3"],
             "message": {"id": "n2", "author": {"role": "assistant"}, "create_time": 1700000003,
                         "content": {"content_type": "text", "parts": ["Sunscreen."]},
                         "metadata": {"model_slug": "gpt-4o"}}},
      "n3": {"id": "n3", "parent": "n2", "children": [],
             "message": {"id": "n3", "author": {"role": "user"}, "create_time": 1700000004,
                         "content": {"content_type": "text", "parts": ["thanks", {"asset_pointer": "file://x"}]}}}
    }
  },
  {
    "title": "Empty",
    "mapping": {"root": {"id": "root", "message": null, "parent": null, "children": []}}
  },
  {
    "title": "Second",
    "mapping": {
      "a": {"id": "a", "parent": null, "children": ["b"],
            "message": {"id": "a", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["hello"]}}},
      "b": {"id": "b", "parent": "a", "children": [],
            "message": {"id": "b", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["hi"]}}}
    }
  }
]`

func TestChatGPT_FansOutConversations(t *testing.T) {
	out, err := NewChatGPTAdapter().Translate(payload("chatgpt", "json", chatgptExport))
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, "Packing list", first.Title)
	assert.Equal(t, "json", first.Descriptor.Format)
	assert.Equal(t, "chatgpt", first.Descriptor.Platform)
	assert.Equal(t, core.Checksum(first.Data), first.Checksum)

	ec := extract(t, first)
	assert.True(t, ec.ProviderOrdered)
	assert.Equal(t, "conv-1", ec.Metadata["conversation_id"])
	assert.Equal(t, "1700000000", ec.Metadata["started_at"])
	require.Len(t, ec.Entries, 3)
	assert.Equal(t, "user", ec.Entries[0].SpeakerRaw)
	assert.Equal(t, "1700000001.5", ec.Entries[0].TimestampRaw)
	assert.Equal(t, "Sunscreen.", ec.Entries[1].TextRaw)
	assert.Equal(t, "gpt-4o", ec.Entries[1].Metadata["model"])
	assert.Equal(t, "thanks", ec.Entries[2].TextRaw)

	second := extract(t, out[1])
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "hello", second.Entries[0].TextRaw)
}

func TestChatGPT_PlainArrayPassesThrough(t *testing.T) {
	data := `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`
	out, err := NewChatGPTAdapter().Translate(payload("chatgpt", "", data))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, data, string(out[0].Data))
	assert.Equal(t, "json", out[0].Descriptor.Format)
}

func TestChatGPT_Malformed(t *testing.T) {
	for _, data := range []string{`{"title":"x"}`, `[{"mapping":`, `"str"`} {
		_, err := NewChatGPTAdapter().Translate(payload("chatgpt", "json", data))
		require.Error(t, err, data)
		assert.Equal(t, core.KindPermanent, core.KindOf(err))
	}
	_, err := NewChatGPTAdapter().Translate(payload("chatgpt", "json", `[{"title":"e","mapping":{}}]`))
	assert.True(t, errors.Is(err, ErrNoConversations))
}

func TestActiveBranch_WithoutCurrentNode(t *testing.T) {
	var conv chatgptConversation
	require.NoError(t, json.Unmarshal([]byte(`{"mapping":{
		"r":{"id":"r","parent":null,"children":["a","b"]},
		"a":{"id":"a","parent":"r","children":[]},
		"b":{"id":"b","parent":"r","children":["c"]},
		"c":{"id":"c","parent":"b","children":["r"]}
	}}`), &conv))
	var ids []string
	for _, n := range activeBranch(conv) {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"r", "b", "c"}, ids)
}

func TestClaude_Translate(t *testing.T) {
	data := `[{
		"uuid": "c-1", "name": "Refactor", "created_at": "2024-02-01T09:00:00Z",
		"chat_messages": [
			{"uuid": "m1", "sender": "human", "text": "help me refactor", "created_at": "2024-02-01T09:00:01Z"},
			{"uuid": "m2", "sender": "assistant", "text": "", "created_at": "2024-02-01T09:00:05Z",
			 "content": [{"type": "text", "text": "Sure."}, {"type": "tool_use"}, {"type": "text", "text": "Start here."}]},
			{"uuid": "m3", "sender": "human", "text": "   "}
		]
	}]`
	out, err := NewClaudeAdapter().Translate(payload("claude", "json", data))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Refactor", out[0].Title)

	ec := extract(t, out[0])
	require.Len(t, ec.Entries, 2)
	assert.Equal(t, "human", ec.Entries[0].SpeakerRaw)
	assert.Equal(t, "Sure.\nStart here.", ec.Entries[1].TextRaw)
	assert.Equal(t, "2024-02-01T09:00:00Z", ec.Metadata["started_at"])
}

func TestClaudeCode_FollowsParentChain(t *testing.T) {
	data := `{"type":"assistant","uuid":"u2","parentUuid":"u1","sessionId":"s1","timestamp":"2024-06-01T10:00:02Z","message":{"role":"assistant","content":[{"type":"text","text":"Reading the file."},{"type":"tool_use"}]}}
not json
{"type":"user","uuid":"u1","parentUuid":null,"sessionId":"s1","timestamp":"2024-06-01T10:00:00Z","message":{"role":"user","content":"fix the build"}}
{"type":"summary","uuid":"x"}
{"type":"user","uuid":"u3","parentUuid":"u2","sessionId":"s1","timestamp":"2024-06-01T10:00:03Z","message":{"role":"user","content":[{"type":"tool_result","content":"ok"}]}}
{"type":"assistant","uuid":"u4","parentUuid":"u3","sessionId":"s1","timestamp":"2024-06-01T10:00:04Z","message":{"role":"assistant","content":[{"type":"text","text":"Done."}]}}
{"type":"assistant","uuid":"u9","parentUuid":"gone","sessionId":"s1","timestamp":"2024-06-01T10:00:09Z","message":{"role":"assistant","content":"orphan"}}
`
	out, err := NewClaudeCodeAdapter().Translate(payload("claude-code", "jsonl", data))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "session s1", out[0].Title)

	ec := extract(t, out[0])
	assert.Equal(t, "s1", ec.Metadata["session_id"])
	var texts []string
	for _, e := range ec.Entries {
		texts = append(texts, e.TextRaw)
	}
	assert.Equal(t, []string{"fix the build", "Reading the file.", "Done.", "orphan"}, texts)
	assert.Equal(t, "user", ec.Entries[0].SpeakerRaw)
	assert.Equal(t, "u4", ec.Entries[2].Metadata["message_id"])
}

func TestClaudeCode_NothingToImport(t *testing.T) {
	_, err := NewClaudeCodeAdapter().Translate(payload("claude-code", "jsonl", "garbage\n{\"type\":\"summary\"}\n"))
	assert.True(t, errors.Is(err, ErrNoConversations))
}

func TestSocial_ReplyOrder(t *testing.T) {
	data := `{
		"thread_id": "t1", "title": "Best editor?",
		"posts": [
			{"id": "3", "author": "carol", "text": "vim", "reply_to": "1", "created_at": "2024-01-01T10:05:00Z"},
			{"id": "1", "author": "alice", "text": "Best editor?", "created_at": "2024-01-01T10:00:00Z"},
			{"id": "2", "author": "bob", "text": "emacs", "reply_to": "1", "created_at": "2024-01-01T10:01:00Z"},
			{"id": "4", "author": "alice", "text": "why?", "reply_to": "2", "created_at": "2024-01-01T10:09:00Z"}
		]
	}`
	out, err := NewSocialAdapter().Translate(payload("reddit", "json", data))
	require.NoError(t, err)
	require.Len(t, out, 1)

	ec := extract(t, out[0])
	var order, depth []string
	for _, e := range ec.Entries {
		order = append(order, e.Metadata["post_id"])
		depth = append(depth, e.Metadata["depth"])
	}
	assert.Equal(t, []string{"1", "2", "4", "3"}, order)
	assert.Equal(t, []string{"0", "1", "2", "1"}, depth)
	assert.Equal(t, "2", ec.Entries[2].Metadata["reply_to"])
	assert.Equal(t, "t1", ec.Metadata["thread_id"])
}

func TestSocial_BarePostsAndCycles(t *testing.T) {
	data := `[
		{"id": "a", "username": "u1", "body": "first", "parent_id": "b"},
		{"id": "b", "username": "u2", "body": "second", "parent_id": "a"},
		{"id": "c", "username": "u3", "body": "root"}
	]`
	out, err := NewSocialAdapter().Translate(payload("x", "", data))
	require.NoError(t, err)
	ec := extract(t, out[0])
	require.Len(t, ec.Entries, 3)
	assert.Equal(t, "root", ec.Entries[0].TextRaw)
	assert.Equal(t, "u1", ec.Entries[1].SpeakerRaw)
}

func TestSocial_MultipleThreads(t *testing.T) {
	data := `[{"id":"t1","posts":[{"id":"1","author":"a","text":"x"}]},{"id":"t2","posts":[{"id":"1","author":"b","text":"y"}]}]`
	out, err := NewSocialAdapter().Translate(payload("mastodon", "json", data))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
