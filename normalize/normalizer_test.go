package normalize

import (
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var importedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(t *testing.T, opts ...Option) *Normalizer {
	t.Helper()
	n, err := New(opts...)
	require.NoError(t, err)
	return n
}

func hint(platform string) Hint {
	return Hint{Platform: platform, ItemID: "item-1", ImportedAt: importedAt}
}

func TestNormalize_ChatScenario(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		ProviderOrdered: true,
		Entries: []core.Entry{
			{Ordinal: 0, SpeakerRaw: "user", TextRaw: "hi", TimestampRaw: "2024-01-01T00:00:00Z"},
			{Ordinal: 1, SpeakerRaw: "assistant", TextRaw: "hello"},
		},
	}

	res, err := n.Normalize(ec, hint("chatgpt"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)

	first, second := res.Messages[0], res.Messages[1]
	assert.Equal(t, 0, first.SequenceIndex)
	assert.Equal(t, 1, second.SequenceIndex)
	assert.Equal(t, "user", first.Speaker)
	assert.Equal(t, "assistant", second.Speaker)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, importedAt, second.Timestamp)
	assert.Equal(t, core.MessageID("item-1", 1), second.ID)
	assert.Equal(t, core.ContentTypeText, first.ContentType)
	assert.Equal(t, "chatgpt", first.SourceMetadata["platform"])

	for i := range res.Messages {
		require.NoError(t, core.ValidateNormalizedMessage(&res.Messages[i]))
	}
}

func TestNormalize_TimestampFormats(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	n := newTestNormalizer(t, WithRules("zoned", DefaultRules().InLocation(est)))
	want := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		platform string
		raw      string
	}{
		{"rfc3339 utc", "generic", "2024-03-10T15:30:00Z"},
		{"rfc3339 offset", "generic", "2024-03-10T10:30:00-05:00"},
		{"rfc3339 nano", "generic", "2024-03-10T15:30:00.000000000Z"},
		{"epoch seconds", "generic", "1710084600"},
		{"epoch float", "generic", "1710084600.0"},
		{"epoch millis", "generic", "1710084600000"},
		{"naive in utc", "generic", "2024-03-10 15:30:00"},
		{"naive in platform zone", "zoned", "2024-03-10 10:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := &core.ExtractedContent{Entries: []core.Entry{{SpeakerRaw: "user", TextRaw: "x", TimestampRaw: tt.raw}}}
			res, err := n.Normalize(ec, hint(tt.platform))
			require.NoError(t, err)
			assert.True(t, want.Equal(res.Messages[0].Timestamp), "got %v", res.Messages[0].Timestamp)
			assert.Equal(t, time.UTC, res.Messages[0].Timestamp.Location())
		})
	}
}

func TestNormalize_RelativeOffsets(t *testing.T) {
	n := newTestNormalizer(t)
	off := func(d time.Duration) *time.Duration { return &d }
	ec := &core.ExtractedContent{
		ContentType: core.ContentTypeTranscript,
		Entries: []core.Entry{
			{TextRaw: "second", Offset: off(30 * time.Second)},
			{TextRaw: "first", Offset: off(5 * time.Second)},
		},
	}

	res, err := n.Normalize(ec, hint("podcast"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "first", res.Messages[0].Content)
	assert.Equal(t, importedAt.Add(5*time.Second), res.Messages[0].Timestamp)
	assert.Equal(t, core.ContentTypeTranscript, res.Messages[0].ContentType)
}

func TestNormalize_StartedAtAnchor(t *testing.T) {
	n := newTestNormalizer(t)
	d := 10 * time.Second
	ec := &core.ExtractedContent{
		Metadata: map[string]string{"started_at": "2024-05-05T05:00:00Z"},
		Entries:  []core.Entry{{TextRaw: "x", Offset: &d}},
	}

	res, err := n.Normalize(ec, hint("podcast"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 5, 5, 0, 10, 0, time.UTC), res.Messages[0].Timestamp)
}

func TestNormalize_TimestampOrderStableTieBreak(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		Entries: []core.Entry{
			{SpeakerRaw: "a", TextRaw: "late", TimestampRaw: "2024-01-01T00:00:10Z"},
			{SpeakerRaw: "b", TextRaw: "tie-1", TimestampRaw: "2024-01-01T00:00:05Z"},
			{SpeakerRaw: "c", TextRaw: "tie-2", TimestampRaw: "2024-01-01T00:00:05Z"},
			{SpeakerRaw: "d", TextRaw: "early", TimestampRaw: "2024-01-01T00:00:00Z"},
		},
	}

	for range 5 {
		res, err := n.Normalize(ec, hint("generic"))
		require.NoError(t, err)
		var got []string
		for _, m := range res.Messages {
			got = append(got, m.Content)
		}
		assert.Equal(t, []string{"early", "tie-1", "tie-2", "late"}, got)
	}
}

func TestNormalize_ProviderOrderWins(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		ProviderOrdered: true,
		Entries: []core.Entry{
			{Ordinal: 2, TextRaw: "c", TimestampRaw: "2024-01-01T00:00:00Z"},
			{Ordinal: 0, TextRaw: "a", TimestampRaw: "2024-01-03T00:00:00Z"},
			{Ordinal: 1, TextRaw: "b", TimestampRaw: "2024-01-02T00:00:00Z"},
		},
	}

	res, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)
	assert.Equal(t, "a", res.Messages[0].Content)
	assert.Equal(t, "b", res.Messages[1].Content)
	assert.Equal(t, "c", res.Messages[2].Content)
}

func TestNormalize_Speakers(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		ProviderOrdered: true,
		Entries: []core.Entry{
			{Ordinal: 0, SpeakerRaw: "Human", TextRaw: "1"},
			{Ordinal: 1, SpeakerRaw: "SPEAKER_01", TextRaw: "2"},
			{Ordinal: 2, SpeakerRaw: "", TextRaw: "3"},
			{Ordinal: 3, SpeakerRaw: "speaker_01", TextRaw: "4"},
			{Ordinal: 4, SpeakerRaw: "  Alice ", TextRaw: "5"},
			{Ordinal: 5, SpeakerRaw: "function", TextRaw: "6"},
		},
	}

	res, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)

	var got []string
	for _, m := range res.Messages {
		got = append(got, m.Speaker)
	}
	assert.Equal(t, []string{"user", "unknown-0", "unknown-1", "unknown-0", "alice", "tool"}, got)
	assert.Equal(t, "SPEAKER_01", res.Messages[1].SourceMetadata["speaker_raw"])
}

func TestNormalize_DegradedSpeakers(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		ContentType: core.ContentTypeTranscript,
		Metadata:    map[string]string{"degraded": "diarization unavailable"},
		Entries:     []core.Entry{{TextRaw: "one"}, {TextRaw: "two"}},
	}

	res, err := n.Normalize(ec, hint("podcast"))
	require.NoError(t, err)
	for _, m := range res.Messages {
		assert.Equal(t, "unknown-0", m.Speaker)
		assert.Equal(t, "diarization unavailable", m.SourceMetadata["degraded"])
	}
}

func TestNormalize_SkipsMalformedEntries(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		ProviderOrdered: true,
		Entries: []core.Entry{
			{Ordinal: 0, SpeakerRaw: "user", TextRaw: "   "},
			{Ordinal: 1, SpeakerRaw: "user", TextRaw: "ok"},
			{Ordinal: 2, SpeakerRaw: "user", TextRaw: "bad ts", TimestampRaw: "yesterday-ish"},
		},
	}

	res, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, 0, res.Messages[0].SequenceIndex)
	assert.Len(t, res.Warnings, 2)
}

func TestNormalize_EmptyResult(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{Entries: []core.Entry{{TextRaw: ""}}}

	_, err := n.Normalize(ec, hint("generic"))
	require.ErrorIs(t, err, core.ErrEmptyNormalizationResult)
	assert.Equal(t, core.KindPermanent, core.KindOf(err))
	assert.Equal(t, core.CodeNormalization, core.CodeOf(err, ""))

	_, err = n.Normalize(&core.ExtractedContent{}, hint("generic"))
	assert.ErrorIs(t, err, core.ErrEmptyNormalizationResult)
}

func TestNormalize_Analysis(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{Entries: []core.Entry{{SpeakerRaw: "user", TextRaw: "Is this café open?"}}}

	res, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)
	md := res.Messages[0].SourceMetadata
	assert.Equal(t, "4", md["word_count"])
	assert.Equal(t, "18", md["char_count"])
	assert.Equal(t, "true", md["has_question"])
}

func TestNormalize_Deterministic(t *testing.T) {
	n := newTestNormalizer(t)
	ec := &core.ExtractedContent{
		Entries: []core.Entry{
			{SpeakerRaw: "x", TextRaw: "a", TimestampRaw: "2024-01-01T00:00:00Z"},
			{SpeakerRaw: "", TextRaw: "b"},
		},
	}

	first, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)
	second, err := n.Normalize(ec, hint("generic"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(WithRules("", DefaultRules()))
	assert.Error(t, err)
	_, err = New(WithLogger(nil))
	assert.Error(t, err)
}
