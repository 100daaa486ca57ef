package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability/mock"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = "\x89PNG\r\n\x1a\n"
	mp3Header = "ID3\x03\x00\x00\x00\x00\x00\x00"
)

func mediaRaw(format, data string) core.RawContent {
	r := core.NewRawContent(core.Descriptor{Platform: "podcast", Format: format}, []byte(data))
	r.Metadata = map[string]string{"recorded_at": "2024-05-01T12:00:00Z"}
	return r
}

func newMedia(t *testing.T, provider capability.Provider) *MediaHandler {
	t.Helper()
	h, err := NewMediaHandler(provider)
	require.NoError(t, err)
	return h
}

func segmentsFunc(segs ...capability.Segment) func(context.Context, capability.Request) (*capability.Result, error) {
	return func(ctx context.Context, req capability.Request) (*capability.Result, error) {
		return &capability.Result{Segments: segs, Language: "en"}, nil
	}
}

func TestMediaHandler_Matches(t *testing.T) {
	h := newMedia(t, mock.NewMockProvider())
	assert.True(t, h.Matches(core.Descriptor{Format: "mp3"}))
	assert.True(t, h.Matches(core.Descriptor{Format: "PNG"}))
	assert.True(t, h.Matches(core.Descriptor{MIMEType: "video/mp4"}))
	assert.False(t, h.Matches(core.Descriptor{Format: "json"}))
	assert.True(t, h.Media())
}

func TestMediaHandler_Validate(t *testing.T) {
	h := newMedia(t, mock.NewMockProvider())
	assert.NoError(t, h.Validate(mediaRaw("mp3", mp3Header+"audio")))
	assert.NoError(t, h.Validate(mediaRaw("png", pngHeader+"pixels")))

	for _, r := range []core.RawContent{
		mediaRaw("mp3", "plain text pretending to be audio"),
		mediaRaw("png", mp3Header+"audio"),
		mediaRaw("mp3", pngHeader+"pixels"),
		mediaRaw("mp3", ""),
	} {
		err := h.Validate(r)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrMalformed))
	}
}

func TestMediaHandler_TranscribeAndDiarize(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.Mock(capability.KindTranscription).ProcessFunc = segmentsFunc(
		capability.Segment{Text: "welcome to the show", Start: 0, End: 4 * time.Second},
		capability.Segment{Text: "thanks for having me", Start: 4 * time.Second, End: 9 * time.Second},
	)
	h := newMedia(t, provider)

	ec, err := h.Extract(context.Background(), mediaRaw("mp3", mp3Header+"audio"))
	require.NoError(t, err)

	assert.Equal(t, core.ContentTypeTranscript, ec.ContentType)
	assert.True(t, ec.ProviderOrdered)
	assert.Equal(t, "2024-05-01T12:00:00Z", ec.Metadata["started_at"])
	assert.Equal(t, "en", ec.Metadata["language"])
	assert.Empty(t, ec.Metadata[DegradedKey])
	require.Len(t, ec.Entries, 2)
	assert.Equal(t, "SPEAKER_00", ec.Entries[0].SpeakerRaw)
	assert.Equal(t, "SPEAKER_01", ec.Entries[1].SpeakerRaw)
	require.NotNil(t, ec.Entries[1].Offset)
	assert.Equal(t, 4*time.Second, *ec.Entries[1].Offset)
	assert.Equal(t, 1, provider.Mock(capability.KindDiarization).CallCount())
}

func TestMediaHandler_DiarizationUnavailableDegrades(t *testing.T) {
	provider := mock.NewMockProviderWithKinds(capability.KindTranscription)
	h := newMedia(t, provider)

	ec, err := h.Extract(context.Background(), mediaRaw("mp3", mp3Header+"\nfirst line\nsecond line"))
	require.NoError(t, err)
	assert.Equal(t, "diarization unavailable", ec.Metadata[DegradedKey])
	require.NotEmpty(t, ec.Warnings)
	for _, e := range ec.Entries {
		assert.Empty(t, e.SpeakerRaw)
	}
}

func TestMediaHandler_DiarizationFailureDegrades(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.Mock(capability.KindTranscription).ProcessFunc = segmentsFunc(
		capability.Segment{Speaker: "guest", Text: "hello", End: time.Second},
	)
	provider.Mock(capability.KindDiarization).ProcessFunc = func(ctx context.Context, req capability.Request) (*capability.Result, error) {
		return nil, errors.New("model crashed")
	}
	h := newMedia(t, provider)

	ec, err := h.Extract(context.Background(), mediaRaw("mp3", mp3Header))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ec.Metadata[DegradedKey], "diarization failed"))
	require.Len(t, ec.Entries, 1)
	assert.Empty(t, ec.Entries[0].SpeakerRaw)
}

func TestMediaHandler_TranscriptionErrorsClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind core.ErrorKind
	}{
		{"rate limited", &capability.RetryAfterError{After: time.Second, Err: errors.New("429")}, core.KindRateLimited},
		{"permanent", capability.Permanentf("bad codec"), core.KindPermanent},
		{"transient", errors.New("connection reset"), core.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProvider()
			provider.Mock(capability.KindTranscription).ProcessFunc = func(ctx context.Context, req capability.Request) (*capability.Result, error) {
				return nil, tt.err
			}
			_, err := newMedia(t, provider).Extract(context.Background(), mediaRaw("mp3", mp3Header))
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
			assert.Equal(t, core.CodeExtraction, core.CodeOf(err, ""))
		})
	}
}

func TestMediaHandler_MissingTranscriptionIsPermanent(t *testing.T) {
	h := newMedia(t, mock.NewMockProviderWithKinds(capability.KindOCR))
	_, err := h.Extract(context.Background(), mediaRaw("mp3", mp3Header))
	require.Error(t, err)
	assert.True(t, errors.Is(err, capability.ErrUnavailable))
	assert.Equal(t, core.KindPermanent, core.KindOf(err))
}

func TestMediaHandler_OCR(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.Mock(capability.KindOCR).ProcessFunc = func(ctx context.Context, req capability.Request) (*capability.Result, error) {
		assert.Equal(t, "image/png", req.MIMEType)
		return &capability.Result{Text: "alice: lunch?\nbob: sure"}, nil
	}
	h := newMedia(t, provider)

	ec, err := h.Extract(context.Background(), mediaRaw("png", pngHeader+"pixels"))
	require.NoError(t, err)
	assert.Equal(t, core.ContentTypeOCR, ec.ContentType)
	require.Len(t, ec.Entries, 2)
	assert.Equal(t, "bob", ec.Entries[1].SpeakerRaw)
	assert.Equal(t, 0, provider.Mock(capability.KindTranscription).CallCount())
}

func TestAlignSpeakers_ByOverlap(t *testing.T) {
	segments := []capability.Segment{
		{Text: "a", Start: 0, End: 2 * time.Second},
		{Text: "b", Start: 2 * time.Second, End: 6 * time.Second},
		{Text: "c", Start: 6 * time.Second, End: 7 * time.Second},
	}
	diarized := []capability.Segment{
		{Speaker: "host", Start: 0, End: 3 * time.Second},
		{Speaker: "guest", Start: 3 * time.Second, End: 7 * time.Second},
	}
	out := alignSpeakers(segments, diarized)
	assert.Equal(t, "host", out[0].Speaker)
	assert.Equal(t, "guest", out[1].Speaker)
	assert.Equal(t, "guest", out[2].Speaker)
	assert.Empty(t, segments[0].Speaker)
}
