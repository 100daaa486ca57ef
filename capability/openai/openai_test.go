package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is an llms.Model returning canned responses.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, f.err
}

func TestOCR_Process(t *testing.T) {
	model := &fakeModel{reply: "  Alice: hi\nBob: hello  "}
	ocr := newOCRWithClient(model)

	res, err := ocr.Process(context.Background(), capability.Request{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Alice: hi\nBob: hello", res.Text)

	require.Len(t, model.messages, 1)
	require.Len(t, model.messages[0].Parts, 2)
	bin, ok := model.messages[0].Parts[1].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", bin.MIMEType)
}

func TestOCR_EmptyImage(t *testing.T) {
	ocr := newOCRWithClient(&fakeModel{})
	_, err := ocr.Process(context.Background(), capability.Request{})
	assert.ErrorIs(t, err, capability.ErrPermanent)
}

func TestTranslator_Process(t *testing.T) {
	model := &fakeModel{reply: "hello"}
	tr := newTranslatorWithClient(model)

	res, err := tr.Process(context.Background(), capability.Request{Text: "hola", TargetLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "en", res.Language)

	_, err = tr.Process(context.Background(), capability.Request{Text: "hola"})
	assert.ErrorIs(t, err, capability.ErrPermanent)
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"rate limit status", errors.New("API returned unexpected status code: 429: slow down"), core.KindRateLimited},
		{"rate limit text", errors.New("Rate limit reached for requests"), core.KindRateLimited},
		{"bad request", errors.New("API returned unexpected status code: 400: bad image"), core.KindPermanent},
		{"server error", errors.New("API returned unexpected status code: 503"), core.KindTransient},
		{"network", errors.New("dial tcp: connection refused"), core.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capability.Classify(classifyLLMError(tt.err))
			assert.Equal(t, tt.want, core.KindOf(got))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 7*time.Second, parseRetryAfter("7", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}

func newTestTranscriber(t *testing.T, handler http.HandlerFunc) *Transcriber {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := capability.NewConfig(capability.WithHost(srv.URL))
	require.NoError(t, cfg.Validate())
	return newTranscriber(cfg, srv.Client())
}

func TestTranscriber_Process(t *testing.T) {
	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer none", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "episode.mp3", hdr.Filename)
		assert.Equal(t, "ID3audio", string(data))

		json.NewEncoder(w).Encode(map[string]any{
			"text":     "Welcome back. Thanks for having me.",
			"language": "english",
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.5, "text": " Welcome back."},
				{"start": 2.5, "end": 4.0, "text": " Thanks for having me."},
			},
		})
	})

	res, err := tr.Process(context.Background(), capability.Request{Data: []byte("ID3audio"), Filename: "episode.mp3"})
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, "Thanks for having me.", res.Segments[1].Text)
	assert.Equal(t, 2500*time.Millisecond, res.Segments[1].Start)
	assert.Equal(t, "english", res.Language)
}

func TestDiarizer_Process(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "gpt-4o-transcribe-diarize", r.FormValue("model"))
		assert.Equal(t, "diarized_json", r.FormValue("response_format"))
		assert.Equal(t, "auto", r.FormValue("chunking_strategy"))

		json.NewEncoder(w).Encode(map[string]any{
			"text": "Welcome back. Thanks for having me.",
			"segments": []map[string]any{
				{"speaker": "A", "start": 0.0, "end": 2.5, "text": " Welcome back."},
				{"speaker": "B", "start": 2.5, "end": 4.0, "text": " Thanks for having me."},
			},
		})
	}))
	defer srv.Close()

	cfg := capability.NewConfig(capability.WithHost(srv.URL))
	require.NoError(t, cfg.Validate())
	d := newDiarizer(cfg, srv.Client())
	assert.Equal(t, capability.KindDiarization, d.Kind())

	res, err := d.Process(context.Background(), capability.Request{Kind: capability.KindDiarization, Data: []byte("ID3audio")})
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, "A", res.Segments[0].Speaker)
	assert.Equal(t, "B", res.Segments[1].Speaker)
	assert.Equal(t, 4*time.Second, res.Segments[1].End)
	assert.Equal(t, "gpt-4o-transcribe-diarize", res.Metadata["diarization_model"])

	_, err = d.Process(context.Background(), capability.Request{Kind: capability.KindDiarization})
	assert.ErrorIs(t, err, capability.ErrPermanent)
}

func TestTranscriber_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    string
		wantKind  core.ErrorKind
		wantAfter time.Duration
	}{
		{"rate limited", http.StatusTooManyRequests, "3", core.KindRateLimited, 3 * time.Second},
		{"unsupported media", http.StatusUnsupportedMediaType, "", core.KindPermanent, 0},
		{"server error", http.StatusBadGateway, "", core.KindTransient, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				http.Error(w, "nope", tt.status)
			})

			_, err := tr.Process(context.Background(), capability.Request{Data: []byte("x")})
			classified := capability.Classify(err)
			assert.Equal(t, tt.wantKind, core.KindOf(classified))
			assert.Equal(t, tt.wantAfter, core.RetryAfterOf(classified))
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(capability.NewConfig())
	require.NoError(t, err)
	defer p.Close()

	for _, kind := range []capability.Kind{capability.KindOCR, capability.KindTranslation, capability.KindTranscription, capability.KindDiarization} {
		_, ok := p.Service(kind)
		assert.True(t, ok, kind)
	}

	noDiarization, err := NewProvider(capability.NewConfig(capability.WithDiarizationModel("")))
	require.NoError(t, err)
	defer noDiarization.Close()
	_, ok := noDiarization.Service(capability.KindDiarization)
	assert.False(t, ok)

	_, err = NewProvider(capability.NewConfig(capability.WithVisionModel("")))
	assert.Error(t, err)
}
