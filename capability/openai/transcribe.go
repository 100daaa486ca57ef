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

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
)

// Transcriber implements the transcription and diarization capabilities
// against the OpenAI-compatible /audio/transcriptions endpoint. Diarization
// uses a speaker-labelling model with the diarized_json response format.
type Transcriber struct {
	kind     capability.Kind
	endpoint string
	apiKey   string
	model    string
	format   string
	client   *http.Client
	logger   *slog.Logger
}

var _ capability.Service = (*Transcriber)(nil)

// transcription is the verbose_json or diarized_json response body.
type transcription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Speaker string  `json:"speaker"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
	} `json:"segments"`
}

// newTranscriber is an internal constructor that returns the concrete type.
func newTranscriber(config *capability.Config, client *http.Client) *Transcriber {
	return &Transcriber{
		kind:     capability.KindTranscription,
		endpoint: strings.TrimSuffix(config.TranscriptionHost, "/") + "/audio/transcriptions",
		apiKey:   config.APIKey,
		model:    config.TranscriptionModel,
		format:   "verbose_json",
		client:   client,
		logger:   slog.Default().With("component", "openai-transcriber"),
	}
}

// newDiarizer returns a Transcriber labelling speakers with
// config.DiarizationModel.
func newDiarizer(config *capability.Config, client *http.Client) *Transcriber {
	t := newTranscriber(config, client)
	t.kind = capability.KindDiarization
	t.model = config.DiarizationModel
	t.format = "diarized_json"
	t.logger = slog.Default().With("component", "openai-diarizer")
	return t
}

// Kind reports capability.KindTranscription or capability.KindDiarization.
func (t *Transcriber) Kind() capability.Kind {
	return t.kind
}

// Process uploads req.Data and returns the timed transcript. Diarized
// segments carry the speaker label reported by the model.
func (t *Transcriber) Process(ctx context.Context, req capability.Request) (*capability.Result, error) {
	if len(req.Data) == 0 {
		return nil, capability.Permanentf("%s: empty audio", t.kind)
	}

	body, contentType, err := t.buildForm(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrPermanent, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("request failed", "status", resp.StatusCode, "model", t.model)
		statusErr := fmt.Errorf("%s: status %d: %s", t.kind, resp.StatusCode, truncate(string(payload), 200))
		return nil, classifyStatus(resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), statusErr)
	}

	var tr transcription
	if err := json.Unmarshal(payload, &tr); err != nil {
		return nil, capability.Permanentf("%s: decode response: %v", t.kind, err)
	}

	result := &capability.Result{
		Text:     strings.TrimSpace(tr.Text),
		Language: tr.Language,
		Metadata: map[string]string{string(t.kind) + "_model": t.model},
	}
	for _, seg := range tr.Segments {
		result.Segments = append(result.Segments, capability.Segment{
			Speaker: seg.Speaker,
			Text:    strings.TrimSpace(seg.Text),
			Start:   seconds(seg.Start),
			End:     seconds(seg.End),
		})
	}
	if len(result.Segments) == 0 && result.Text != "" {
		result.Segments = []capability.Segment{{Text: result.Text, End: seconds(tr.Duration)}}
	}
	return result, nil
}

func (t *Transcriber) buildForm(req capability.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", t.model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("response_format", t.format); err != nil {
		return nil, "", err
	}
	if t.kind == capability.KindDiarization {
		if err := w.WriteField("chunking_strategy", "auto"); err != nil {
			return nil, "", err
		}
	}
	filename := req.Filename
	if filename == "" {
		filename = "audio"
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
