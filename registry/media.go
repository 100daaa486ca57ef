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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// DegradedKey is the metadata key recording why extraction was degraded.
const DegradedKey = "degraded"

var mediaFormats = map[string]string{
	"mp3": "audio", "wav": "audio", "m4a": "audio", "aac": "audio", "flac": "audio",
	"ogg": "audio", "opus": "audio", "audio": "audio",
	"mp4": "video", "mov": "video", "webm": "video", "mkv": "video", "avi": "video", "video": "video",
	"png": "image", "jpg": "image", "jpeg": "image", "gif": "image", "webp": "image",
	"bmp": "image", "tiff": "image", "image": "image",
}

// MediaHandler extracts audio, video and image payloads through capability
// services: transcription plus diarization for audio and video, OCR for
// images.
type MediaHandler struct {
	provider capability.Provider
	logger   *slog.Logger
}

var _ FormatHandler = (*MediaHandler)(nil)

// MediaOption configures a MediaHandler.
type MediaOption func(*MediaHandler) error

// WithMediaLogger sets the handler logger.
func WithMediaLogger(logger *slog.Logger) MediaOption {
	return func(h *MediaHandler) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		h.logger = logger
		return nil
	}
}

// NewMediaHandler creates the media handler backed by provider.
func NewMediaHandler(provider capability.Provider, opts ...MediaOption) (*MediaHandler, error) {
	if provider == nil {
		return nil, errors.New("capability provider is required")
	}
	h := &MediaHandler{provider: provider, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "media-handler")
	return h, nil
}

func (h *MediaHandler) Name() string { return "media" }
func (h *MediaHandler) Media() bool  { return true }

func (h *MediaHandler) Matches(desc core.Descriptor) bool {
	return IsMedia(desc)
}

// IsMedia reports whether desc declares an audio, video or image payload.
func IsMedia(desc core.Descriptor) bool {
	if _, ok := mediaFormats[strings.ToLower(desc.Format)]; ok {
		return true
	}
	return familyOf(desc.MIMEType) != ""
}

// Validate sniffs the payload and checks it agrees with the declared family.
func (h *MediaHandler) Validate(raw core.RawContent) error {
	_, _, err := h.sniff(raw)
	return err
}

func (h *MediaHandler) Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error) {
	family, mime, err := h.sniff(raw)
	if err != nil {
		return nil, err
	}

	var ec *core.ExtractedContent
	if family == "image" {
		ec, err = h.extractImage(ctx, raw, mime)
	} else {
		ec, err = h.extractSpeech(ctx, raw, mime)
	}
	if err != nil {
		return nil, err
	}

	if ec.Metadata == nil {
		ec.Metadata = make(map[string]string)
	}
	ec.Metadata["media_type"] = mime
	for _, key := range []string{"recorded_at", "started_at"} {
		if v := raw.Metadata[key]; v != "" {
			ec.Metadata["started_at"] = v
			break
		}
	}
	return ec, nil
}

func (h *MediaHandler) sniff(raw core.RawContent) (family, mime string, err error) {
	if len(raw.Data) == 0 {
		return "", "", malformed("media: empty payload")
	}
	detected := mimetype.Detect(raw.Data)
	mime = detected.String()
	family = familyOf(mime)
	for p := detected.Parent(); family == "" && p != nil; p = p.Parent() {
		family = familyOf(p.String())
	}
	if family == "" {
		return "", "", malformed("media: content sniffed as %s", mime)
	}

	declared := mediaFormats[strings.ToLower(raw.Descriptor.Format)]
	if declared == "" {
		declared = familyOf(raw.Descriptor.MIMEType)
	}
	// audio and video containers share formats (mp4, webm, ogg)
	if declared != "" && (declared == "image") != (family == "image") {
		return "", "", malformed("media: declared %s but content is %s", declared, mime)
	}
	return family, mime, nil
}

func (h *MediaHandler) extractImage(ctx context.Context, raw core.RawContent, mime string) (*core.ExtractedContent, error) {
	svc, err := h.service(capability.KindOCR)
	if err != nil {
		return nil, err
	}
	res, err := svc.Process(ctx, capability.Request{
		Kind:     capability.KindOCR,
		Data:     raw.Data,
		MIMEType: mime,
		Filename: filename(raw),
	})
	if err != nil {
		return nil, capability.Classify(err)
	}
	return &core.ExtractedContent{
		Entries:         ParseTranscript(res.Text),
		ProviderOrdered: true,
		ContentType:     core.ContentTypeOCR,
		Metadata:        res.Metadata,
	}, nil
}

func (h *MediaHandler) extractSpeech(ctx context.Context, raw core.RawContent, mime string) (*core.ExtractedContent, error) {
	svc, err := h.service(capability.KindTranscription)
	if err != nil {
		return nil, err
	}
	res, err := svc.Process(ctx, capability.Request{
		Kind:     capability.KindTranscription,
		Data:     raw.Data,
		MIMEType: mime,
		Filename: filename(raw),
	})
	if err != nil {
		return nil, capability.Classify(err)
	}

	segments := res.Segments
	if len(segments) == 0 && strings.TrimSpace(res.Text) != "" {
		segments = []capability.Segment{{Text: res.Text}}
	}

	ec := &core.ExtractedContent{
		ProviderOrdered: true,
		ContentType:     core.ContentTypeTranscript,
		Metadata:        map[string]string{},
	}
	for k, v := range res.Metadata {
		ec.Metadata[k] = v
	}
	if res.Language != "" {
		ec.Metadata["language"] = res.Language
	}

	labeled, reason, err := h.diarize(ctx, raw, mime, segments)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		ec.Metadata[DegradedKey] = reason
		ec.Warnings = append(ec.Warnings, reason)
		h.logger.Warn("speaker attribution degraded", "reason", reason, "segments", len(segments))
		labeled = segments
		for i := range labeled {
			labeled[i].Speaker = ""
		}
	}

	for i, seg := range labeled {
		offset := seg.Start
		ec.Entries = append(ec.Entries, core.Entry{
			Ordinal:    i,
			SpeakerRaw: seg.Speaker,
			TextRaw:    seg.Text,
			Offset:     &offset,
			Metadata: map[string]string{
				"segment_start": seg.Start.String(),
				"segment_end":   seg.End.String(),
			},
		})
	}
	return ec, nil
}

// diarize labels segments with speakers. A non-empty reason means speaker
// attribution is unavailable and extraction continues degraded. Only
// cancellation is returned as an error.
func (h *MediaHandler) diarize(ctx context.Context, raw core.RawContent, mime string, segments []capability.Segment) ([]capability.Segment, string, error) {
	svc, ok := h.provider.Service(capability.KindDiarization)
	if !ok {
		return nil, "diarization unavailable", nil
	}
	res, err := svc.Process(ctx, capability.Request{
		Kind:     capability.KindDiarization,
		Data:     raw.Data,
		MIMEType: mime,
		Filename: filename(raw),
		Segments: segments,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, fmt.Sprintf("diarization failed: %v", err), nil
	}
	if len(res.Segments) == 0 {
		return nil, "diarization returned no segments", nil
	}
	return alignSpeakers(segments, res.Segments), "", nil
}

// alignSpeakers copies speaker labels onto the transcript segments. Labels
// are taken by index when the counts agree, otherwise from the diarized span
// overlapping each segment the most.
func alignSpeakers(segments, diarized []capability.Segment) []capability.Segment {
	out := make([]capability.Segment, len(segments))
	copy(out, segments)
	if len(diarized) == len(segments) {
		for i := range out {
			out[i].Speaker = diarized[i].Speaker
		}
		return out
	}
	for i, seg := range out {
		var best time.Duration = -1
		for _, d := range diarized {
			if ov := overlap(seg, d); ov > best {
				best = ov
				out[i].Speaker = d.Speaker
			}
		}
	}
	return out
}

func overlap(a, b capability.Segment) time.Duration {
	start := max(a.Start, b.Start)
	end := min(a.End, b.End)
	if end < start {
		return 0
	}
	return end - start
}

func (h *MediaHandler) service(kind capability.Kind) (capability.Service, error) {
	svc, ok := h.provider.Service(kind)
	if !ok {
		return nil, core.Permanent(core.CodeExtraction, fmt.Errorf("%w: %s", capability.ErrUnavailable, kind))
	}
	return svc, nil
}

func familyOf(mime string) string {
	base := mimeBase(mime)
	switch {
	case strings.HasPrefix(base, "audio/"), base == "application/ogg":
		return "audio"
	case strings.HasPrefix(base, "video/"):
		return "video"
	case strings.HasPrefix(base, "image/"):
		return "image"
	}
	return ""
}

func filename(raw core.RawContent) string {
	if raw.Title != "" {
		return raw.Title
	}
	if f := strings.ToLower(raw.Descriptor.Format); f != "" {
		return "upload." + f
	}
	return "upload"
}
