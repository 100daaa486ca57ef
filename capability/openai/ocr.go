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
	"context"
	"log/slog"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const ocrPrompt = "Transcribe all text visible in this image exactly as written. " +
	"If the image shows a chat or message thread, write one message per line as \"Speaker: text\". " +
	"Output only the transcription."

// OCR implements the OCR capability with a vision model.
type OCR struct {
	client llms.Model
	logger *slog.Logger
}

var _ capability.Service = (*OCR)(nil)

// newOCR is an internal constructor that returns the concrete type.
func newOCR(config *capability.Config) (*OCR, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.VisionModel),
	)
	if err != nil {
		return nil, err
	}
	return newOCRWithClient(client), nil
}

func newOCRWithClient(client llms.Model) *OCR {
	return &OCR{
		client: client,
		logger: slog.Default().With("component", "openai-ocr"),
	}
}

// Kind reports capability.KindOCR.
func (o *OCR) Kind() capability.Kind {
	return capability.KindOCR
}

// Process extracts the text shown in req.Data.
func (o *OCR) Process(ctx context.Context, req capability.Request) (*capability.Result, error) {
	if len(req.Data) == 0 {
		return nil, capability.Permanentf("ocr: empty image")
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(ocrPrompt),
				llms.BinaryPart(mime, req.Data),
			},
		},
	}

	response, err := o.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		o.logger.Warn("vision request failed", "err", err)
		return nil, classifyLLMError(err)
	}
	if len(response.Choices) < 1 {
		return nil, capability.Permanentf("ocr: model returned no choices")
	}

	return &capability.Result{
		Text:     strings.TrimSpace(response.Choices[0].Content),
		Metadata: map[string]string{"ocr_model": "vision"},
	}, nil
}
