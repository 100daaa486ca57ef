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
	"fmt"
	"log/slog"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Translator implements the translation capability with a chat model.
type Translator struct {
	client llms.Model
	logger *slog.Logger
}

var _ capability.Service = (*Translator)(nil)

// newTranslator is an internal constructor that returns the concrete type.
func newTranslator(config *capability.Config) (*Translator, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.TranslationModel),
	)
	if err != nil {
		return nil, err
	}
	return newTranslatorWithClient(client), nil
}

func newTranslatorWithClient(client llms.Model) *Translator {
	return &Translator{
		client: client,
		logger: slog.Default().With("component", "openai-translator"),
	}
}

// Kind reports capability.KindTranslation.
func (t *Translator) Kind() capability.Kind {
	return capability.KindTranslation
}

// Process translates req.Text into req.TargetLanguage.
func (t *Translator) Process(ctx context.Context, req capability.Request) (*capability.Result, error) {
	if req.TargetLanguage == "" {
		return nil, capability.Permanentf("translation: target language is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return &capability.Result{Language: req.TargetLanguage}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf("Translate the user's message into %s. Output only the translation.", req.TargetLanguage)),
			},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(req.Text)},
		},
	}

	response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		t.logger.Warn("translation request failed", "err", err)
		return nil, classifyLLMError(err)
	}
	if len(response.Choices) < 1 {
		return nil, capability.Permanentf("translation: model returned no choices")
	}

	return &capability.Result{
		Text:     strings.TrimSpace(response.Choices[0].Content),
		Language: req.TargetLanguage,
	}, nil
}
