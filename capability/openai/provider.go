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
	"log/slog"
	"net/http"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
)

// NewProvider creates transcription, diarization, OCR and translation
// services for config, each limited to config.MaxConcurrency concurrent
// calls. Diarization is left out when config.DiarizationModel is empty.
//
// Returns capability.Provider interface (not *capability.Set) to keep callers
// independent of the OpenAI implementation.
func NewProvider(config *capability.Config) (capability.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ocr, err := newOCR(config)
	if err != nil {
		return nil, err
	}
	translator, err := newTranslator(config)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: config.RequestTimeout}
	services := []capability.Service{ocr, translator, newTranscriber(config, client)}
	if config.DiarizationModel != "" {
		services = append(services, newDiarizer(config, client))
	}

	set := capability.NewSet(services...).Limit(config.MaxConcurrency)
	logger := slog.Default().With("component", "openai-provider")
	set.OnClose(func() error {
		logger.Debug("closing OpenAI provider")
		client.CloseIdleConnections()
		return nil
	})
	return set, nil
}
