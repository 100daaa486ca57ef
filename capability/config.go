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

package capability

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for OpenAI-compatible capability services.
type Config struct {
	// Host is the base URL for vision and chat APIs.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// TranscriptionHost is the base URL for the audio transcription API.
	// Defaults to Host when empty.
	TranscriptionHost string

	// APIKey is sent as the bearer token. Local servers accept "none".
	APIKey string

	// VisionModel is the model used for OCR on images.
	// Example: "llava", "gpt-4o-mini"
	VisionModel string

	// TranslationModel is the chat model used for translation.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	TranslationModel string

	// TranscriptionModel is the speech-to-text model.
	// Example: "whisper-1"
	TranscriptionModel string

	// DiarizationModel is the speaker-labelling transcription model, sent
	// to the same endpoint with the diarized_json response format. Empty
	// disables diarization; media imports then carry unknown speakers.
	// Example: "gpt-4o-transcribe-diarize"
	DiarizationModel string

	// MaxConcurrency bounds in-flight calls per service.
	// Default: 4
	MaxConcurrency int

	// RequestTimeout bounds a single HTTP request to the transcription API.
	// Default: 5m
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the vision/chat host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithTranscriptionHost sets the transcription host URL.
func WithTranscriptionHost(host string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionHost = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithVisionModel sets the OCR model.
func WithVisionModel(model string) ConfigOption {
	return func(c *Config) {
		c.VisionModel = model
	}
}

// WithTranslationModel sets the translation model.
func WithTranslationModel(model string) ConfigOption {
	return func(c *Config) {
		c.TranslationModel = model
	}
}

// WithTranscriptionModel sets the speech-to-text model.
func WithTranscriptionModel(model string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionModel = model
	}
}

// WithDiarizationModel sets the diarization model. An empty model disables
// diarization.
func WithDiarizationModel(model string) ConfigOption {
	return func(c *Config) {
		c.DiarizationModel = model
	}
}

// WithMaxConcurrency sets the per-service concurrency bound.
func WithMaxConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.MaxConcurrency = n
	}
}

// WithRequestTimeout sets the transcription request timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// DefaultConfig returns a Config with defaults for a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		Host:               "http://localhost:11434/v1",
		APIKey:             "none",
		VisionModel:        "llava",
		TranslationModel:   "qwen2.5:3b",
		TranscriptionModel: "whisper-1",
		DiarizationModel:   "gpt-4o-transcribe-diarize",
		MaxConcurrency:     4,
		RequestTimeout:     5 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("https://api.openai.com/v1"),
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    WithVisionModel("gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures hosts end in /v1 and fills derived defaults.
func (c *Config) Normalize() {
	c.Host = withV1(c.Host)
	if c.TranscriptionHost == "" {
		c.TranscriptionHost = c.Host
	}
	c.TranscriptionHost = withV1(c.TranscriptionHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("capability config: Host is required")
	}
	if c.VisionModel == "" {
		return errors.New("capability config: VisionModel is required")
	}
	if c.TranslationModel == "" {
		return errors.New("capability config: TranslationModel is required")
	}
	if c.TranscriptionModel == "" {
		return errors.New("capability config: TranscriptionModel is required")
	}
	if c.MaxConcurrency < 1 {
		return errors.New("capability config: MaxConcurrency must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("capability config: RequestTimeout must be positive")
	}
	return nil
}
