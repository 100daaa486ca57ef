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
	"context"
	"time"
)

// Kind names a capability.
type Kind string

const (
	KindTranscription Kind = "transcription"
	KindDiarization   Kind = "diarization"
	KindOCR           Kind = "ocr"
	KindTranslation   Kind = "translation"
)

// Request is the input to a capability call.
type Request struct {
	Kind           Kind
	Data           []byte    // Media bytes for transcription, diarization and OCR
	MIMEType       string    // Media type of Data
	Filename       string    // Optional name sent with uploads
	Text           string    // Source text for translation
	TargetLanguage string    // Translation target, e.g. "en"
	Segments       []Segment // Transcript segments to label, diarization only
}

// Segment is a timed span of transcribed speech.
type Segment struct {
	Speaker string // Diarization label, empty if unknown
	Text    string
	Start   time.Duration
	End     time.Duration
}

// Result is the output of a capability call.
type Result struct {
	Text     string    // Full text: transcript, OCR text or translation
	Segments []Segment // Timed segments when the service provides them
	Language string    // Detected or target language
	Metadata map[string]string
}

// Service is one external capability. Implementations must be safe for
// concurrent use.
type Service interface {
	// Kind reports which capability the service provides.
	Kind() Kind

	// Process runs the capability on req.
	Process(ctx context.Context, req Request) (*Result, error)
}

// Provider aggregates the capability services available to the pipeline.
type Provider interface {
	// Service returns the service for kind, if one is configured.
	Service(kind Kind) (Service, bool)

	// Close releases resources held by the provider and its services.
	Close() error
}
