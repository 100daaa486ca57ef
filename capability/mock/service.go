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

package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
)

// MockService is a test double for capability.Service.
type MockService struct {
	// ProcessFunc allows custom behavior for Process.
	// If nil, uses the default behavior for the service kind.
	ProcessFunc func(ctx context.Context, req capability.Request) (*capability.Result, error)

	kind      capability.Kind
	callCount atomic.Int64
}

var _ capability.Service = (*MockService)(nil)

// NewMockService creates a mock service of kind with default behavior.
func NewMockService(kind capability.Kind) *MockService {
	return &MockService{kind: kind}
}

// Kind reports the mock's capability kind.
func (m *MockService) Kind() capability.Kind {
	return m.kind
}

// Process returns ProcessFunc's result or a canned result:
//   - transcription: one segment per non-empty line of Data, 5s apart
//   - diarization: segments labeled alternately SPEAKER_00 and SPEAKER_01
//   - ocr: Data as text
//   - translation: Text prefixed with the target language tag
func (m *MockService) Process(ctx context.Context, req capability.Request) (*capability.Result, error) {
	m.callCount.Add(1)

	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch m.kind {
	case capability.KindTranscription:
		var segments []capability.Segment
		var texts []string
		for _, line := range strings.Split(string(req.Data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			start := time.Duration(len(segments)) * 5 * time.Second
			segments = append(segments, capability.Segment{Text: line, Start: start, End: start + 5*time.Second})
			texts = append(texts, line)
		}
		return &capability.Result{Text: strings.Join(texts, " "), Segments: segments, Language: "en"}, nil
	case capability.KindDiarization:
		segments := make([]capability.Segment, len(req.Segments))
		for i, seg := range req.Segments {
			seg.Speaker = fmt.Sprintf("SPEAKER_%02d", i%2)
			segments[i] = seg
		}
		return &capability.Result{Segments: segments}, nil
	case capability.KindOCR:
		return &capability.Result{Text: string(req.Data)}, nil
	case capability.KindTranslation:
		return &capability.Result{Text: "[" + req.TargetLanguage + "] " + req.Text, Language: req.TargetLanguage}, nil
	}
	return nil, capability.Permanentf("mock: unsupported kind %q", m.kind)
}

// CallCount returns the number of times Process was called.
func (m *MockService) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockService) Reset() {
	m.callCount.Store(0)
	m.ProcessFunc = nil
}
