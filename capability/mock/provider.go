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

import "github.com/pranavsinghpatil/Open-Acumen-sub001/capability"

// MockProvider is a test double for capability.Provider.
type MockProvider struct {
	services map[capability.Kind]*MockService
}

var _ capability.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider with a default mock for every kind.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithKinds(
		capability.KindTranscription,
		capability.KindDiarization,
		capability.KindOCR,
		capability.KindTranslation,
	)
}

// NewMockProviderWithKinds creates a provider serving only kinds.
func NewMockProviderWithKinds(kinds ...capability.Kind) *MockProvider {
	p := &MockProvider{services: make(map[capability.Kind]*MockService, len(kinds))}
	for _, k := range kinds {
		p.services[k] = NewMockService(k)
	}
	return p
}

// Service returns the mock for kind.
func (p *MockProvider) Service(kind capability.Kind) (capability.Service, bool) {
	svc, ok := p.services[kind]
	if !ok {
		return nil, false
	}
	return svc, true
}

// Mock returns the concrete mock for kind for test assertions, or nil.
func (p *MockProvider) Mock(kind capability.Kind) *MockService {
	return p.services[kind]
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}
