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

package adapter

import (
	"bytes"
	"fmt"
	"maps"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// Payload is submitted content before platform translation.
type Payload struct {
	Descriptor       core.Descriptor
	Data             []byte
	DeclaredSize     int64
	DeclaredChecksum string
	Title            string
	Metadata         map[string]string
}

// PlatformAdapter turns a platform payload into RawContent. Implementations
// must be safe for concurrent use.
type PlatformAdapter interface {
	// Name identifies the adapter.
	Name() string

	// Matches reports whether the adapter handles desc.
	Matches(desc core.Descriptor) bool

	// Translate converts the payload into one RawContent per conversation.
	Translate(p Payload) ([]core.RawContent, error)
}

// Set resolves adapters in registration order.
type Set struct {
	adapters []PlatformAdapter
}

// NewSet builds a Set. Adapter names must be unique.
func NewSet(adapters ...PlatformAdapter) (*Set, error) {
	seen := make(map[string]bool, len(adapters))
	for _, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("adapter: nil adapter")
		}
		if seen[a.Name()] {
			return nil, fmt.Errorf("adapter: duplicate adapter %q", a.Name())
		}
		seen[a.Name()] = true
	}
	return &Set{adapters: append([]PlatformAdapter(nil), adapters...)}, nil
}

// Resolve returns the first adapter matching desc.
func (s *Set) Resolve(desc core.Descriptor) (PlatformAdapter, error) {
	for _, a := range s.adapters {
		if a.Matches(desc) {
			return a, nil
		}
	}
	return nil, core.Permanent(core.CodeUnsupportedFormat,
		fmt.Errorf("%w: no adapter for platform %q", core.ErrUnsupportedFormat, desc.Platform))
}

// Translate resolves the adapter for p and runs it.
func (s *Set) Translate(p Payload) ([]core.RawContent, error) {
	a, err := s.Resolve(p.Descriptor)
	if err != nil {
		return nil, err
	}
	return a.Translate(p)
}

// Names lists adapter names in resolution order.
func (s *Set) Names() []string {
	names := make([]string, len(s.adapters))
	for i, a := range s.adapters {
		names[i] = a.Name()
	}
	return names
}

// Builtin returns the built-in adapters, generic last.
func Builtin() []PlatformAdapter {
	return []PlatformAdapter{
		NewClaudeCodeAdapter(),
		NewChatGPTAdapter(),
		NewClaudeAdapter(),
		NewSocialAdapter(),
		NewMediaAdapter(),
		NewGenericAdapter(),
	}
}

// passthrough forwards the payload untouched. Declared size and checksum
// travel with it and are checked by validation.
func passthrough(p Payload) core.RawContent {
	raw := core.NewRawContent(p.Descriptor, p.Data)
	raw.DeclaredSize = p.DeclaredSize
	raw.DeclaredChecksum = p.DeclaredChecksum
	raw.Title = p.Title
	raw.Metadata = maps.Clone(p.Metadata)
	return raw
}

// verify checks declared integrity before an adapter rewrites the payload,
// since the rewritten content no longer matches what the client declared.
func verify(p Payload) error {
	if len(bytes.TrimSpace(p.Data)) == 0 {
		return core.Permanent(core.CodeValidation, core.ErrEmptyPayload)
	}
	if p.DeclaredSize > 0 && int64(len(p.Data)) < p.DeclaredSize {
		return core.Permanent(core.CodeValidation,
			fmt.Errorf("%w: got %d of %d bytes", core.ErrTruncated, len(p.Data), p.DeclaredSize))
	}
	if p.DeclaredChecksum != "" && p.DeclaredChecksum != core.Checksum(p.Data) {
		return core.Permanent(core.CodeValidation, core.ErrChecksumMismatch)
	}
	return nil
}

// documentContent encodes doc as canonical json content for platform.
func documentContent(p Payload, doc registry.Document) (core.RawContent, error) {
	data, err := registry.MarshalDocument(doc)
	if err != nil {
		return core.RawContent{}, fmt.Errorf("encode %s document: %w", p.Descriptor.Platform, err)
	}
	desc := core.Descriptor{
		Platform:  p.Descriptor.Platform,
		Format:    "json",
		MIMEType:  "application/json",
		SourceURI: p.Descriptor.SourceURI,
	}
	raw := core.NewRawContent(desc, data)
	raw.Title = doc.Title
	if raw.Title == "" {
		raw.Title = p.Title
	}
	raw.Metadata = maps.Clone(p.Metadata)
	return raw, nil
}
