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
	"fmt"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// FormatHandler validates and extracts one payload format.
// Implementations must be safe for concurrent use.
type FormatHandler interface {
	// Name identifies the handler.
	Name() string

	// Matches reports whether the handler accepts desc.
	Matches(desc core.Descriptor) bool

	// Media reports whether extraction calls capability services. Media
	// handlers run on a separate worker pool.
	Media() bool

	// Validate performs the structural check of raw. Failures wrap
	// core.ErrMalformed.
	Validate(raw core.RawContent) error

	// Extract produces the intermediate entries of raw.
	Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error)
}

// Registry resolves handlers by descriptor.
type Registry struct {
	handlers []FormatHandler
}

// New builds a registry from handlers in priority order.
func New(handlers ...FormatHandler) (*Registry, error) {
	seen := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("registry: nil handler")
		}
		if seen[h.Name()] {
			return nil, fmt.Errorf("registry: duplicate handler %q", h.Name())
		}
		seen[h.Name()] = true
	}
	return &Registry{handlers: append([]FormatHandler(nil), handlers...)}, nil
}

// Resolve returns the first handler matching desc.
func (r *Registry) Resolve(desc core.Descriptor) (FormatHandler, error) {
	for _, h := range r.handlers {
		if h.Matches(desc) {
			return h, nil
		}
	}
	return nil, core.Permanent(core.CodeUnsupportedFormat,
		fmt.Errorf("%w: platform=%q format=%q mime=%q", core.ErrUnsupportedFormat, desc.Platform, desc.Format, desc.MIMEType))
}

// Names lists handler names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.Name()
	}
	return names
}

// Builtin returns the built-in handlers. media may be nil to leave media
// formats unsupported.
func Builtin(media *MediaHandler) []FormatHandler {
	handlers := []FormatHandler{
		NewJSONHandler(),
		NewJSONLHandler(),
		NewTextHandler(),
		NewCSVHandler(),
	}
	if media != nil {
		handlers = append(handlers, media)
	}
	return handlers
}
