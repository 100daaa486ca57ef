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
	"slices"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

var mediaPlatforms = []string{
	"podcast", "youtube", "video", "audio", "voice", "voice-memo", "meeting",
	"zoom", "screenshot", "image", "drive", "dropbox", "cloud",
}

// MediaAdapter forwards audio, video and image payloads to the media handler.
type MediaAdapter struct{}

// NewMediaAdapter creates the media adapter.
func NewMediaAdapter() *MediaAdapter { return &MediaAdapter{} }

func (a *MediaAdapter) Name() string { return "media" }

func (a *MediaAdapter) Matches(desc core.Descriptor) bool {
	return slices.Contains(mediaPlatforms, strings.ToLower(desc.Platform)) || registry.IsMedia(desc)
}

func (a *MediaAdapter) Translate(p Payload) ([]core.RawContent, error) {
	return []core.RawContent{passthrough(p)}, nil
}

// GenericAdapter accepts any platform and forwards the payload as is.
type GenericAdapter struct{}

// NewGenericAdapter creates the catch-all adapter.
func NewGenericAdapter() *GenericAdapter { return &GenericAdapter{} }

func (a *GenericAdapter) Name() string                 { return "generic" }
func (a *GenericAdapter) Matches(core.Descriptor) bool { return true }

func (a *GenericAdapter) Translate(p Payload) ([]core.RawContent, error) {
	return []core.RawContent{passthrough(p)}, nil
}
