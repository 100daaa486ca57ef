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

package normalize

import (
	"maps"
	"regexp"
	"time"
)

// Canonical speaker identities.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
	SpeakerSystem    = "system"
	SpeakerTool      = "tool"
)

// Rules are the per-platform resolution settings.
type Rules struct {
	RoleAliases map[string]string // Lowercased provider role -> canonical speaker
	Layouts     []string          // Naive timestamp layouts tried after RFC 3339
	Location    *time.Location    // Zone for naive layouts, UTC if nil
}

var defaultAliases = map[string]string{
	"user":      SpeakerUser,
	"human":     SpeakerUser,
	"me":        SpeakerUser,
	"assistant": SpeakerAssistant,
	"ai":        SpeakerAssistant,
	"bot":       SpeakerAssistant,
	"model":     SpeakerAssistant,
	"chatgpt":   SpeakerAssistant,
	"gpt":       SpeakerAssistant,
	"claude":    SpeakerAssistant,
	"system":    SpeakerSystem,
	"developer": SpeakerSystem,
	"tool":      SpeakerTool,
	"function":  SpeakerTool,
}

var defaultLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"02.01.2006, 15:04",
	"1/2/06, 3:04 PM",
	"1/2/06, 15:04",
	"2006-01-02",
}

// DefaultRules returns the rules applied to platforms without their own.
func DefaultRules() Rules {
	return Rules{
		RoleAliases: maps.Clone(defaultAliases),
		Layouts:     append([]string(nil), defaultLayouts...),
		Location:    time.UTC,
	}
}

// Extend returns r with extra aliases and layouts layered on top.
func (r Rules) Extend(aliases map[string]string, layouts ...string) Rules {
	out := Rules{
		RoleAliases: maps.Clone(r.RoleAliases),
		Layouts:     append(append([]string(nil), layouts...), r.Layouts...),
		Location:    r.Location,
	}
	if out.RoleAliases == nil {
		out.RoleAliases = make(map[string]string, len(aliases))
	}
	maps.Copy(out.RoleAliases, aliases)
	return out
}

// InLocation returns r reading naive timestamps in loc.
func (r Rules) InLocation(loc *time.Location) Rules {
	r.Location = loc
	return r
}

// BuiltinRules returns the rules for the built-in platforms.
func BuiltinRules() map[string]Rules {
	base := DefaultRules()
	return map[string]Rules{
		"chatgpt":     base,
		"claude":      base.Extend(map[string]string{"human": SpeakerUser}),
		"claude-code": base.Extend(map[string]string{"tool_result": SpeakerTool}),
		"social": base.Extend(nil,
			"Mon Jan 02 15:04:05 -0700 2006",
			time.RFC1123Z,
		),
	}
}

// unresolvedSpeaker matches labels that carry no identity: diarization
// cluster names and explicit unknowns.
var unresolvedSpeaker = regexp.MustCompile(`^(?:unknown|speaker[ _-]?\d+|spk[ _-]?\d+)$`)
