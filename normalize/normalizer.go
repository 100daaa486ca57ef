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
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// Hint carries per-item context into normalization.
type Hint struct {
	Platform   string
	ItemID     string
	ImportedAt time.Time // Anchor for entries without an absolute timestamp
}

// Result is the outcome of normalizing one item.
type Result struct {
	Messages []core.NormalizedMessage
	Warnings []string
}

// Normalizer converts ExtractedContent into NormalizedMessages. It is safe
// for concurrent use once constructed.
type Normalizer struct {
	rules    map[string]Rules
	defaults Rules
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithRules sets the resolution rules for platform.
func WithRules(platform string, rules Rules) Option {
	return func(n *Normalizer) error {
		if platform == "" {
			return fmt.Errorf("platform is required")
		}
		n.rules[platform] = rules
		return nil
	}
}

// WithDefaultRules replaces the rules used for unknown platforms.
func WithDefaultRules(rules Rules) Option {
	return func(n *Normalizer) error {
		n.defaults = rules
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		n.logger = logger
		return nil
	}
}

// New creates a Normalizer preloaded with BuiltinRules.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		rules:    BuiltinRules(),
		defaults: DefaultRules(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	n.logger = n.logger.With("component", "normalizer")
	return n, nil
}

// RulesFor returns the rules applied to platform.
func (n *Normalizer) RulesFor(platform string) Rules {
	if r, ok := n.rules[platform]; ok {
		return r
	}
	return n.defaults
}

type candidate struct {
	entry   core.Entry
	input   int
	speaker string
	ts      time.Time
}

// Normalize resolves timestamps, speakers and order for ec. Messages get
// contiguous sequence indices starting at 0 and deterministic IDs derived
// from hint.ItemID.
func (n *Normalizer) Normalize(ec *core.ExtractedContent, hint Hint) (*Result, error) {
	if ec == nil {
		return nil, core.Permanent(core.CodeNormalization, core.ErrEmptyNormalizationResult)
	}
	if hint.ItemID == "" {
		return nil, core.Permanent(core.CodeNormalization, fmt.Errorf("item id is required"))
	}
	rules := n.RulesFor(hint.Platform)
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}
	anchor := n.anchor(ec, hint, rules, loc)

	result := &Result{}
	speakers := newSpeakerResolver(rules.RoleAliases)
	candidates := make([]candidate, 0, len(ec.Entries))

	for i, entry := range ec.Entries {
		text := strings.TrimSpace(entry.TextRaw)
		if text == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d skipped: empty text", i))
			continue
		}
		ts, err := resolveTimestamp(entry, anchor, rules.Layouts, loc)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d skipped: %v", i, err))
			continue
		}
		entry.TextRaw = text
		candidates = append(candidates, candidate{
			entry:   entry,
			input:   i,
			speaker: speakers.resolve(entry.SpeakerRaw),
			ts:      ts,
		})
	}

	if len(candidates) == 0 {
		return nil, core.Permanent(core.CodeNormalization,
			fmt.Errorf("%w: %d entries, none usable", core.ErrEmptyNormalizationResult, len(ec.Entries)))
	}

	if ec.ProviderOrdered {
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return cmp.Compare(a.entry.Ordinal, b.entry.Ordinal)
		})
	} else {
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return a.ts.Compare(b.ts)
		})
	}

	contentType := ec.ContentType
	if contentType == "" {
		contentType = core.ContentTypeText
	}
	result.Messages = make([]core.NormalizedMessage, len(candidates))
	for seq, c := range candidates {
		result.Messages[seq] = core.NormalizedMessage{
			ID:             core.MessageID(hint.ItemID, seq),
			ImportItemID:   hint.ItemID,
			SequenceIndex:  seq,
			Speaker:        c.speaker,
			Content:        c.entry.TextRaw,
			ContentType:    contentType,
			Timestamp:      c.ts,
			SourceMetadata: sourceMetadata(ec.Metadata, c.entry, hint.Platform),
		}
	}

	if len(result.Warnings) > 0 {
		n.logger.Debug("entries skipped", "item", hint.ItemID, "skipped", len(result.Warnings), "kept", len(candidates))
	}
	return result, nil
}

// anchor is the instant relative entries are measured from: the source's
// own start time when the extractor reports one, else the import time.
func (n *Normalizer) anchor(ec *core.ExtractedContent, hint Hint, rules Rules, loc *time.Location) time.Time {
	if started := ec.Metadata["started_at"]; started != "" {
		if ts, err := parseTimestamp(started, rules.Layouts, loc); err == nil {
			return ts
		}
	}
	if !hint.ImportedAt.IsZero() {
		return hint.ImportedAt.UTC()
	}
	return n.now().UTC()
}

func resolveTimestamp(entry core.Entry, anchor time.Time, layouts []string, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(entry.TimestampRaw)
	if raw == "" {
		if entry.Offset != nil {
			return anchor.Add(*entry.Offset), nil
		}
		return anchor, nil
	}
	return parseTimestamp(raw, layouts, loc)
}

// parseTimestamp reads raw as RFC 3339, epoch seconds or milliseconds, or one
// of layouts in loc. The result is always UTC.
func parseTimestamp(raw string, layouts []string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0 {
		if f > 1e12 {
			// Milliseconds
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func sourceMetadata(shared map[string]string, entry core.Entry, platform string) map[string]string {
	md := make(map[string]string, len(shared)+len(entry.Metadata)+5)
	for k, v := range shared {
		md[k] = v
	}
	for k, v := range entry.Metadata {
		md[k] = v
	}
	if raw := strings.TrimSpace(entry.SpeakerRaw); raw != "" {
		md["speaker_raw"] = raw
	}
	if platform != "" {
		md["platform"] = platform
	}
	for k, v := range analyze(entry.TextRaw) {
		md[k] = v
	}
	return md
}

// analyze derives per-message text statistics.
func analyze(text string) map[string]string {
	return map[string]string{
		"word_count":   strconv.Itoa(len(strings.Fields(text))),
		"char_count":   strconv.Itoa(len([]rune(text))),
		"has_question": strconv.FormatBool(strings.Contains(text, "?")),
	}
}

// speakerResolver assigns canonical speakers for one item.
type speakerResolver struct {
	aliases map[string]string
	unknown map[string]string
}

func newSpeakerResolver(aliases map[string]string) *speakerResolver {
	return &speakerResolver{aliases: aliases, unknown: make(map[string]string)}
}

func (s *speakerResolver) resolve(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := s.aliases[key]; ok {
		return canonical
	}
	if key != "" && !unresolvedSpeaker.MatchString(key) {
		return key
	}
	if placeholder, ok := s.unknown[key]; ok {
		return placeholder
	}
	placeholder := fmt.Sprintf("unknown-%d", len(s.unknown))
	s.unknown[key] = placeholder
	return placeholder
}
