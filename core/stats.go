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

package core

import "strings"

// Stats summarizes a set of normalized messages.
type Stats struct {
	MessageCount      int
	SpeakerCounts     map[string]int
	PlatformCounts    map[string]int
	ContentTypeCounts map[ContentType]int
	QuestionCount     int
	AvgWordCount      float64
}

// ConversationStats computes message statistics. Platform is read from the
// "platform" source metadata key.
func ConversationStats(msgs []NormalizedMessage) Stats {
	stats := Stats{
		MessageCount:      len(msgs),
		SpeakerCounts:     make(map[string]int),
		PlatformCounts:    make(map[string]int),
		ContentTypeCounts: make(map[ContentType]int),
	}
	if len(msgs) == 0 {
		return stats
	}

	totalWords := 0
	for _, msg := range msgs {
		stats.SpeakerCounts[msg.Speaker]++
		stats.ContentTypeCounts[msg.ContentType]++
		if platform := msg.SourceMetadata["platform"]; platform != "" {
			stats.PlatformCounts[platform]++
		}
		if strings.Contains(msg.Content, "?") {
			stats.QuestionCount++
		}
		totalWords += len(strings.Fields(msg.Content))
	}
	stats.AvgWordCount = float64(totalWords) / float64(len(msgs))
	return stats
}
