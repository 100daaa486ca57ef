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

// Package normalize maps extracted entries onto the canonical
// NormalizedMessage sequence.
//
// For each entry the Normalizer resolves:
//
//   - Timestamp: absolute RFC 3339 or epoch values are used as given; naive
//     layouts are read in the platform's location; entries without a
//     timestamp are anchored to the import time plus their relative offset.
//   - Speaker: provider roles are mapped through the platform's alias table.
//     Unresolved speakers (empty or diarization labels) receive a stable
//     "unknown-{n}" placeholder numbered in first-seen order.
//   - Order: provider order when the extractor reports it, otherwise the
//     resolved timestamp with input order as the tie-break.
//
// Entries with no text or an unreadable timestamp are skipped with a warning.
// If nothing survives, Normalize returns core.ErrEmptyNormalizationResult.
package normalize
