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

// Package registry resolves the FormatHandler responsible for a payload.
//
// A Registry is built once from an ordered list of handlers and is read-only
// afterwards, so it can be shared by every worker without locking. Resolve
// returns the first handler whose Matches accepts the descriptor.
//
// # Built-in handlers
//
//   - json: the canonical chat document or a bare array of messages
//   - jsonl: one JSON message per line
//   - txt: "[timestamp] Speaker: text" or "Speaker: text" lines
//   - csv: a header row naming speaker, content and timestamp columns
//   - media: audio, video and images, extracted through capability services
//
// # Adding a format
//
// Implement FormatHandler and pass it to New ahead of the built-ins to take
// precedence. Platform-specific layouts are better served by a platform
// adapter that rewrites them into the canonical json document.
package registry
