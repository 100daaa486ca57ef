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

// Package capability defines the contract for the external services media
// extraction depends on: transcription, speaker diarization, OCR and
// translation.
//
// A Service processes one Request and returns a Result. Implementations
// report failures through three shapes the pipeline understands:
//
//   - *RetryAfterError: the provider is rate limiting; retry after a delay
//   - errors wrapping ErrPermanent: the input will never succeed
//   - anything else: transient, safe to retry
//
// Classify converts these into core stage errors.
//
// Services are rate limited independently. Limit wraps a Service with a
// weighted semaphore so that a slow or throttled capability cannot starve
// the others.
//
// # Implementations
//
//   - capability/openai: OpenAI-compatible endpoints (langchaingo for vision
//     and chat, the audio transcription endpoint for speech)
//   - capability/mock: test doubles
package capability
