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

// Package openai implements capability services against OpenAI-compatible
// APIs such as OpenAI, Ollama, LocalAI or vLLM.
//
//   - OCR sends the image to a vision model through langchaingo
//   - Translation asks a chat model through langchaingo
//   - Transcription posts audio to the /audio/transcriptions endpoint
//
// Speaker diarization has no OpenAI-compatible endpoint, so the provider
// does not offer it; media extraction degrades to unlabeled speakers.
package openai
