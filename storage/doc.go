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

// Package storage provides the storage abstraction layer for stitch.
//
// This package defines the interfaces the import pipeline persists through,
// decoupling it from the storage engine:
//
//   - MessageSink: idempotent upsert of normalized messages per import item
//   - FingerprintStore: the dedup table with atomic check-and-reserve
//   - JobRepository: snapshots of import jobs for status queries
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return these interfaces,
// not concrete types:
//
//	sink, err := badger.NewMessageSink(backend)  // returns storage.MessageSink
//
// Internal helpers may return concrete types since they're only used within
// the implementation package.
//
// # Errors
//
// Implementations report ErrNotFound for missing records and ErrConflict when
// a write would replace a different value. Failures that may succeed on retry
// are wrapped in TransientError.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
