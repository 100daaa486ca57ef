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

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind drives retry behavior.
type ErrorKind string

const (
	KindPermanent   ErrorKind = "permanent"
	KindTransient   ErrorKind = "transient"
	KindRateLimited ErrorKind = "rate_limited"
)

// ErrorCode names the failure class surfaced to clients.
type ErrorCode string

const (
	CodeUnsupportedFormat ErrorCode = "UnsupportedFormat"
	CodeValidation        ErrorCode = "ValidationError"
	CodeExtraction        ErrorCode = "ExtractionError"
	CodeNormalization     ErrorCode = "NormalizationError"
	CodeStorageConflict   ErrorCode = "StorageConflict"
	CodeExhaustedRetries  ErrorCode = "ExhaustedRetries"
	CodeCanceled          ErrorCode = "Canceled"
	CodeStorage           ErrorCode = "StorageError"
	CodeDedup             ErrorCode = "DedupError"
	CodeSourceUnavailable ErrorCode = "SourceUnavailable"
	CodeMalformedSource   ErrorCode = "MalformedSource"
)

// Domain errors
var (
	// ErrUnsupportedFormat indicates no registered handler or adapter matches a descriptor.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyNormalizationResult indicates normalization produced zero messages.
	ErrEmptyNormalizationResult = errors.New("normalization produced no messages")

	// ErrOversized indicates the payload exceeds the configured ceiling.
	ErrOversized = errors.New("payload exceeds size limit")

	// ErrEmptyPayload indicates the payload has no bytes.
	ErrEmptyPayload = errors.New("payload is empty")

	// ErrTruncated indicates the payload is shorter than its declared size.
	ErrTruncated = errors.New("payload truncated")

	// ErrChecksumMismatch indicates the payload does not match its checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformed indicates the payload failed a structural check.
	ErrMalformed = errors.New("malformed payload")

	// ErrCanceled indicates the owning job was canceled before the item finished.
	ErrCanceled = errors.New("import canceled")

	// ErrInvalidMessage indicates a NormalizedMessage failed validation.
	ErrInvalidMessage = errors.New("invalid normalized message")

	// ErrInvalidTransition indicates an illegal item status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StageError is a classified pipeline failure.
type StageError struct {
	Code       ErrorCode
	Kind       ErrorKind
	RetryAfter time.Duration // Provider-advised delay, RateLimited only
	Err        error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a non-retryable failure with the given code.
func Permanent(code ErrorCode, err error) *StageError {
	return &StageError{Code: code, Kind: KindPermanent, Err: err}
}

// Transient wraps err as a retryable failure with the given code.
func Transient(code ErrorCode, err error) *StageError {
	return &StageError{Code: code, Kind: KindTransient, Err: err}
}

// RateLimited wraps err as a rate-limited failure honoring retryAfter.
func RateLimited(code ErrorCode, err error, retryAfter time.Duration) *StageError {
	return &StageError{Code: code, Kind: KindRateLimited, RetryAfter: retryAfter, Err: err}
}

// transientMarker is implemented by errors from lower layers (storage,
// dedup) that are safe to retry without knowing about StageError.
type transientMarker interface {
	Temporary() bool
}

// KindOf classifies an error for retry purposes.
//
// Classification order:
//   - StageError carries its own kind
//   - deadline expiry is Transient
//   - errors reporting Temporary() == true are Transient
//   - everything else is Permanent
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var tm transientMarker
	if errors.As(err, &tm) && tm.Temporary() {
		return KindTransient
	}
	return KindPermanent
}

// CodeOf returns the error code of err, or fallback when err is unclassified.
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		return CodeUnsupportedFormat
	}
	if errors.Is(err, ErrCanceled) {
		return CodeCanceled
	}
	return fallback
}

// RetryAfterOf returns the provider-advised delay carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var se *StageError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// NewItemError converts a stage failure into its status API form.
func NewItemError(err error, fallback ErrorCode, attempts int) *ItemError {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindPermanent
	}
	return &ItemError{
		Code:     CodeOf(err, fallback),
		Kind:     kind,
		Message:  err.Error(),
		Attempts: attempts,
	}
}
