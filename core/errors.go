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
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the processing stages matches exactly
// one of these under errors.Is.
var (
	// ErrExtraction indicates a document could not be turned into text.
	ErrExtraction = errors.New("extraction error")

	// ErrChunking indicates chunking parameters were invalid or the chunker failed.
	ErrChunking = errors.New("chunking error")

	// ErrSummarization indicates the summarization client failed under strict mode.
	ErrSummarization = errors.New("summarization error")

	// ErrConfiguration indicates invalid parameter values supplied at construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates malformed input arguments.
	ErrValidation = errors.New("validation error")
)

// Causes that callers commonly need to test for.
var (
	// ErrUnsupportedFormat is returned when a file extension has no registered strategy.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrOCRUnavailable is returned when OCR is needed but no engine can run.
	ErrOCRUnavailable = errors.New("ocr engine unavailable")

	// ErrFileTooLarge is returned when a source exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoSource is returned when a SourceDocument has neither data nor a path.
	ErrNoSource = errors.New("source document has no data or path")

	// ErrEmptyResponse is returned when a client produced no text.
	ErrEmptyResponse = errors.New("empty response")
)

// Error is the typed error carried through the pipeline. It matches both its
// Kind and its underlying cause under errors.Is and errors.As.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return e.Kind.Error()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// ExtractionError wraps err as an extraction failure.
func ExtractionError(msg string, err error) error {
	return newError(ErrExtraction, msg, err)
}

// ChunkingError wraps err as a chunking failure.
func ChunkingError(msg string, err error) error {
	return newError(ErrChunking, msg, err)
}

// SummarizationError wraps err as a summarization failure.
func SummarizationError(msg string, err error) error {
	return newError(ErrSummarization, msg, err)
}

// ConfigurationError wraps err as a configuration failure.
func ConfigurationError(msg string, err error) error {
	return newError(ErrConfiguration, msg, err)
}

// ValidationError wraps err as a validation failure.
func ValidationError(msg string, err error) error {
	return newError(ErrValidation, msg, err)
}

// KindOf returns the kind of a pipeline error, or nil when err is not one.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
