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


package pipeline

import "errors"

var (
	// ErrExtractorRequired is returned when no extractor is provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrChunkerRequired is reported when chunking is requested without a chunker.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrSummarizerRequired is reported when summarization is requested without a summarizer.
	ErrSummarizerRequired = errors.New("summarizer required")

	// ErrIllegalTransition indicates a programming error in the run state machine.
	ErrIllegalTransition = errors.New("illegal pipeline state transition")

	// ErrStagePanicked is reported when a stage panics during a batch run.
	ErrStagePanicked = errors.New("pipeline stage panicked")
)
