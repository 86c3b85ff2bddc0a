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

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/docproc/core"
)

// BatchResult is the outcome of one document in a batch.
type BatchResult struct {
	Index  int
	Source *core.SourceDocument
	Result *core.ProcessResult
	Err    error
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Tally counts successes and failures in results.
func Tally(results []BatchResult, elapsed time.Duration) BatchSummary {
	s := BatchSummary{Total: len(results), Elapsed: elapsed}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// ProcessBatch runs every document on the worker pool and returns results in
// input order. A failing document does not affect its siblings.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []*core.SourceDocument, opts RunOptions) []BatchResult {
	opts.DocumentID = ""
	results := make([]BatchResult, len(docs))

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(docs), p.interval)
		tracker.Start()
		defer tracker.Finish()
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i, doc := range docs {
		results[i] = BatchResult{Index: i, Source: doc}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			res, err := p.processSafely(ctx, doc, opts)
			results[i].Result = res
			results[i].Err = err
			if tracker != nil {
				tracker.Record(err)
			}
		})
		if err != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submitting %s: %w", filename(doc), err)
			if tracker != nil {
				tracker.Record(err)
			}
		}
	}
	wg.Wait()

	s := Tally(results, time.Since(start))
	p.logger.Info("batch complete", "total", s.Total, "succeeded", s.Succeeded, "failed", s.Failed, "elapsed", s.Elapsed)
	return results
}

func (p *Pipeline) processSafely(ctx context.Context, doc *core.SourceDocument, opts RunOptions) (res *core.ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %s: %v", ErrStagePanicked, filename(doc), r)
			p.logger.Error("document panicked", "file", filename(doc), "panic", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Process(ctx, doc, opts)
}
