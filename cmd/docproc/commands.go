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


package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docproc"
	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/extract"
	"github.com/poiesic/docproc/index"
	"github.com/poiesic/docproc/index/badger"
	"github.com/poiesic/docproc/pipeline"
)

func processCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	p, err := newProcessor(c, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := runOptions(c)
	views := make([]resultView, 0, c.NArg())
	failed := 0
	for _, path := range c.Args().Slice() {
		result, err := p.ProcessFile(ctx, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
			continue
		}
		views = append(views, newResultView(result, c.Bool("include-text")))
	}
	if err := writeJSON(c.App.Writer, views); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed", failed, c.NArg()), 1)
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	docs, err := collectDocuments(c.Args().Slice())
	if err != nil {
		return err
	}

	var progress io.Writer
	if c.Bool("progress") {
		progress = c.App.ErrWriter
	}
	p, err := newProcessor(c, progress)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	results := p.ProcessBatch(ctx, docs, runOptions(c))
	for _, r := range results {
		if err := writeJSON(c.App.Writer, newBatchView(r)); err != nil {
			return err
		}
	}

	summary := pipeline.Tally(results, time.Since(start))
	fmt.Fprintf(c.App.ErrWriter, "Processed %d documents: %d succeeded, %d failed in %s\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d documents failed", summary.Failed), 1)
	}
	return nil
}

func indexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	docs, err := collectDocuments(c.Args().Slice())
	if err != nil {
		return err
	}

	store, err := badger.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer store.Close()

	p, err := newProcessor(c, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := runOptions(c)
	opts.Chunk = true
	opts.ChunkRequired = true

	indexed, failed := 0, 0
	for _, r := range p.ProcessBatch(ctx, docs, opts) {
		if r.Err == nil {
			r.Err = index.IndexResult(ctx, store, r.Result)
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", r.Source.Filename(), r.Err)
			continue
		}
		indexed++
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d chunks\n", r.Result.DocumentID, r.Result.Filename, len(r.Result.Chunks))
	}

	fmt.Fprintf(c.App.ErrWriter, "Indexed %d documents into %s\n", indexed, c.String("db"))
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d documents failed", failed), 1)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	store, err := badger.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer store.Close()

	hits, err := store.Search(c.Context, query, index.SearchOptions{
		Limit:      c.Int("limit"),
		DocumentID: c.String("document"),
		MatchAll:   c.Bool("all"),
	})
	if err != nil {
		return err
	}

	views := make([]hitView, len(hits))
	for i, h := range hits {
		views[i] = newHitView(h)
	}
	return writeJSON(c.App.Writer, views)
}

func formatsCommand(c *cli.Context) error {
	for _, f := range core.Formats {
		fmt.Fprintf(c.App.Writer, "%-10s %s\n", f, strings.Join(extract.Extensions(f), " "))
	}
	return nil
}

func newProcessor(c *cli.Context, progress io.Writer) (*docproc.Processor, error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, err
	}
	opts := []docproc.Option{}
	if size := c.Int("cache-size"); size > 0 {
		opts = append(opts, docproc.WithResponseCache(size))
	}
	if progress != nil {
		opts = append(opts, docproc.WithProgress(progress))
	}
	return docproc.New(cfg, opts...)
}

func runOptions(c *cli.Context) pipeline.RunOptions {
	opts := pipeline.DefaultRunOptions()
	opts.Chunk = !c.Bool("no-chunk")
	opts.Summarize = c.Bool("summarize")
	opts.Strict = c.Bool("strict")
	return opts
}

// collectDocuments expands directories into the supported files they
// contain. Files named explicitly are kept even when their extension is
// unknown so the failure is reported per document.
func collectDocuments(paths []string) ([]*core.SourceDocument, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, err := extract.Lookup(filepath.Ext(p)); err == nil {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	files = slices.Compact(files)

	docs := make([]*core.SourceDocument, len(files))
	for i, f := range files {
		docs[i] = core.NewSourceFile(f)
	}
	return docs, nil
}
