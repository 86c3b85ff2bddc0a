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
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docproc/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docproc",
		Usage: "Extract, chunk and summarize documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"DOCPROC_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"DOCPROC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before flags are read",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String("env-file")); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process documents and print the results as JSON",
				ArgsUsage: "FILE...",
				Action:    processCommand,
				Flags: append(processingFlags(),
					&cli.BoolFlag{
						Name:  "include-text",
						Usage: "Include the normalized text and chunk texts in the output",
					},
				),
			},
			{
				Name:      "batch",
				Usage:     "Process files and directories concurrently",
				ArgsUsage: "PATH...",
				Action:    batchCommand,
				Flags: append(processingFlags(),
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Report progress on stderr",
						Value: true,
					},
				),
			},
			{
				Name:      "index",
				Usage:     "Process documents and store their chunks in a search index",
				ArgsUsage: "PATH...",
				Action:    indexCommand,
				Flags:     append(processingFlags(), dbFlag()),
			},
			{
				Name:      "search",
				Usage:     "Search indexed chunks",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of hits",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict hits to one document ID",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Require every query term to match",
					},
				},
			},
			{
				Name:   "formats",
				Usage:  "List supported formats and their file extensions",
				Action: formatsCommand,
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB index directory",
		Required: true,
		EnvVars:  []string{"DOCPROC_DB"},
	}
}

// processingFlags override the loaded configuration when set.
func processingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-ocr",
			Usage: "Disable OCR of scanned pages and images",
		},
		&cli.StringFlag{
			Name:    "ocr-engine",
			Usage:   "OCR engine (tesseract, vision, none)",
			EnvVars: []string{"DOCPROC_OCR_ENGINE"},
		},
		&cli.StringFlag{
			Name:    "ocr-language",
			Usage:   "OCR recognition language",
			EnvVars: []string{"DOCPROC_OCR_LANGUAGE"},
		},
		&cli.BoolFlag{
			Name:  "best-effort-images",
			Usage: "Return empty text instead of failing on unreadable images",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum tokens per chunk",
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Tokens shared by consecutive chunks",
		},
		&cli.IntFlag{
			Name:  "min-chunk-size",
			Usage: "Minimum tokens of the final chunk",
		},
		&cli.StringFlag{
			Name:    "tokenizer",
			Usage:   "Token counter (words or a tiktoken encoding such as cl100k_base)",
			EnvVars: []string{"DOCPROC_TOKENIZER"},
		},
		&cli.BoolFlag{
			Name:  "no-chunk",
			Usage: "Skip chunking",
		},
		&cli.BoolFlag{
			Name:    "summarize",
			Aliases: []string{"s"},
			Usage:   "Summarize each document",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail instead of falling back to extractive summaries",
		},
		&cli.IntFlag{
			Name:  "summary-words",
			Usage: "Target summary length in words",
		},
		&cli.StringFlag{
			Name:    "llm-host",
			Usage:   "OpenAI-compatible API base URL",
			EnvVars: []string{"DOCPROC_LLM_HOST"},
		},
		&cli.StringFlag{
			Name:    "llm-model",
			Usage:   "Model used for summaries",
			EnvVars: []string{"DOCPROC_LLM_MODEL"},
		},
		&cli.StringFlag{
			Name:    "llm-token",
			Usage:   "API token",
			EnvVars: []string{"DOCPROC_LLM_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "max-file-size",
			Usage:   "Reject larger files (e.g. 50MB)",
			EnvVars: []string{"DOCPROC_MAX_FILE_SIZE"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Documents processed concurrently",
			EnvVars: []string{"DOCPROC_WORKERS"},
		},
		&cli.IntFlag{
			Name:  "cache-size",
			Usage: "Number of LLM replies kept in memory",
			Value: 256,
		},
	}
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// buildConfig loads the --config file, or the defaults, and applies the
// processing flags that were set explicitly.
func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("no-ocr") {
		cfg.OCREnabled = !c.Bool("no-ocr")
	}
	if c.IsSet("ocr-engine") {
		cfg.OCREngine = c.String("ocr-engine")
	}
	if c.IsSet("ocr-language") {
		cfg.OCRLanguage = c.String("ocr-language")
	}
	if c.IsSet("best-effort-images") {
		cfg.BestEffortImages = c.Bool("best-effort-images")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		cfg.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("min-chunk-size") {
		cfg.MinChunkSize = c.Int("min-chunk-size")
	}
	if c.IsSet("tokenizer") {
		cfg.Tokenizer = c.String("tokenizer")
	}
	if c.IsSet("summary-words") {
		cfg.SummaryTargetWords = c.Int("summary-words")
	}
	if c.IsSet("llm-host") {
		cfg.LLMHost = c.String("llm-host")
	}
	if c.IsSet("llm-model") {
		cfg.LLMModel = c.String("llm-model")
	}
	if c.IsSet("llm-token") {
		cfg.LLMToken = c.String("llm-token")
	}
	if c.IsSet("max-file-size") {
		size, err := humanize.ParseBytes(c.String("max-file-size"))
		if err != nil {
			return nil, fmt.Errorf("invalid max-file-size: %w", err)
		}
		cfg.MaxFileSize = int64(size)
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
