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


package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/poiesic/docproc/core"
)

// TesseractOption configures a TesseractEngine.
type TesseractOption func(*TesseractEngine)

// WithBinary sets the tesseract executable name or path.
func WithBinary(binary string) TesseractOption {
	return func(e *TesseractEngine) {
		e.binary = binary
	}
}

// WithTempDir sets where page rasters are written before recognition.
func WithTempDir(dir string) TesseractOption {
	return func(e *TesseractEngine) {
		e.tempDir = dir
	}
}

// WithTesseractLogger sets the logger.
func WithTesseractLogger(logger *slog.Logger) TesseractOption {
	return func(e *TesseractEngine) {
		e.logger = logger
	}
}

// TesseractEngine runs the tesseract command line tool.
type TesseractEngine struct {
	binary  string
	tempDir string
	logger  *slog.Logger
}

var _ Engine = (*TesseractEngine)(nil)

// NewTesseractEngine creates an engine that looks up "tesseract" on PATH.
func NewTesseractEngine(opts ...TesseractOption) *TesseractEngine {
	e := &TesseractEngine{
		binary: "tesseract",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether the tesseract binary can be found.
func (e *TesseractEngine) Available() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%w: %w", core.ErrOCRUnavailable, err)
	}
	return nil
}

// Recognize writes img to a temporary PNG and reads tesseract's stdout.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrOCRUnavailable, err)
	}

	f, err := os.CreateTemp(e.tempDir, "docproc-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating raster file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding raster: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing raster: %w", err)
	}

	args := []string{f.Name(), "stdout"}
	if language != "" {
		args = append(args, "-l", language)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	e.logger.Debug("tesseract recognized raster", "bytes", len(out), "language", language)
	return string(out), nil
}
