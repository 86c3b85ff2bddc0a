package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/docproc/ocr"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// pageEngine recognizes rasters produced by pageRenderer, whose width
// encodes the page number.
type pageEngine struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *pageEngine) Available() error { return nil }

func (e *pageEngine) Recognize(_ context.Context, img image.Image, _ string) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	return fmt.Sprintf("  scanned text\nof page %d ", img.Bounds().Dx()), nil
}

type pageRenderer struct{}

func (pageRenderer) RenderPage(_ context.Context, _ []byte, page int, _ float64) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, page, 1)), nil
}

type missingEngine struct{}

func (missingEngine) Available() error { return fmt.Errorf("tesseract not found") }

func (missingEngine) Recognize(context.Context, image.Image, string) (string, error) {
	return "", fmt.Errorf("unreachable")
}

func newFallback(t *testing.T, engine ocr.Engine) *ocr.Fallback {
	t.Helper()
	f, err := ocr.NewFallback(engine, ocr.WithRenderer(pageRenderer{}), ocr.WithRetry(1, 0))
	require.NoError(t, err)
	return f
}
