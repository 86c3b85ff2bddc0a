package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docproc/core"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestExtract_Image(t *testing.T) {
	engine := &pageEngine{}
	e, err := New(WithOCR(newFallback(t, engine)))
	require.NoError(t, err)

	content, err := e.Extract(context.Background(), core.NewSourceBytes("scan.png", pngBytes(t, 7, 3)))
	require.NoError(t, err)

	assert.Equal(t, "ocr", content.Method)
	assert.Equal(t, "scanned text of page 7", content.Text)
	assert.Equal(t, "7x3", content.Metadata()["image_size"])
	assert.Equal(t, 1, engine.calls)
}

func TestExtract_ImageOCRFailure(t *testing.T) {
	engine := &pageEngine{err: errors.New("unreadable")}
	ctx := context.Background()

	t.Run("strict", func(t *testing.T) {
		e, err := New(WithOCR(newFallback(t, engine)))
		require.NoError(t, err)
		content, err := e.Extract(ctx, core.NewSourceBytes("scan.png", pngBytes(t, 2, 2)))
		assert.Nil(t, content)
		assert.ErrorIs(t, err, core.ErrExtraction)
	})

	t.Run("best effort", func(t *testing.T) {
		e, err := New(WithOCR(newFallback(t, engine)), WithBestEffortImages(true))
		require.NoError(t, err)
		content, err := e.Extract(ctx, core.NewSourceBytes("scan.png", pngBytes(t, 2, 2)))
		require.NoError(t, err)
		assert.Empty(t, content.Text)
		require.Len(t, content.Warnings, 1)
		assert.Contains(t, content.Metadata(), "extraction_warning")
	})

	t.Run("ocr disabled", func(t *testing.T) {
		e, err := New(WithoutOCR())
		require.NoError(t, err)
		_, err = e.Extract(ctx, core.NewSourceBytes("scan.png", pngBytes(t, 2, 2)))
		assert.ErrorIs(t, err, core.ErrOCRUnavailable)
	})
}

func TestExtract_ImageCorrupt(t *testing.T) {
	e, err := New(WithOCR(newFallback(t, &pageEngine{})), WithBestEffortImages(true))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), core.NewSourceBytes("photo.jpg", []byte("not an image")))
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}
