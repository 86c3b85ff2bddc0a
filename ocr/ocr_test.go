package ocr

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/retry"
)

type fakeEngine struct {
	mu        sync.Mutex
	calls     int
	languages []string
	available error
	recognize func(ctx context.Context, call int) (string, error)
}

func (e *fakeEngine) Available() error { return e.available }

func (e *fakeEngine) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.languages = append(e.languages, language)
	e.mu.Unlock()
	if e.recognize == nil {
		return "  recognized \n\n text\t here ", nil
	}
	return e.recognize(ctx, call)
}

type fakeRenderer struct {
	pages []int
	dpis  []float64
	err   error
}

func (r *fakeRenderer) RenderPage(ctx context.Context, data []byte, page int, dpi float64) (image.Image, error) {
	r.pages = append(r.pages, page)
	r.dpis = append(r.dpis, dpi)
	if r.err != nil {
		return nil, r.err
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  a\n\n b\t\tc "))
	assert.Equal(t, "", NormalizeText(" \n\t "))
}

func TestNewFallback_Defaults(t *testing.T) {
	f, err := NewFallback(&fakeEngine{})
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultDPI), f.DPI())
	assert.Equal(t, DefaultLanguage, f.language)
}

func TestNewFallback_BadOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero dpi", WithDPI(0)},
		{"empty language", WithLanguage("")},
		{"negative timeout", WithTimeout(-time.Second)},
		{"zero attempts", WithRetry(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFallback(&fakeEngine{}, tt.opt)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestFallback_RecognizePage(t *testing.T) {
	engine := &fakeEngine{}
	renderer := &fakeRenderer{}
	f, err := NewFallback(engine, WithRenderer(renderer), WithLanguage("deu"))
	require.NoError(t, err)

	text, err := f.RecognizePage(context.Background(), []byte("%PDF"), 3)
	require.NoError(t, err)
	assert.Equal(t, "recognized text here", text)
	assert.Equal(t, []int{3}, renderer.pages)
	assert.Equal(t, []float64{DefaultDPI}, renderer.dpis)
	assert.Equal(t, []string{"deu"}, engine.languages)
}

func TestFallback_Unavailable(t *testing.T) {
	t.Run("nil engine", func(t *testing.T) {
		f, err := NewFallback(nil)
		require.NoError(t, err)
		_, err = f.RecognizeImage(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
		assert.ErrorIs(t, err, core.ErrOCRUnavailable)
		assert.ErrorIs(t, err, core.ErrExtraction)
	})

	t.Run("engine reports missing binary", func(t *testing.T) {
		engine := &fakeEngine{available: errors.New("not on PATH")}
		renderer := &fakeRenderer{}
		f, err := NewFallback(engine, WithRenderer(renderer))
		require.NoError(t, err)

		_, err = f.RecognizePage(context.Background(), nil, 1)
		assert.ErrorIs(t, err, core.ErrOCRUnavailable)
		assert.Empty(t, renderer.pages, "no rendering without an engine")
		assert.Zero(t, engine.calls)
	})
}

func TestFallback_NoRenderer(t *testing.T) {
	f, err := NewFallback(&fakeEngine{})
	require.NoError(t, err)
	_, err = f.RecognizePage(context.Background(), nil, 1)
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestFallback_RenderFailure(t *testing.T) {
	f, err := NewFallback(&fakeEngine{}, WithRenderer(&fakeRenderer{err: errors.New("corrupt page")}))
	require.NoError(t, err)
	_, err = f.RecognizePage(context.Background(), nil, 2)
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Contains(t, err.Error(), "rendering page 2")
}

func TestFallback_RetriesTransient(t *testing.T) {
	engine := &fakeEngine{recognize: func(ctx context.Context, call int) (string, error) {
		if call == 1 {
			return "", retry.Transient(errors.New("engine busy"))
		}
		return "ok", nil
	}}
	f, err := NewFallback(engine, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	text, err := f.RecognizeImage(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, engine.calls)
}

func TestFallback_PermanentFailureNotRetried(t *testing.T) {
	engine := &fakeEngine{recognize: func(ctx context.Context, call int) (string, error) {
		return "", errors.New("unreadable raster")
	}}
	f, err := NewFallback(engine, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = f.RecognizeImage(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Equal(t, 1, engine.calls)
}

func TestFallback_TimeoutIsTransient(t *testing.T) {
	engine := &fakeEngine{recognize: func(ctx context.Context, call int) (string, error) {
		if call == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "second try", nil
	}}
	f, err := NewFallback(engine, WithTimeout(10*time.Millisecond), WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	text, err := f.RecognizeImage(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, "second try", text)
	assert.Equal(t, 2, engine.calls)
}

func TestTesseractEngine_Unavailable(t *testing.T) {
	e := NewTesseractEngine(WithBinary("docproc-no-such-tesseract"))
	assert.ErrorIs(t, e.Available(), core.ErrOCRUnavailable)

	_, err := e.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)), "eng")
	assert.ErrorIs(t, err, core.ErrOCRUnavailable)
}

func TestTesseractEngine_RunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-tesseract")
	body := "#!/bin/sh\nif [ ! -f \"$1\" ]; then exit 3; fi\necho \"page text $4\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	rasters := t.TempDir()
	e := NewTesseractEngine(WithBinary(script), WithTempDir(rasters))
	require.NoError(t, e.Available())

	out, err := e.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)), "fra")
	require.NoError(t, err)
	assert.Equal(t, "page text fra\n", out)

	left, err := os.ReadDir(rasters)
	require.NoError(t, err)
	assert.Empty(t, left, "temporary raster removed")
}

type fakeVisionModel struct {
	messages []llms.MessageContent
	reply    string
	err      error
}

func (m *fakeVisionModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeVisionModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.reply, m.err
}

func TestVisionEngine(t *testing.T) {
	model := &fakeVisionModel{reply: "Invoice 42"}
	e := NewVisionEngine(model)
	require.NoError(t, e.Available())

	out, err := e.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)), "eng")
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42", out)

	require.Len(t, model.messages, 1)
	parts := model.messages[0].Parts
	require.Len(t, parts, 2)
	bin, ok := parts[1].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", bin.MIMEType)
	assert.NotEmpty(t, bin.Data)

	assert.ErrorIs(t, NewVisionEngine(nil).Available(), core.ErrOCRUnavailable)
}
