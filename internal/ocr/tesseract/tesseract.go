package tesseract

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Engine implements ocr.Engine using the gosseract client
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed OCR engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs Tesseract synchronously on a PNG image. A fresh client is
// used per call so the engine is safe for concurrent use.
func (e *Engine) Recognize(ctx context.Context, png []byte, preset ocr.Preset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Tesseract cannot be interrupted mid-recognition; run it aside so a
	// cancelled context returns promptly. The client is closed by the goroutine.
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.recognize(png, preset)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (e *Engine) recognize(png []byte, preset ocr.Preset) (string, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if preset.Language != "" {
		if err := c.SetLanguage(preset.Language); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(preset.PageSegMode)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if preset.DPI > 0 {
		if err := c.SetVariable("user_defined_dpi", strconv.Itoa(preset.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if preset.PreserveInterwordSpaces {
		if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
			return "", fmt.Errorf("set preserve_interword_spaces: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
