package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"
)

// Page segmentation modes used by the presets.
const (
	PSMSingleColumn = 4
	PSMSparseText   = 11
)

// ErrNoEngine is returned when an Adapter has no engine configured.
var ErrNoEngine = errors.New("no OCR engine configured")

// Preset holds the recognition parameters for one kind of region
type Preset struct {
	Name                    string `yaml:"name"`
	PageSegMode             int    `yaml:"psm"`
	Language                string `yaml:"language"`
	DPI                     int    `yaml:"dpi"`
	PreserveInterwordSpaces bool   `yaml:"preserve_interword_spaces"`
}

// ColumnPreset reads question text laid out as a single column.
func ColumnPreset() Preset {
	return Preset{Name: "column", PageSegMode: PSMSingleColumn, Language: "eng", DPI: 300, PreserveInterwordSpaces: true}
}

// SparsePreset reads option lists, where text is scattered without a column structure.
func SparsePreset() Preset {
	return Preset{Name: "sparse", PageSegMode: PSMSparseText, Language: "eng", DPI: 300, PreserveInterwordSpaces: true}
}

// Validate checks the preset fields.
func (p Preset) Validate() error {
	if p.PageSegMode < 0 || p.PageSegMode > 13 {
		return fmt.Errorf("preset %q: page segmentation mode %d out of range", p.Name, p.PageSegMode)
	}
	if p.Language == "" {
		return fmt.Errorf("preset %q: language is required", p.Name)
	}
	if p.DPI < 0 {
		return fmt.Errorf("preset %q: negative dpi", p.Name)
	}
	return nil
}

// Engine recognizes text in a PNG-encoded image
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte, preset Preset) (string, error)
}

// Adapter preprocesses images and hands them to an Engine
type Adapter struct {
	engine  Engine
	timeout time.Duration
}

// NewAdapter wraps engine. A zero timeout disables the per-call deadline.
func NewAdapter(engine Engine, timeout time.Duration) *Adapter {
	return &Adapter{engine: engine, timeout: timeout}
}

// Recognize preprocesses img and runs the engine with preset.
func (a *Adapter) Recognize(ctx context.Context, img image.Image, preset Preset) (string, error) {
	if a == nil || a.engine == nil {
		return "", ErrNoEngine
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prepared := Preprocess(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return "", fmt.Errorf("failed to encode preprocessed image: %w", err)
	}

	start := time.Now()
	text, err := a.engine.Recognize(ctx, buf.Bytes(), preset)
	if err != nil {
		return "", fmt.Errorf("%s recognition failed (preset %s): %w", a.engine.Name(), preset.Name, err)
	}
	slog.Debug("Recognized region", "engine", a.engine.Name(), "preset", preset.Name, "length", len(text), "elapsed", time.Since(start))
	return strings.TrimSpace(text), nil
}
