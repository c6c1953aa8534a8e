package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

type recordingEngine struct {
	preset Preset
	width  int
	height int
	text   string
	err    error
}

func (e *recordingEngine) Name() string { return "recording" }

func (e *recordingEngine) Recognize(ctx context.Context, data []byte, preset Preset) (string, error) {
	e.preset = preset
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	e.width = img.Bounds().Dx()
	e.height = img.Bounds().Dy()
	return e.text, e.err
}

func TestPreprocessDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 60, 45))
	out := Preprocess(src)

	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 output, got %v", out.Bounds())
	}
}

func TestGrayscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gray := Grayscale(src)
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("Expected white pixel, got %d", gray.GrayAt(0, 0).Y)
	}
}

func TestUnsharpMaskFlatImageUnchanged(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	out := UnsharpMask(img, 1.5, 180, 3)
	for i, v := range out.Pix {
		if v != 128 {
			t.Fatalf("Expected flat image to stay flat, pixel %d = %d", i, v)
		}
	}
}

func TestUnsharpMaskIncreasesEdgeContrast(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		if x < 5 {
			img.Pix[x] = 60
		} else {
			img.Pix[x] = 200
		}
	}

	out := UnsharpMask(img, 1.5, 180, 3)
	if out.Pix[4] >= 60 {
		t.Errorf("Expected dark side of edge to darken, got %d", out.Pix[4])
	}
	if out.Pix[5] <= 200 {
		t.Errorf("Expected light side of edge to lighten, got %d", out.Pix[5])
	}
}

func TestAdapterRecognize(t *testing.T) {
	engine := &recordingEngine{text: "  1. Steel  \n"}
	adapter := NewAdapter(engine, 0)

	text, err := adapter.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 30, 20)), SparsePreset())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "1. Steel" {
		t.Errorf("Expected trimmed text, got %q", text)
	}
	if engine.width != 60 || engine.height != 40 {
		t.Errorf("Expected engine to receive 2x upscaled image, got %dx%d", engine.width, engine.height)
	}
	if engine.preset.PageSegMode != PSMSparseText {
		t.Errorf("Expected sparse preset, got psm %d", engine.preset.PageSegMode)
	}
}

func TestAdapterPropagatesEngineErrors(t *testing.T) {
	boom := errors.New("tesseract crashed")
	adapter := NewAdapter(&recordingEngine{err: boom}, 0)

	_, err := adapter.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), ColumnPreset())
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped engine error, got %v", err)
	}
}

func TestAdapterWithoutEngine(t *testing.T) {
	var adapter *Adapter
	if _, err := adapter.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), ColumnPreset()); !errors.Is(err, ErrNoEngine) {
		t.Errorf("Expected ErrNoEngine, got %v", err)
	}
}

func TestPresetValidate(t *testing.T) {
	if err := ColumnPreset().Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	bad := SparsePreset()
	bad.PageSegMode = 42
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for out of range psm")
	}
	bad = SparsePreset()
	bad.Language = ""
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for missing language")
	}
}
