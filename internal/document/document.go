// Package document turns input files into page images and text.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoPages is returned when a document yields nothing to process.
var ErrNoPages = errors.New("document has no usable pages")

// Page is one page of an input document
type Page struct {
	Number int
	Image  image.Image
	// Text is the PDF text layer of the page, empty for image inputs.
	Text string
}

// Rasterizer renders PDF pages to images
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error)
}

// Loader reads images and PDFs
type Loader struct {
	dpi        int
	rasterizer Rasterizer
	fallback   Rasterizer
}

// NewLoader renders PDFs at dpi with pdftoppm, falling back to the images
// embedded in each page.
func NewLoader(dpi int) *Loader {
	return &Loader{dpi: dpi, rasterizer: Pdftoppm{}, fallback: EmbeddedImages{}}
}

// WithRasterizer replaces the primary PDF rasterizer.
func (l *Loader) WithRasterizer(r Rasterizer) *Loader {
	l.rasterizer = r
	return l
}

// Load reads the file at path.
func (l *Loader) Load(ctx context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.LoadBytes(ctx, filepath.Base(path), data)
}

// LoadBytes decodes data as a PDF or a single image.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) ([]Page, error) {
	if IsPDF(data) {
		return l.loadPDF(ctx, name, data)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return []Page{{Number: 1, Image: img}}, nil
}

func (l *Loader) loadPDF(ctx context.Context, name string, data []byte) ([]Page, error) {
	texts, err := TextLayer(data)
	if err != nil {
		slog.Debug("No PDF text layer", "file", name, "err", err)
	}

	images, err := l.rasterize(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Unable to render PDF pages", "file", name, "err", err)
	}

	n := len(images)
	if len(texts) > n {
		n = len(texts)
	}
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		p := Page{Number: i + 1}
		if i < len(images) {
			p.Image = images[i]
		}
		if i < len(texts) {
			p.Text = strings.TrimSpace(texts[i])
		}
		if p.Image == nil && p.Text == "" {
			continue
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoPages)
	}
	slog.Info("Loaded PDF", "file", name, "pages", len(pages), "rendered", len(images), "text_pages", len(texts))
	return pages, nil
}

func (l *Loader) rasterize(ctx context.Context, data []byte) ([]image.Image, error) {
	var errs []error
	for _, r := range []Rasterizer{l.rasterizer, l.fallback} {
		if r == nil {
			continue
		}
		images, err := r.Rasterize(ctx, data, l.dpi)
		if err == nil && len(images) > 0 {
			return images, nil
		}
		if err == nil {
			err = fmt.Errorf("%T produced no images", r)
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// IsPDF reports whether data starts with the PDF signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), []byte("%PDF"))
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF and WebP data.
func DecodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	slog.Debug("Decoded image", "format", format, "bounds", img.Bounds())
	return img, nil
}
