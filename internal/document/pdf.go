package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pageFile = regexp.MustCompile(`-(\d+)\.png$`)

// TextLayer returns the plain text of every page. Pages without text
// produce empty strings so indexes line up with page numbers.
func TextLayer(data []byte) (texts []string, err error) {
	// Both PDF libraries panic on some malformed files.
	defer recoverPDF(&err)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	total := r.NumPage()
	texts = make([]string, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}

// Pdftoppm renders pages with poppler's pdftoppm
type Pdftoppm struct{}

func (Pdftoppm) Rasterize(ctx context.Context, data []byte, dpi int) ([]image.Image, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not available: %w", err)
	}

	dir, err := os.MkdirTemp("", "quizocr-pdf-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-r", strconv.Itoa(dpi), "-png", input, filepath.Join(dir, "page"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return pageNumber(files[i]) < pageNumber(files[j]) })

	images := make([]image.Image, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page: %w", err)
		}
		img, err := DecodeImage(b)
		if err != nil {
			return nil, fmt.Errorf("failed to decode rendered page %s: %w", filepath.Base(f), err)
		}
		images = append(images, img)
	}
	return images, nil
}

func pageNumber(path string) int {
	m := pageFile.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// EmbeddedImages uses the largest image embedded in each page. Scanned exam
// PDFs usually carry one full-page image per page, so no rendering is needed.
type EmbeddedImages struct{}

func (EmbeddedImages) Rasterize(ctx context.Context, data []byte, _ int) (images []image.Image, err error) {
	defer recoverPDF(&err)

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	images = make([]image.Image, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageImages, err := pdfcpu.ExtractPageImages(pdfCtx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}

		var best image.Image
		for _, pi := range pageImages {
			if pi.Reader == nil {
				continue
			}
			b, err := io.ReadAll(pi.Reader)
			if err != nil {
				continue
			}
			img, err := DecodeImage(b)
			if err != nil {
				continue
			}
			if best == nil || area(img) > area(best) {
				best = img
			}
		}
		if best == nil {
			return nil, fmt.Errorf("page %d has no decodable image", pageNr)
		}
		images = append(images, best)
	}
	return images, nil
}

func recoverPDF(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed PDF: %v", r)
	}
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}
