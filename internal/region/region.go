package region

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
)

var (
	// ErrInvalidRegion is returned for fractions outside [0,1] or empty rectangles.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrEmptyCrop is returned when a region resolves to no pixels on a given image.
	ErrEmptyCrop = errors.New("region resolves to an empty crop")
)

// Region is a rectangle expressed as fractions of the image dimensions
type Region struct {
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
	X2 float64 `yaml:"x2" json:"x2"`
	Y2 float64 `yaml:"y2" json:"y2"`
}

// Set holds the two canonical regions of a slide
type Set struct {
	Question Region `yaml:"question" json:"question"`
	Options  Region `yaml:"options" json:"options"`
}

// DefaultSet returns regions tuned for 16:9 slide captures: the question in the
// top-left, the option list on the right.
func DefaultSet() Set {
	return Set{
		Question: Region{X1: 0.02, Y1: 0.05, X2: 0.55, Y2: 0.40},
		Options:  Region{X1: 0.30, Y1: 0.12, X2: 0.98, Y2: 0.85},
	}
}

// Validate checks 0 <= x1 < x2 <= 1 and 0 <= y1 < y2 <= 1.
func (r Region) Validate() error {
	for _, v := range []float64{r.X1, r.Y1, r.X2, r.Y2} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: fraction %v out of [0,1]", ErrInvalidRegion, v)
		}
	}
	if r.X1 >= r.X2 {
		return fmt.Errorf("%w: x1 (%v) must be less than x2 (%v)", ErrInvalidRegion, r.X1, r.X2)
	}
	if r.Y1 >= r.Y2 {
		return fmt.Errorf("%w: y1 (%v) must be less than y2 (%v)", ErrInvalidRegion, r.Y1, r.Y2)
	}
	return nil
}

// Validate checks both regions.
func (s Set) Validate() error {
	if err := s.Question.Validate(); err != nil {
		return fmt.Errorf("question region: %w", err)
	}
	if err := s.Options.Validate(); err != nil {
		return fmt.Errorf("options region: %w", err)
	}
	return nil
}

// Rect resolves the fractions against bounds.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	rect := image.Rect(
		bounds.Min.X+int(math.Floor(w*r.X1)),
		bounds.Min.Y+int(math.Floor(h*r.Y1)),
		bounds.Min.X+int(math.Ceil(w*r.X2)),
		bounds.Min.Y+int(math.Ceil(h*r.Y2)),
	)
	return rect.Intersect(bounds)
}

// Crop returns a copy of the part of img covered by r.
func Crop(img image.Image, r Region) (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rect := r.Rect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %v on %v", ErrEmptyCrop, r, img.Bounds())
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst, nil
}
