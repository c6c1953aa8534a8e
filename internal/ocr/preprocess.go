package ocr

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// UnsharpMask parameters applied after upscaling.
const (
	sharpenRadius    = 1.5
	sharpenPercent   = 180
	sharpenThreshold = 3
)

// Preprocess prepares a cropped region for recognition: grayscale, 2x upscale
// and an unsharp mask. Recognition on slide captures relies on all three steps.
func Preprocess(img image.Image) *image.Gray {
	gray := Grayscale(img)
	scaled := Upscale(gray, 2)
	return UnsharpMask(scaled, sharpenRadius, sharpenPercent, sharpenThreshold)
}

// Grayscale converts img to an 8-bit grayscale image anchored at the origin.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Upscale enlarges img by factor using Catmull-Rom resampling.
func Upscale(img *image.Gray, factor int) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// UnsharpMask sharpens img by adding back the difference to a gaussian blur.
// Pixels whose difference is below threshold are left untouched.
func UnsharpMask(img *image.Gray, radius float64, percent, threshold int) *image.Gray {
	blurred := gaussianBlur(img, radius)
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		diff := int(v) - int(blurred.Pix[i])
		if abs(diff) < threshold {
			out.Pix[i] = v
			continue
		}
		out.Pix[i] = clamp(int(v) + diff*percent/100)
	}
	return out
}

func gaussianBlur(img *image.Gray, sigma float64) *image.Gray {
	kernel := gaussianKernel(sigma)
	half := len(kernel) / 2
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, weight := range kernel {
				sx := clampIndex(x+k-half, w)
				sum += weight * float64(img.Pix[y*img.Stride+sx])
			}
			tmp[y*w+x] = sum
		}
	}

	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, weight := range kernel {
				sy := clampIndex(y+k-half, h)
				sum += weight * tmp[sy*w+x]
			}
			out.Pix[y*out.Stride+x] = clamp(int(math.Round(sum)))
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	half := int(math.Ceil(sigma * 3))
	kernel := make([]float64, 2*half+1)
	var total float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
