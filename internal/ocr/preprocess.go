package ocr

import (
	"image"
	"image/color"
)

const (
	globalCutoff   = 150
	adaptiveWindow = 11
	adaptiveOffset = 2
)

// variants produces the preprocessing candidates recognition runs over:
// a global threshold, an adaptive (local mean) threshold, and the plain
// grayscale conversion. Printed recipes tend to favor the global threshold;
// photos of handwritten cards do better with the adaptive one.
func variants(img image.Image) []image.Image {
	gray := grayscale(img)
	return []image.Image{
		globalThreshold(gray, globalCutoff),
		adaptiveThreshold(gray, adaptiveWindow, adaptiveOffset),
		gray,
	}
}

func grayscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

func globalThreshold(gray *image.Gray, cutoff uint8) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y > cutoff {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// adaptiveThreshold binarizes against the mean of a window around each
// pixel, which holds up better than a global cutoff under uneven lighting.
// A summed-area table keeps it linear in the pixel count.
func adaptiveThreshold(gray *image.Gray, window, offset int) *image.Gray {
	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	out := image.NewGray(bounds)
	if w == 0 || h == 0 {
		return out
	}

	sums := make([]int64, (w+1)*(h+1))
	idx := func(x, y int) int { return y*(w+1) + x }
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			v := int64(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y-1).Y)
			sums[idx(x, y)] = v + sums[idx(x-1, y)] + sums[idx(x, y-1)] - sums[idx(x-1, y-1)]
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := max(x-half, 0)
			y0 := max(y-half, 0)
			x1 := min(x+half+1, w)
			y1 := min(y+half+1, h)

			area := int64((x1 - x0) * (y1 - y0))
			sum := sums[idx(x1, y1)] - sums[idx(x0, y1)] - sums[idx(x1, y0)] + sums[idx(x0, y0)]
			mean := sum / area

			v := int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			if v > mean-int64(offset) {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
