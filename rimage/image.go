// Package rimage defines the image, gradient and disparity buffers used by
// the stereo matcher.
package rimage

import (
	"image"
	"math"
)

// Image is an immutable RGB image with float64 channels in [0, 255] and a
// precomputed luminance channel.
type Image struct {
	width, height int

	r, g, b []float64
	lum     []float64
}

// NewImageFromImage converts any image.Image into an Image.
func NewImageFromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	img := &Image{
		width:  w,
		height: h,
		r:      make([]float64, w*h),
		g:      make([]float64, w*h),
		b:      make([]float64, w*h),
		lum:    make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			k := img.kxy(x, y)
			img.r[k] = float64(r >> 8)
			img.g[k] = float64(g >> 8)
			img.b[k] = float64(b >> 8)
			img.lum[k] = luminance(img.r[k], img.g[k], img.b[k])
		}
	}
	return img
}

func luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

func (i *Image) Width() int {
	return i.width
}

func (i *Image) Height() int {
	return i.height
}

func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// In reports whether (x, y) lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// RGB returns the three channels at (x, y).
func (i *Image) RGB(x, y int) (float64, float64, float64) {
	k := i.kxy(x, y)
	return i.r[k], i.g[k], i.b[k]
}

// Luminance returns the luminance channel at (x, y).
func (i *Image) Luminance(x, y int) float64 {
	return i.lum[i.kxy(x, y)]
}

// DistanceL1 returns the L1 RGB distance between two pixels of the image.
func (i *Image) DistanceL1(x1, y1, x2, y2 int) float64 {
	k1, k2 := i.kxy(x1, y1), i.kxy(x2, y2)
	return math.Abs(i.r[k1]-i.r[k2]) + math.Abs(i.g[k1]-i.g[k2]) + math.Abs(i.b[k1]-i.b[k2])
}

// BilinearRGB samples the RGB channels at a fractional column x on row y.
// On a rectified pair only the column coordinate is ever fractional. x must
// lie in [0, width-1]; at the last column the sample is that column itself.
func (i *Image) BilinearRGB(x float64, y int) (float64, float64, float64) {
	x0 := int(math.Floor(x))
	x1 := x0 + 1
	if x1 >= i.width {
		x1 = i.width - 1
	}
	t := x - float64(x0)
	k0, k1 := i.kxy(x0, y), i.kxy(x1, y)
	return i.r[k0] + t*(i.r[k1]-i.r[k0]),
		i.g[k0] + t*(i.g[k1]-i.g[k0]),
		i.b[k0] + t*(i.b[k1]-i.b[k0])
}
