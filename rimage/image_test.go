package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func makeGray(w, h int, f func(x, y int) uint8) *Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := f(x, y)
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return NewImageFromImage(img)
}

func TestImageChannels(t *testing.T) {
	img := makeGray(4, 3, func(x, y int) uint8 { return uint8(10*x + y) })
	test.That(t, img.Width(), test.ShouldEqual, 4)
	test.That(t, img.Height(), test.ShouldEqual, 3)

	r, g, b := img.RGB(2, 1)
	test.That(t, r, test.ShouldEqual, 21.0)
	test.That(t, g, test.ShouldEqual, 21.0)
	test.That(t, b, test.ShouldEqual, 21.0)
	test.That(t, img.Luminance(2, 1), test.ShouldAlmostEqual, 21.0, 1e-9)

	test.That(t, img.In(0, 0), test.ShouldBeTrue)
	test.That(t, img.In(3, 2), test.ShouldBeTrue)
	test.That(t, img.In(4, 0), test.ShouldBeFalse)
	test.That(t, img.In(0, -1), test.ShouldBeFalse)
}

func TestImageLuminanceWeights(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 100, G: 200, B: 50, A: 255})
	converted := NewImageFromImage(img)
	test.That(t, converted.Luminance(0, 0), test.ShouldAlmostEqual, 0.299*100+0.587*200+0.114*50, 1e-9)
}

func TestBilinearRGB(t *testing.T) {
	img := makeGray(3, 1, func(x, y int) uint8 { return uint8(10 + 10*x) })

	r, _, _ := img.BilinearRGB(0, 0)
	test.That(t, r, test.ShouldAlmostEqual, 10.0, 1e-9)

	r, _, _ = img.BilinearRGB(0.5, 0)
	test.That(t, r, test.ShouldAlmostEqual, 15.0, 1e-9)

	r, _, _ = img.BilinearRGB(1.25, 0)
	test.That(t, r, test.ShouldAlmostEqual, 22.5, 1e-9)

	// the last column interpolates against itself
	r, _, _ = img.BilinearRGB(2, 0)
	test.That(t, r, test.ShouldAlmostEqual, 30.0, 1e-9)
}

func TestDistanceL1(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.NRGBA{R: 15, G: 10, B: 40, A: 255})
	converted := NewImageFromImage(img)
	test.That(t, converted.DistanceL1(0, 0, 1, 0), test.ShouldAlmostEqual, 5+10+10, 1e-9)
}
