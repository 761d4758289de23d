package rimage

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/iscaswcm/spmatch/utils"
)

// Vec2D is the gradient of an image at a point, stored by components.
type Vec2D struct {
	x float64
	y float64
}

func (g Vec2D) X() float64 {
	return g.x
}

func (g Vec2D) Y() float64 {
	return g.y
}

func (g Vec2D) Magnitude() float64 {
	return math.Hypot(g.x, g.y)
}

// VectorField2D stores all the gradient vectors of the image
// allowing one to retrieve the gradient for any given (x,y) point.
type VectorField2D struct {
	width  int
	height int

	data         []Vec2D
	maxMagnitude float64
}

func (vf *VectorField2D) kxy(x, y int) int {
	return (y * vf.width) + x
}

func (vf *VectorField2D) Width() int {
	return vf.width
}

func (vf *VectorField2D) Height() int {
	return vf.height
}

func (vf *VectorField2D) GetVec2D(x, y int) Vec2D {
	return vf.data[vf.kxy(x, y)]
}

func (vf *VectorField2D) MaxMagnitude() float64 {
	return vf.maxMagnitude
}

// BilinearVec samples the field at a fractional column x on row y. x must
// lie in [0, width-1]; at the last column the sample is that column itself.
func (vf *VectorField2D) BilinearVec(x float64, y int) Vec2D {
	x0 := int(math.Floor(x))
	x1 := x0 + 1
	if x1 >= vf.width {
		x1 = vf.width - 1
	}
	t := x - float64(x0)
	g0, g1 := vf.data[vf.kxy(x0, y)], vf.data[vf.kxy(x1, y)]
	return Vec2D{
		x: g0.x + t*(g1.x-g0.x),
		y: g0.y + t*(g1.y-g0.y),
	}
}

// Normalize rescales the field so that the maximum gradient magnitude over
// the image becomes one. A flat field is left untouched.
func (vf *VectorField2D) Normalize() {
	if vf.maxMagnitude == 0 {
		return
	}
	scale := 1.0 / vf.maxMagnitude
	for i := range vf.data {
		vf.data[i].x *= scale
		vf.data[i].y *= scale
	}
	vf.maxMagnitude = 1.0
}

// MagnitudeField returns all the magnitudes of the gradient in the image as a mat.Dense.
func (vf *VectorField2D) MagnitudeField() *mat.Dense {
	h, w := vf.height, vf.width
	magnitudes := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			magnitudes = append(magnitudes, vf.GetVec2D(x, y).Magnitude())
		}
	}
	return mat.NewDense(h, w, magnitudes)
}

// sobelX and sobelY are the 3x3 Sobel kernels. Responses are divided by 8 so
// that the components come out in central-difference units.
var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// SobelGradient computes the luminance gradient field of the image.
// Coordinates outside the image clamp to the nearest border pixel.
func SobelGradient(img *Image) *VectorField2D {
	w, h := img.Width(), img.Height()
	lum := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lum.Set(y, x, img.Luminance(x, y))
		}
	}

	vf := &VectorField2D{
		width:  w,
		height: h,
		data:   make([]Vec2D, w*h),
	}
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		var gx, gy float64
		for ky := 0; ky < 3; ky++ {
			for kx := 0; kx < 3; kx++ {
				px := utils.MinInt(utils.MaxInt(x+kx-1, 0), w-1)
				py := utils.MinInt(utils.MaxInt(y+ky-1, 0), h-1)
				v := lum.At(py, px)
				gx += v * sobelX[ky][kx]
				gy += v * sobelY[ky][kx]
			}
		}
		vf.data[vf.kxy(x, y)] = Vec2D{x: gx / 8, y: gy / 8}
	})

	maxMag := 0.0
	for i := range vf.data {
		maxMag = math.Max(maxMag, vf.data[i].Magnitude())
	}
	vf.maxMagnitude = maxMag
	return vf
}
