package stereo

import (
	"math"
	"math/rand"

	"github.com/iscaswcm/spmatch/utils"
)

// ViewSide identifies which image of the pair a plane or pixel belongs to.
type ViewSide int

const (
	// LeftView is the base view whose match lies to the left in the other image.
	LeftView ViewSide = iota
	// RightView is the opposite side.
	RightView
)

func (v ViewSide) String() string {
	if v == LeftView {
		return "left"
	}
	return "right"
}

// Other returns the opposite side.
func (v ViewSide) Other() ViewSide {
	if v == LeftView {
		return RightView
	}
	return LeftView
}

// sign is the disparity sign of the view: the match of column x lies at
// x - sign*d.
func (v ViewSide) sign() float64 {
	if v == LeftView {
		return 1
	}
	return -1
}

// Plane is a slanted disparity plane d(x, y) = A*x + B*y + C.
type Plane struct {
	A, B, C float64
}

// Evaluate returns the disparity of the plane at (x, y), saturated to the
// disparity range when PlanesSaturation is set.
func (f Plane) Evaluate(x, y float64, p Params) float64 {
	d := f.A*x + f.B*y + f.C
	if p.PlanesSaturation {
		d = utils.ClampF64(d, float64(p.MinD), float64(p.MaxD))
	}
	return d
}

// SlopeDegrees is the slant of the plane with respect to fronto-parallel.
func (f Plane) SlopeDegrees() float64 {
	return utils.RadToDeg(math.Atan(math.Hypot(f.A, f.B)))
}

// normal returns the unit surface normal of the plane; (A, B) = (-nx/nz, -ny/nz).
func (f Plane) normal() (float64, float64, float64) {
	norm := math.Sqrt(f.A*f.A + f.B*f.B + 1)
	return -f.A / norm, -f.B / norm, 1 / norm
}

// planeThrough builds the plane with the given unit normal passing through
// disparity d at (x, y).
func planeThrough(x, y, d, nx, ny, nz float64) Plane {
	a := -nx / nz
	b := -ny / nz
	return Plane{A: a, B: b, C: d - a*x - b*y}
}

// ballVector draws a vector uniformly from the unit-radius ball.
func ballVector(rng *rand.Rand) (float64, float64, float64) {
	for {
		x := 2*rng.Float64() - 1
		y := 2*rng.Float64() - 1
		z := 2*rng.Float64() - 1
		if x*x+y*y+z*z <= 1 {
			return x, y, z
		}
	}
}

// hemisphereNormal draws a unit normal uniformly on the nz > 0 hemisphere,
// rejection-sampled so the implied slope stays within the cap.
func hemisphereNormal(rng *rand.Rand, maxSlope float64) (float64, float64, float64) {
	minNz := math.Cos(utils.DegToRad(maxSlope))
	for {
		x, y, z := ballVector(rng)
		norm := math.Sqrt(x*x + y*y + z*z)
		if norm < 1e-9 {
			continue
		}
		z = math.Abs(z)
		if z/norm < minNz || z/norm < 1e-6 {
			continue
		}
		return x / norm, y / norm, z / norm
	}
}

// RandomPlaneAt draws a plane through a uniform random disparity at (x, y)
// with a uniform random hemisphere normal.
func RandomPlaneAt(x, y int, rng *rand.Rand, p Params) Plane {
	d := float64(p.MinD) + rng.Float64()*float64(p.MaxD-p.MinD)
	if p.ConstDisparities {
		return Plane{C: d}
	}
	nx, ny, nz := hemisphereNormal(rng, p.MaxSlope)
	return planeThrough(float64(x), float64(y), d, nx, ny, nz)
}

// Refine perturbs the plane at (x, y): the disparity by U[-deltaD, +deltaD]
// and the normal by a ball vector scaled by deltaN. The slope cap is enforced
// by shrinking the tangential component.
func (f Plane) Refine(x, y int, rng *rand.Rand, deltaD, deltaN float64, p Params) Plane {
	d := f.A*float64(x) + f.B*float64(y) + f.C
	d += deltaD * (2*rng.Float64() - 1)
	d = utils.ClampF64(d, float64(p.MinD), float64(p.MaxD))
	if p.ConstDisparities {
		return Plane{C: d}
	}

	nx, ny, nz := f.normal()
	dx, dy, dz := ballVector(rng)
	nx += deltaN * dx
	ny += deltaN * dy
	nz += deltaN * dz
	norm := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if norm < 1e-9 || math.Abs(nz)/norm < 1e-6 {
		// degenerate draw, keep the old orientation
		nx, ny, nz = f.normal()
	} else {
		nx /= norm
		ny /= norm
		nz /= norm
		if nz < 0 {
			nx, ny, nz = -nx, -ny, -nz
		}
	}

	maxTan := math.Tan(utils.DegToRad(p.MaxSlope))
	tangential := math.Hypot(nx, ny)
	if tangential > maxTan*nz {
		scale := maxTan * nz / tangential
		nx *= scale
		ny *= scale
		norm = math.Sqrt(nx*nx + ny*ny + nz*nz)
		nx /= norm
		ny /= norm
		nz /= norm
	}
	return planeThrough(float64(x), float64(y), d, nx, ny, nz)
}

// TransferToOtherView re-expresses the plane of the given view in the
// coordinates of the other view, so that both describe the same surface.
// With the match of column x at x' = x - s*d(x), the transferred coefficients
// are (A, B, C) / (1 - s*A). Planes collapsing the epipolar line to a point
// cannot transfer; ok is false for those.
func (f Plane) TransferToOtherView(view ViewSide) (Plane, bool) {
	denom := 1 - view.sign()*f.A
	if math.Abs(denom) < 1e-6 {
		return Plane{}, false
	}
	return Plane{A: f.A / denom, B: f.B / denom, C: f.C / denom}, true
}
