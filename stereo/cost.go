package stereo

import (
	"math"

	"github.com/pkg/errors"

	"github.com/iscaswcm/spmatch/rimage"
	"github.com/iscaswcm/spmatch/utils"
)

// viewImage bundles one side's image, gradient field and plane grid.
type viewImage struct {
	side ViewSide
	img  *rimage.Image
	grad *rimage.VectorField2D
	grid *planeGrid
}

// windowSide returns the support window side for a plane, shrinking it under
// ResizeWindows until the disparity range the plane spans across the window
// stays below half the search range.
func windowSide(f Plane, p Params) int {
	side := p.WindowSize
	if !p.ResizeWindows {
		return side
	}
	halfRange := float64(p.MaxD-p.MinD) / 2
	for side > 1 && (math.Abs(f.A)+math.Abs(f.B))*float64(side)/2 > halfRange {
		side /= 2
	}
	if side%2 == 0 {
		side--
	}
	if side < 1 {
		side = 1
	}
	return side
}

// planeCost is the aggregated adaptive-weight matching cost of plane f at
// pixel (x, y) of the base view against the other view. It is a pure
// function; only the ErrorOnBounds policy ever returns an error.
func planeCost(x, y int, f Plane, base, other *viewImage, p Params) (float64, error) {
	half := windowSide(f, p) / 2
	sign := base.side.sign()
	maxPenalty := p.maxPenalty()

	cr, cg, cb := base.img.RGB(x, y)

	cost := 0.0
	for qy := y - half; qy <= y+half; qy++ {
		for qx := x - half; qx <= x+half; qx++ {
			bx, by := qx, qy

			// resolve the window pixel in the base view
			weight := 1.0
			var br, bg, bb float64
			var bgrad rimage.Vec2D
			switch {
			case base.img.In(qx, qy):
				br, bg, bb = base.img.RGB(qx, qy)
				bgrad = base.grad.GetVec2D(qx, qy)
				weight = math.Exp(-(math.Abs(cr-br) + math.Abs(cg-bg) + math.Abs(cb-bb)) / p.Gamma)
			case p.OutOfBounds == RepeatPixel:
				bx = utils.MinInt(utils.MaxInt(qx, 0), base.img.Width()-1)
				by = utils.MinInt(utils.MaxInt(qy, 0), base.img.Height()-1)
				br, bg, bb = base.img.RGB(bx, by)
				bgrad = base.grad.GetVec2D(bx, by)
				weight = math.Exp(-(math.Abs(cr-br) + math.Abs(cg-bg) + math.Abs(cb-bb)) / p.Gamma)
			case p.OutOfBounds == BlackPixel:
				weight = math.Exp(-(math.Abs(cr) + math.Abs(cg) + math.Abs(cb)) / p.Gamma)
			case p.OutOfBounds == ZeroCost:
				continue
			case p.OutOfBounds == NaNCost:
				cost += maxPenalty
				continue
			default:
				return 0, errors.Errorf("window pixel (%d, %d) outside %s image", qx, qy, base.side)
			}

			// project into the other view along the epipolar line
			d := f.Evaluate(float64(bx), float64(by), p)
			mx := float64(bx) - sign*d

			var or, og, ob float64
			var ograd rimage.Vec2D
			switch {
			case mx >= 0 && mx <= float64(other.img.Width()-1) && by >= 0 && by < other.img.Height():
				or, og, ob = other.img.BilinearRGB(mx, by)
				ograd = other.grad.BilinearVec(mx, by)
			case p.OutOfBounds == RepeatPixel:
				mx = utils.ClampF64(mx, 0, float64(other.img.Width()-1))
				or, og, ob = other.img.BilinearRGB(mx, by)
				ograd = other.grad.BilinearVec(mx, by)
			case p.OutOfBounds == BlackPixel:
				// zero pixel, zero gradient
			case p.OutOfBounds == ZeroCost:
				continue
			case p.OutOfBounds == NaNCost:
				cost += weight * maxPenalty
				continue
			default:
				return 0, errors.Errorf("match of window pixel (%d, %d) at column %g outside %s image",
					qx, qy, mx, other.side)
			}

			colDiff := math.Abs(br-or) + math.Abs(bg-og) + math.Abs(bb-ob)
			gradDiff := math.Abs(bgrad.X()-ograd.X()) + math.Abs(bgrad.Y()-ograd.Y())
			cost += weight * ((1-p.Alfa)*math.Min(colDiff, p.TauCol) + p.Alfa*math.Min(gradDiff, p.TauGrad))
		}
	}
	return cost, nil
}
