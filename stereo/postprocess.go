package stereo

import (
	"image"
	"math"
	"sort"

	"github.com/iscaswcm/spmatch/rimage"
	"github.com/iscaswcm/spmatch/utils"
)

// consistencyTolerance is the max disparity disagreement the left-right
// check accepts.
const consistencyTolerance = 1.0

// PostProcess runs the three cleanup stages on a pair of raw disparity maps:
// left-right consistency, invalid-pixel filling and weighted-median
// denoising of the filled pixels. The maps are modified in place. Pixels
// with no valid disparity anywhere on their row stay invalid; under the
// NaNCost policy their disparity becomes NaN.
func PostProcess(left, right *rimage.DisparityMap, leftImg, rightImg *rimage.Image, p Params) {
	markInconsistent(left, right, LeftView)
	markInconsistent(right, left, RightView)

	invalidLeft := invalidMask(left)
	invalidRight := invalidMask(right)

	fillInvalid(left)
	fillInvalid(right)

	weightedMedian(left, leftImg, invalidLeft, p)
	weightedMedian(right, rightImg, invalidRight, p)

	if p.OutOfBounds == NaNCost {
		markUnfilled(left)
		markUnfilled(right)
	}
}

// markInconsistent invalidates base pixels whose disparity does not lead to
// an other-view pixel that agrees within the tolerance.
func markInconsistent(base, other *rimage.DisparityMap, side ViewSide) {
	sign := side.sign()
	w, h := base.Width(), base.Height()
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		d := base.Get(x, y)
		mx := int(math.Round(float64(x) - sign*d))
		if mx < 0 || mx >= w || math.Abs(other.Get(mx, y)-d) > consistencyTolerance {
			base.SetValid(x, y, false)
		}
	})
}

func invalidMask(dm *rimage.DisparityMap) []bool {
	w, h := dm.Width(), dm.Height()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = !dm.Valid(x, y)
		}
	}
	return mask
}

// fillInvalid replaces each invalid pixel with the smaller of the nearest
// valid disparities to its left and right, preferring the farther surface so
// foreground does not bleed into occlusions. Pixels with no valid neighbor
// on either side stay invalid.
func fillInvalid(dm *rimage.DisparityMap) {
	w, h := dm.Width(), dm.Height()
	filled := dm.Clone()
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		if dm.Valid(x, y) {
			return
		}
		leftD, leftOK := scanValid(dm, x, y, -1)
		rightD, rightOK := scanValid(dm, x, y, 1)
		switch {
		case leftOK && rightOK:
			filled.Set(x, y, math.Min(leftD, rightD))
		case leftOK:
			filled.Set(x, y, leftD)
		case rightOK:
			filled.Set(x, y, rightD)
		default:
			return
		}
		filled.SetValid(x, y, true)
	})
	*dm = *filled
}

func scanValid(dm *rimage.DisparityMap, x, y, step int) (float64, bool) {
	for sx := x + step; sx >= 0 && sx < dm.Width(); sx += step {
		if dm.Valid(sx, y) {
			return dm.Get(sx, y), true
		}
	}
	return 0, false
}

// weightedMedian replaces every previously-invalid pixel with the weighted
// median disparity of its support window, weighting window pixels by color
// similarity in the matching view.
func weightedMedian(dm *rimage.DisparityMap, img *rimage.Image, wasInvalid []bool, p Params) {
	w, h := dm.Width(), dm.Height()
	half := p.WindowSize / 2
	source := dm.Clone()
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		if !wasInvalid[y*w+x] || !source.Valid(x, y) {
			return
		}
		type sample struct {
			d      float64
			weight float64
		}
		samples := make([]sample, 0, p.WindowSize*p.WindowSize)
		total := 0.0
		for qy := y - half; qy <= y+half; qy++ {
			for qx := x - half; qx <= x+half; qx++ {
				if !img.In(qx, qy) || !source.Valid(qx, qy) {
					continue
				}
				weight := math.Exp(-img.DistanceL1(x, y, qx, qy) / p.Gamma)
				samples = append(samples, sample{d: source.Get(qx, qy), weight: weight})
				total += weight
			}
		}
		if len(samples) == 0 {
			return
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].d < samples[j].d })
		acc := 0.0
		for _, s := range samples {
			acc += s.weight
			if acc >= total/2 {
				dm.Set(x, y, s.d)
				return
			}
		}
		dm.Set(x, y, samples[len(samples)-1].d)
	})
}

// markUnfilled writes the NaN sentinel into pixels that never got a value.
func markUnfilled(dm *rimage.DisparityMap) {
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			if !dm.Valid(x, y) {
				dm.Set(x, y, math.NaN())
			}
		}
	}
}
