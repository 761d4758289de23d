package stereo

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/iscaswcm/spmatch/rimage"
	"github.com/iscaswcm/spmatch/utils"
)

func TestNewMatcherValidates(t *testing.T) {
	logger := golog.NewTestLogger(t)
	left := grayStereoImage(10, 8, textured)
	right := grayStereoImage(10, 8, textured)

	p := DefaultParams()
	p.WindowSize = 4
	_, err := NewMatcher(left, right, p, logger)
	test.That(t, err, test.ShouldNotBeNil)

	p = DefaultParams()
	small := grayStereoImage(9, 8, textured)
	_, err = NewMatcher(left, small, p, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIdenticalImagesGiveZeroDisparity(t *testing.T) {
	logger := golog.NewTestLogger(t)
	left := grayStereoImage(32, 20, textured)
	right := grayStereoImage(32, 20, textured)

	p := DefaultParams()
	p.WindowSize = 5
	p.MinD = 0
	p.MaxD = 8
	p.Iterations = 5
	p.UsePseudorand = true
	p.ConstDisparities = true
	p.OutOfBounds = RepeatPixel

	m, err := NewMatcher(left, right, p, logger)
	test.That(t, err, test.ShouldBeNil)
	dL, dR, err := m.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	PostProcess(dL, dR, left, right, p)

	sum, n := 0.0, 0
	for y := 3; y < 17; y++ {
		for x := 3; x < 29; x++ {
			sum += math.Abs(dL.Get(x, y))
			n++
		}
	}
	test.That(t, sum/float64(n), test.ShouldBeLessThan, 0.1)
}

func TestShiftedRampRecoversDisparity(t *testing.T) {
	logger := golog.NewTestLogger(t)
	const shift = 10
	ramp := func(x int) uint8 {
		if x < 0 {
			return 0
		}
		if x > 85 {
			return 255
		}
		return uint8(3 * x)
	}
	left := grayStereoImage(80, 40, func(x, y int) uint8 { return ramp(x) })
	right := grayStereoImage(80, 40, func(x, y int) uint8 { return ramp(x + shift) })

	p := DefaultParams()
	p.WindowSize = 5
	p.MinD = 0
	p.MaxD = 20
	p.Iterations = 3
	p.MaxSlope = 10
	p.Alfa = 0
	p.UsePseudorand = true
	p.OutOfBounds = RepeatPixel

	m, err := NewMatcher(left, right, p, logger)
	test.That(t, err, test.ShouldBeNil)
	dL, dR, err := m.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	PostProcess(dL, dR, left, right, p)

	var interior []float64
	for y := 4; y < 36; y++ {
		for x := 14; x < 66; x++ {
			interior = append(interior, dL.Get(x, y))
		}
	}
	test.That(t, utils.Median(interior...), test.ShouldAlmostEqual, float64(shift), 0.5)
}

func TestPseudorandRunsAreIdentical(t *testing.T) {
	logger := golog.NewTestLogger(t)
	left := grayStereoImage(24, 16, textured)
	right := grayStereoImage(24, 16, func(x, y int) uint8 { return textured(x+2, y) })

	p := DefaultParams()
	p.WindowSize = 3
	p.MinD = 0
	p.MaxD = 6
	p.Iterations = 2
	p.UsePseudorand = true
	p.OutOfBounds = RepeatPixel

	run := func() (*rimage.DisparityMap, *rimage.DisparityMap) {
		m, err := NewMatcher(left, right, p, logger)
		test.That(t, err, test.ShouldBeNil)
		dL, dR, err := m.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		PostProcess(dL, dR, left, right, p)
		return dL, dR
	}

	dL1, dR1 := run()
	dL2, dR2 := run()

	var csv1, csv2 bytes.Buffer
	test.That(t, dL1.WriteCSV(&csv1), test.ShouldBeNil)
	test.That(t, dL2.WriteCSV(&csv2), test.ShouldBeNil)
	test.That(t, csv1.String(), test.ShouldEqual, csv2.String())

	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			test.That(t, dL1.Get(x, y), test.ShouldEqual, dL2.Get(x, y))
			test.That(t, dR1.Get(x, y), test.ShouldEqual, dR2.Get(x, y))
		}
	}
}

func TestRunKeepsGridInvariants(t *testing.T) {
	logger := golog.NewTestLogger(t)
	left := grayStereoImage(16, 12, textured)
	right := grayStereoImage(16, 12, func(x, y int) uint8 { return textured(x+1, y) })

	p := DefaultParams()
	p.WindowSize = 3
	p.MinD = 0
	p.MaxD = 4
	p.Iterations = 2
	p.UsePseudorand = true
	p.OutOfBounds = RepeatPixel

	m, err := NewMatcher(left, right, p, logger)
	test.That(t, err, test.ShouldBeNil)
	_, _, err = m.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	for _, v := range []*viewImage{m.left, m.right} {
		other := m.right
		if v.side == RightView {
			other = m.left
		}
		for y := 0; y < 12; y++ {
			for x := 0; x < 16; x++ {
				f := v.grid.plane(x, y)
				test.That(t, f.SlopeDegrees(), test.ShouldBeLessThanOrEqualTo, p.MaxSlope+1e-9)
				want, err := planeCost(x, y, f, v, other, p)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, v.grid.cost(x, y), test.ShouldEqual, want)
			}
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	left := grayStereoImage(10, 8, textured)
	right := grayStereoImage(10, 8, textured)

	p := DefaultParams()
	p.WindowSize = 3
	p.MaxD = 4
	p.UsePseudorand = true

	m, err := NewMatcher(left, right, p, logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.Run(ctx)
	test.That(t, err, test.ShouldNotBeNil)
}
