package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestMedian(t *testing.T) {
	test.That(t, Median(1, 2, 3), test.ShouldEqual, 2)
	test.That(t, Median(3, 1), test.ShouldEqual, 3)
	test.That(t, math.IsNaN(Median()), test.ShouldBeTrue)
}

func TestClampF64(t *testing.T) {
	test.That(t, ClampF64(5, 0, 10), test.ShouldEqual, 5)
	test.That(t, ClampF64(-1, 0, 10), test.ShouldEqual, 0)
	test.That(t, ClampF64(11, 0, 10), test.ShouldEqual, 10)
}

func TestDegRadRoundTrip(t *testing.T) {
	test.That(t, RadToDeg(DegToRad(45)), test.ShouldAlmostEqual, 45, 1e-12)
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi, 1e-12)
}
