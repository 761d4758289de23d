package stereo

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultParamsValid(t *testing.T) {
	test.That(t, DefaultParams().Validate(), test.ShouldBeNil)
}

func TestValidateRejectsBadParams(t *testing.T) {
	p := DefaultParams()
	p.WindowSize = 4
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.WindowSize = 0
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.MinD = 10
	p.MaxD = 10
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.MinD = -20
	p.MaxD = -5
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.Iterations = 0
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.Alfa = 1.5
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.Gamma = 0
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.MaxSlope = 90
	test.That(t, p.Validate(), test.ShouldNotBeNil)

	p = DefaultParams()
	p.Log = 4
	test.That(t, p.Validate(), test.ShouldNotBeNil)
}

func TestParseOutOfBounds(t *testing.T) {
	for token, want := range map[string]OutOfBounds{
		"repeat": RepeatPixel,
		"black":  BlackPixel,
		"zero":   ZeroCost,
		"error":  ErrorOnBounds,
		"nan":    NaNCost,
	} {
		got, err := ParseOutOfBounds(token)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
		test.That(t, got.String(), test.ShouldEqual, token)
	}

	_, err := ParseOutOfBounds("wrap")
	test.That(t, err, test.ShouldNotBeNil)
}
