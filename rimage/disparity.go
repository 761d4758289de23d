package rimage

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DisparityMap is a dense per-pixel floating point disparity with a validity
// mask. Pixels start out valid; post-processing marks mismatches invalid and
// fills most of them back in.
type DisparityMap struct {
	width  int
	height int

	data  []float64
	valid []bool
}

// NewDisparityMap allocates an all-valid map of the given size.
func NewDisparityMap(width, height int) *DisparityMap {
	dm := &DisparityMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
		valid:  make([]bool, width*height),
	}
	for i := range dm.valid {
		dm.valid[i] = true
	}
	return dm
}

func (dm *DisparityMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

func (dm *DisparityMap) Width() int {
	return dm.width
}

func (dm *DisparityMap) Height() int {
	return dm.height
}

func (dm *DisparityMap) Get(x, y int) float64 {
	return dm.data[dm.kxy(x, y)]
}

func (dm *DisparityMap) Set(x, y int, d float64) {
	dm.data[dm.kxy(x, y)] = d
}

func (dm *DisparityMap) Valid(x, y int) bool {
	return dm.valid[dm.kxy(x, y)]
}

func (dm *DisparityMap) SetValid(x, y int, v bool) {
	dm.valid[dm.kxy(x, y)] = v
}

// Clone returns a deep copy.
func (dm *DisparityMap) Clone() *DisparityMap {
	out := &DisparityMap{
		width:  dm.width,
		height: dm.height,
		data:   make([]float64, len(dm.data)),
		valid:  make([]bool, len(dm.valid)),
	}
	copy(out.data, dm.data)
	copy(out.valid, dm.valid)
	return out
}

// ToGray renders the map as an 8-bit grayscale image, rescaling the
// valid-pixel min..max range linearly to 0..255. Invalid pixels and
// degenerate flat maps render as 0.
func (dm *DisparityMap) ToGray() *image.Gray {
	minD, maxD := math.Inf(1), math.Inf(-1)
	for i, d := range dm.data {
		if !dm.valid[i] || math.IsNaN(d) {
			continue
		}
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}

	img := image.NewGray(image.Rect(0, 0, dm.width, dm.height))
	if minD >= maxD {
		return img
	}
	scale := 255.0 / (maxD - minD)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			k := dm.kxy(x, y)
			if !dm.valid[k] || math.IsNaN(dm.data[k]) {
				continue
			}
			v := (dm.data[k] - minD) * scale
			img.Pix[img.PixOffset(x, y)] = uint8(math.Round(math.Min(math.Max(v, 0), 255)))
		}
	}
	return img
}

// WriteCSV writes one "w, h, disparity" line per pixel with 8 significant
// digits, with w as the outer index. Invalid pixels write their stored
// value, which the post-processor sets to NaN under the nan boundary policy.
func (dm *DisparityMap) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for x := 0; x < dm.width; x++ {
		for y := 0; y < dm.height; y++ {
			if _, err := fmt.Fprintf(bw, "%d, %d, %.8g\n", x, y, dm.Get(x, y)); err != nil {
				return errors.Wrap(err, "cannot write disparity csv")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "cannot write disparity csv")
}

// ReadCSVDisparity parses a file produced by WriteCSV.
func ReadCSVDisparity(r io.Reader, width, height int) (*DisparityMap, error) {
	dm := NewDisparityMap(width, height)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != 3 {
			return nil, errors.Errorf("line %d: want 3 fields, got %d", line, len(fields))
		}
		x, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		y, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if x < 0 || x >= width || y < 0 || y >= height {
			return nil, errors.Errorf("line %d: pixel (%d, %d) out of %dx%d", line, x, y, width, height)
		}
		dm.Set(x, y, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read disparity csv")
	}
	return dm, nil
}
