package rimage

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	_ "image/jpeg"
	_ "image/png"

	// extra decoders for less common stereo capture formats
	_ "github.com/lmittmann/ppm"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// NewImageFromFile reads an image (PNG, JPEG, and the other registered
// formats) and converts it.
func NewImageFromFile(fn string) (*Image, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open image %q", fn)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", fn)
	}
	return NewImageFromImage(img), nil
}

// WriteImageToFile encodes img to fn, choosing the format from the file
// extension. Extensions imaging does not know get PNG.
func WriteImageToFile(fn string, img image.Image) error {
	var err error
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp":
		err = imaging.Save(imaging.Clone(img), fn, imaging.JPEGQuality(100))
	default:
		var out *os.File
		out, err = os.Create(fn)
		if err != nil {
			break
		}
		defer out.Close()
		err = imaging.Encode(out, img, imaging.PNG)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot write image %q", fn)
	}
	return nil
}
