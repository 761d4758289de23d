// Package main is the spmatch command: PatchMatch stereo matching with
// slanted support windows over a rectified image pair.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iscaswcm/spmatch/rimage"
	"github.com/iscaswcm/spmatch/stereo"
)

func main() {
	helpRequested := false
	for _, arg := range os.Args[1:] {
		if arg == "-h" || arg == "--help" {
			helpRequested = true
		}
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if helpRequested {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := stereo.DefaultParams()

	return &cli.App{
		Name:      "spmatch",
		Usage:     "stereo matching with slanted support windows",
		UsageText: "spmatch [options] <left_image> <right_image>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "disparity.png",
				Usage:   "the path/name of the output files",
			},
			&cli.StringSliceFlag{
				Name:    "inputs",
				Aliases: []string{"I"},
				Usage:   "left and right images",
			},
			&cli.IntFlag{
				Name:    "log",
				Aliases: []string{"l"},
				Value:   defaults.Log,
				Usage:   "log level {0,...,3}",
			},
			&cli.Float64Flag{Name: "alfa", Value: defaults.Alfa, Usage: "color/gradient balance"},
			&cli.Float64Flag{Name: "tau_col", Value: defaults.TauCol, Usage: "color difference cap"},
			&cli.Float64Flag{Name: "tau_grad", Value: defaults.TauGrad, Usage: "gradient difference cap"},
			&cli.Float64Flag{Name: "gamma", Value: defaults.Gamma, Usage: "adaptive weight falloff"},
			&cli.IntFlag{
				Name:    "window_size",
				Aliases: []string{"w"},
				Value:   defaults.WindowSize,
				Usage:   "pixel size of the matching window (odd)",
			},
			&cli.IntFlag{
				Name:    "min_d",
				Aliases: []string{"m"},
				Value:   defaults.MinD,
				Usage:   "minimum disparity",
			},
			&cli.IntFlag{
				Name:    "max_d",
				Aliases: []string{"M"},
				Value:   defaults.MaxD,
				Usage:   "maximum disparity",
			},
			&cli.IntFlag{
				Name:    "iteration",
				Aliases: []string{"i"},
				Value:   defaults.Iterations,
				Usage:   "number of sweeps",
			},
			&cli.Float64Flag{Name: "max_slope", Value: defaults.MaxSlope, Usage: "plane slope cap in degrees"},
			&cli.BoolFlag{
				Name:  "normalize_gradients",
				Value: defaults.NormalizeGradients,
				Usage: "whether the gradient map should be normalized",
			},
			&cli.StringFlag{
				Name:  "out_of_bounds",
				Value: defaults.OutOfBounds.String(),
				Usage: "out of bounds action, one of {repeat, black, zero, error, nan}",
			},
			&cli.BoolFlag{
				Name:  "resize_window",
				Value: defaults.ResizeWindows,
				Usage: "whether slanted windows should be smaller",
			},
			&cli.BoolFlag{
				Name:  "planes_saturation",
				Value: defaults.PlanesSaturation,
				Usage: "force any evaluated disparity into the search range",
			},
			&cli.BoolFlag{
				Name:  "use_pseudorand",
				Value: defaults.UsePseudorand,
				Usage: "use pseudorandom numbers (repeatable computation)",
			},
			&cli.BoolFlag{
				Name:  "const_disparities",
				Value: defaults.ConstDisparities,
				Usage: "always use constant planes",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	inputs := c.StringSlice("inputs")
	if len(inputs) == 0 {
		inputs = c.Args().Slice()
	}
	if len(inputs) != 2 {
		return cli.Exit("need two images", 2)
	}
	for _, fn := range inputs {
		if _, err := os.Stat(fn); err != nil {
			return cli.Exit(fmt.Sprintf("file not found: %s", fn), 2)
		}
	}

	outOfBounds, err := stereo.ParseOutOfBounds(c.String("out_of_bounds"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	params := stereo.Params{
		Alfa:               c.Float64("alfa"),
		TauCol:             c.Float64("tau_col"),
		TauGrad:            c.Float64("tau_grad"),
		Gamma:              c.Float64("gamma"),
		WindowSize:         c.Int("window_size"),
		MinD:               c.Int("min_d"),
		MaxD:               c.Int("max_d"),
		Iterations:         c.Int("iteration"),
		MaxSlope:           c.Float64("max_slope"),
		NormalizeGradients: c.Bool("normalize_gradients"),
		OutOfBounds:        outOfBounds,
		ResizeWindows:      c.Bool("resize_window"),
		PlanesSaturation:   c.Bool("planes_saturation"),
		UsePseudorand:      c.Bool("use_pseudorand"),
		ConstDisparities:   c.Bool("const_disparities"),
		Log:                c.Int("log"),
	}
	if err := params.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	var logger golog.Logger
	switch params.Log {
	case 0:
		logger = zap.NewNop().Sugar()
	case 1:
		logger = golog.NewLogger("spmatch")
	default:
		logger = golog.NewDebugLogger("spmatch")
	}

	if err := computeAndWrite(c, inputs[0], inputs[1], c.String("output"), params, logger); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

func computeAndWrite(c *cli.Context, leftPath, rightPath, output string, params stereo.Params, logger golog.Logger) error {
	left, err := rimage.NewImageFromFile(leftPath)
	if err != nil {
		return err
	}
	right, err := rimage.NewImageFromFile(rightPath)
	if err != nil {
		return err
	}

	matcher, err := stereo.NewMatcher(left, right, params, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	leftDisp, rightDisp, err := matcher.Run(c.Context)
	if err != nil {
		return err
	}
	stereo.PostProcess(leftDisp, rightDisp, left, right, params)
	logger.Infof("matched %dx%d pair in %s", left.Width(), left.Height(), time.Since(start))

	imgL, imgR, csvL, csvR := outputPaths(output)
	return multierr.Combine(
		writeCSV(csvL, leftDisp),
		writeCSV(csvR, rightDisp),
		rimage.WriteImageToFile(imgL, leftDisp.ToGray()),
		rimage.WriteImageToFile(imgR, rightDisp.ToGray()),
	)
}

// outputPaths derives the four output file names by inserting the view
// letter before the extension; extension-less outputs become PNGs.
func outputPaths(output string) (imgL, imgR, csvL, csvR string) {
	ext := filepath.Ext(output)
	stem := strings.TrimSuffix(output, ext)
	if ext == "" {
		ext = ".png"
	}
	return stem + "L" + ext, stem + "R" + ext, stem + "L.csv", stem + "R.csv"
}

func writeCSV(fn string, dm *rimage.DisparityMap) error {
	f, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", fn)
	}
	defer f.Close()
	return dm.WriteCSV(f)
}
