package stereo

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/iscaswcm/spmatch/rimage"
	"github.com/iscaswcm/spmatch/utils"
)

// RNG streams for grid initialization; sweeps use their own index.
const (
	initStreamLeft  = -1
	initStreamRight = -2
)

// refineFloor is the delta below which plane refinement stops halving.
const refineFloor = 0.1

// Matcher runs PatchMatch stereo over a rectified pair. It owns both plane
// grids; images, gradients and parameters are shared read-only.
type Matcher struct {
	params Params
	logger golog.Logger
	seed   uint64

	left  *viewImage
	right *viewImage
}

// NewMatcher validates the parameters, precomputes both gradient fields and
// allocates the plane grids.
func NewMatcher(left, right *rimage.Image, p Params, logger golog.Logger) (*Matcher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if left.Width() != right.Width() || left.Height() != right.Height() {
		return nil, errors.Errorf("stereo pair size mismatch: %dx%d vs %dx%d",
			left.Width(), left.Height(), right.Width(), right.Height())
	}

	gradL := rimage.SobelGradient(left)
	gradR := rimage.SobelGradient(right)
	if p.NormalizeGradients {
		gradL.Normalize()
		gradR.Normalize()
	}

	w, h := left.Width(), left.Height()
	return &Matcher{
		params: p,
		logger: logger,
		seed:   runSeed(p.UsePseudorand),
		left:   &viewImage{side: LeftView, img: left, grad: gradL, grid: newPlaneGrid(w, h)},
		right:  &viewImage{side: RightView, img: right, grad: gradR, grid: newPlaneGrid(w, h)},
	}, nil
}

// onceErr keeps the first error seen across parallel workers.
type onceErr struct {
	mu  sync.Mutex
	err error
}

func (o *onceErr) set(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	if o.err == nil {
		o.err = err
	}
	o.mu.Unlock()
}

func (o *onceErr) get() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Run initializes both grids, performs the configured number of sweeps and
// extracts the two raw disparity maps. The context is checked between
// sweeps.
func (m *Matcher) Run(ctx context.Context) (*rimage.DisparityMap, *rimage.DisparityMap, error) {
	m.logger.Infof("initializing %dx%d plane grids, disparity range [%d, %d]",
		m.left.img.Width(), m.left.img.Height(), m.params.MinD, m.params.MaxD)
	if err := m.left.grid.initialize(m.left, m.right, m.seed, initStreamLeft, m.params); err != nil {
		return nil, nil, err
	}
	if err := m.right.grid.initialize(m.right, m.left, m.seed, initStreamRight, m.params); err != nil {
		return nil, nil, err
	}

	for i := 0; i < m.params.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "matching interrupted")
		}
		if err := m.sweep(ctx, i); err != nil {
			return nil, nil, err
		}
	}

	return m.extract(m.left), m.extract(m.right), nil
}

// sweep runs one full PatchMatch pass over one view. Anti-diagonals are
// processed in scan order; pixels within a diagonal run in parallel because
// their scan-direction neighbors all sit on earlier diagonals. The other
// view's grid is never written during the sweep, so view propagation reads a
// consistent snapshot.
func (m *Matcher) sweep(ctx context.Context, i int) error {
	forward := i%2 == 0
	base, other := m.left, m.right
	if !forward {
		base, other = m.right, m.left
	}
	w, h := base.img.Width(), base.img.Height()

	var replaced int64
	var sweepErr onceErr
	lastDiag := w + h - 2
	for step := 0; step <= lastDiag; step++ {
		k := step
		if !forward {
			k = lastDiag - step
		}
		xMin := utils.MaxInt(0, k-(h-1))
		xMax := utils.MinInt(w-1, k)
		//nolint:errcheck // the helper never errors; failures land in sweepErr
		utils.GroupWorkParallel(ctx, xMax-xMin+1, func(int) {},
			func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
				return func(memberNum, workNum int) {
					x := xMin + workNum
					y := k - x
					n, err := m.updatePixel(i, x, y, base, other, forward)
					if err != nil {
						sweepErr.set(err)
						return
					}
					atomic.AddInt64(&replaced, int64(n))
				}, nil
			})
		if err := sweepErr.get(); err != nil {
			return err
		}
	}

	m.logger.Infof("sweep %d over %s view: %d plane replacements", i, base.side, replaced)
	return nil
}

// updatePixel runs the three update stages on one pixel and reports how many
// candidates won.
func (m *Matcher) updatePixel(i, x, y int, base, other *viewImage, forward bool) (int, error) {
	p := m.params
	rng := pixelRand(m.seed, i, x, y)
	replaced := 0

	// spatial propagation from the already-updated scan neighbors
	dirs := [2][2]int{{-1, 0}, {0, -1}}
	if !forward {
		dirs = [2][2]int{{1, 0}, {0, 1}}
	}
	for _, dir := range dirs {
		nx, ny := x+dir[0], y+dir[1]
		if !base.img.In(nx, ny) {
			continue
		}
		ok, err := base.grid.tryReplace(x, y, base.grid.plane(nx, ny), base, other, p)
		if err != nil {
			return replaced, err
		}
		if ok {
			replaced++
		}
	}

	// view propagation: planes of the other view whose disparity projects
	// onto this pixel
	otherSign := other.side.sign()
	for qx := 0; qx < other.img.Width(); qx++ {
		fq := other.grid.plane(qx, y)
		d := fq.Evaluate(float64(qx), float64(y), p)
		if int(math.Round(float64(qx)-otherSign*d)) != x {
			continue
		}
		candidate, ok := fq.TransferToOtherView(other.side)
		if !ok || candidate.SlopeDegrees() > p.MaxSlope+1e-9 {
			continue
		}
		won, err := base.grid.tryReplace(x, y, candidate, base, other, p)
		if err != nil {
			return replaced, err
		}
		if won {
			replaced++
		}
	}

	// plane refinement with exponentially shrinking search radius
	deltaD := float64(p.MaxD-p.MinD) / 2
	deltaN := 1.0
	for deltaD >= refineFloor {
		candidate := base.grid.plane(x, y).Refine(x, y, rng, deltaD, deltaN, p)
		won, err := base.grid.tryReplace(x, y, candidate, base, other, p)
		if err != nil {
			return replaced, err
		}
		if won {
			replaced++
		}
		deltaD /= 2
		deltaN /= 2
	}

	return replaced, nil
}

// extract evaluates every pixel's plane at its own coordinate.
func (m *Matcher) extract(v *viewImage) *rimage.DisparityMap {
	w, h := v.img.Width(), v.img.Height()
	dm := rimage.NewDisparityMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dm.Set(x, y, v.grid.plane(x, y).Evaluate(float64(x), float64(y), m.params))
		}
	}
	return dm
}
