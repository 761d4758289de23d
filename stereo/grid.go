package stereo

import (
	"image"
	"sync"

	"github.com/iscaswcm/spmatch/utils"
)

// planeGrid is the dense per-pixel plane assignment of one view, with the
// aggregated matching cost of each plane cached alongside it. After
// initialize, a cell only ever changes through tryReplace, which keeps plane
// and cost in agreement.
type planeGrid struct {
	width  int
	height int

	planes []Plane
	costs  []float64
}

func newPlaneGrid(width, height int) *planeGrid {
	return &planeGrid{
		width:  width,
		height: height,
		planes: make([]Plane, width*height),
		costs:  make([]float64, width*height),
	}
}

func (g *planeGrid) kxy(x, y int) int {
	return (y * g.width) + x
}

func (g *planeGrid) plane(x, y int) Plane {
	return g.planes[g.kxy(x, y)]
}

func (g *planeGrid) cost(x, y int) float64 {
	return g.costs[g.kxy(x, y)]
}

// initialize assigns a random plane to every pixel of the base view and
// caches its cost. The draw depends only on (seed, stream, x, y).
func (g *planeGrid) initialize(base, other *viewImage, seed uint64, stream int, p Params) error {
	var mu sync.Mutex
	var firstErr error
	utils.ParallelForEachPixel(image.Point{g.width, g.height}, func(x, y int) {
		rng := pixelRand(seed, stream, x, y)
		f := RandomPlaneAt(x, y, rng, p)
		cost, err := planeCost(x, y, f, base, other, p)
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return
		}
		k := g.kxy(x, y)
		g.planes[k] = f
		g.costs[k] = cost
	})
	return firstErr
}

// tryReplace evaluates candidate at (x, y) and installs it when it is
// strictly cheaper than the cached cost. It is the sole mutation primitive
// of the grid; the caller owns the cell for the duration of the call.
func (g *planeGrid) tryReplace(x, y int, candidate Plane, base, other *viewImage, p Params) (bool, error) {
	cost, err := planeCost(x, y, candidate, base, other, p)
	if err != nil {
		return false, err
	}
	k := g.kxy(x, y)
	if cost >= g.costs[k] {
		return false, nil
	}
	g.planes[k] = candidate
	g.costs[k] = cost
	return true, nil
}
