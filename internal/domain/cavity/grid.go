// Package cavity detects cavities, voids and tunnels in a structure on a
// regular grid.  Every grid point carries its clearance: the distance to
// the nearest van der Waals surface.  Points reachable from outside by a
// probe sphere are exterior; the remaining open points are grouped into
// cavities, and tunnels are traced from user origins to the exterior.
package cavity

import (
	"context"
	"math"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// maxGridPoints bounds the grid size of a single detection.
const maxGridPoints = 8_000_000

// maxVdW is an upper bound of the van der Waals radii in use.
const maxVdW = 2.0

// Params tunes a detection.  Distances are in Ångström.
type Params struct {
	GridSpacing       float64
	ProbeRadius       float64
	InteriorThreshold float64
	BottleneckRadius  float64
}

func (p Params) validate() error {
	switch {
	case p.GridSpacing <= 0:
		return errors.InvalidConfig("cavity: grid spacing must be positive, got %g.", p.GridSpacing)
	case p.ProbeRadius <= 0:
		return errors.InvalidConfig("cavity: probe radius must be positive, got %g.", p.ProbeRadius)
	case p.InteriorThreshold <= 0:
		return errors.InvalidConfig("cavity: interior threshold must be positive, got %g.", p.InteriorThreshold)
	case p.InteriorThreshold > p.ProbeRadius:
		return errors.InvalidConfig("cavity: interior threshold %g exceeds the probe radius %g.", p.InteriorThreshold, p.ProbeRadius)
	}
	return nil
}

// grid is the sampled space around a structure.
type grid struct {
	s          *structure.Structure
	origin     spatial.Vec3
	spacing    float64
	nx, ny, nz int
	clearance  []float64
	exterior   []bool
}

func (g *grid) len() int { return g.nx * g.ny * g.nz }

func (g *grid) index(i, j, k int) int { return (k*g.ny+j)*g.nx + i }

func (g *grid) coords(p int) (i, j, k int) {
	i = p % g.nx
	j = (p / g.nx) % g.ny
	k = p / (g.nx * g.ny)
	return
}

func (g *grid) position(p int) spatial.Vec3 {
	i, j, k := g.coords(p)
	return g.origin.Add(spatial.V(float64(i), float64(j), float64(k)).Scale(g.spacing))
}

func (g *grid) onBoundary(p int) bool {
	i, j, k := g.coords(p)
	return i == 0 || j == 0 || k == 0 || i == g.nx-1 || j == g.ny-1 || k == g.nz-1
}

// neighbours appends the face neighbours of p to buf.
func (g *grid) neighbours(p int, buf []int) []int {
	i, j, k := g.coords(p)
	buf = buf[:0]
	if i > 0 {
		buf = append(buf, p-1)
	}
	if i < g.nx-1 {
		buf = append(buf, p+1)
	}
	if j > 0 {
		buf = append(buf, p-g.nx)
	}
	if j < g.ny-1 {
		buf = append(buf, p+g.nx)
	}
	if k > 0 {
		buf = append(buf, p-g.nx*g.ny)
	}
	if k < g.nz-1 {
		buf = append(buf, p+g.nx*g.ny)
	}
	return buf
}

// newGrid samples the box around s, padded so that the boundary is
// always probe accessible, and computes the clearance of every point.
func newGrid(ctx context.Context, s *structure.Structure, p Params) (*grid, error) {
	if len(s.Atoms) == 0 {
		return nil, errors.Newf(errors.ErrCodeStructureInvalid, "cavity: structure %s has no atoms", s.ID)
	}
	ps := make([]spatial.Vec3, len(s.Atoms))
	for i, a := range s.Atoms {
		ps[i] = a.Position
	}
	lo, hi := spatial.Bounds(ps)
	pad := p.ProbeRadius + maxVdW + 2*p.GridSpacing
	lo = lo.Sub(spatial.V(pad, pad, pad))
	hi = hi.Add(spatial.V(pad, pad, pad))

	g := &grid{
		s:       s,
		origin:  lo,
		spacing: p.GridSpacing,
		nx:      int(math.Ceil((hi.X-lo.X)/p.GridSpacing)) + 1,
		ny:      int(math.Ceil((hi.Y-lo.Y)/p.GridSpacing)) + 1,
		nz:      int(math.Ceil((hi.Z-lo.Z)/p.GridSpacing)) + 1,
	}
	if n := g.nx * g.ny * g.nz; n > maxGridPoints {
		return nil, errors.Newf(errors.ErrCodeQueryRuntime,
			"cavity: a %dx%dx%d grid exceeds %d points, increase the grid spacing", g.nx, g.ny, g.nz, maxGridPoints)
	}

	g.clearance = make([]float64, g.len())
	tree := s.AtomTree()
	for q := range g.clearance {
		if q%g.nx == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeQueryCancelled, "cavity detection cancelled")
			}
		}
		x := g.position(q)
		n, _ := tree.Nearest(x)
		best := math.Inf(1)
		for _, c := range tree.Within(x, n.Distance+maxVdW) {
			a := s.Atoms[c.Index]
			if d := c.Distance - structure.VdWRadius(a.Element); d < best {
				best = d
			}
		}
		g.clearance[q] = best
	}
	g.markExterior(p.ProbeRadius)
	return g, nil
}

// markExterior flood fills probe centers from the boundary and then marks
// every open point covered by a probe placed on the frontier.
func (g *grid) markExterior(probe float64) {
	centers := make([]bool, g.len())
	var queue []int
	for q := range centers {
		if g.onBoundary(q) && g.clearance[q] >= probe {
			centers[q] = true
			queue = append(queue, q)
		}
	}
	var buf []int
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		buf = g.neighbours(q, buf)
		for _, n := range buf {
			if !centers[n] && g.clearance[n] >= probe {
				centers[n] = true
				queue = append(queue, n)
			}
		}
	}

	g.exterior = make([]bool, g.len())
	r := int(math.Ceil(probe / g.spacing))
	r2 := probe * probe
	for q, c := range centers {
		if !c {
			continue
		}
		g.exterior[q] = true
		frontier := false
		buf = g.neighbours(q, buf)
		for _, n := range buf {
			if !centers[n] {
				frontier = true
				break
			}
		}
		if !frontier {
			continue
		}
		ci, cj, ck := g.coords(q)
		for k := max(0, ck-r); k <= min(g.nz-1, ck+r); k++ {
			for j := max(0, cj-r); j <= min(g.ny-1, cj+r); j++ {
				for i := max(0, ci-r); i <= min(g.nx-1, ci+r); i++ {
					di, dj, dk := float64(i-ci), float64(j-cj), float64(k-ck)
					if (di*di+dj*dj+dk*dk)*g.spacing*g.spacing > r2 {
						continue
					}
					if n := g.index(i, j, k); g.clearance[n] > 0 {
						g.exterior[n] = true
					}
				}
			}
		}
	}
}

// lining returns the ids of the atoms whose surface lies within one grid
// spacing of the clearance sphere of any of the points, in ascending order.
func (g *grid) lining(points []int) []int {
	seen := make(map[int]struct{})
	tree := g.s.AtomTree()
	for _, q := range points {
		x := g.position(q)
		reach := g.clearance[q] + g.spacing
		for _, c := range tree.Within(x, reach+maxVdW) {
			a := g.s.Atoms[c.Index]
			if c.Distance-structure.VdWRadius(a.Element) <= reach {
				seen[a.ID] = struct{}{}
			}
		}
	}
	return sortedIDs(seen)
}
