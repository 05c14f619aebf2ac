package cavity

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// minCavityPoints drops components too small to hold a water molecule.
const minCavityPoints = 3

// Kind distinguishes pockets open to the exterior from enclosed voids.
type Kind int

const (
	Pocket Kind = iota
	Void
)

func (k Kind) String() string {
	if k == Void {
		return "Void"
	}
	return "Pocket"
}

// Cavity is a connected region of buried open space.
type Cavity struct {
	Kind   Kind
	Volume float64
	Lining []int
}

// Tunnel is the cheapest path from an origin to the exterior.
type Tunnel struct {
	Origin     spatial.Vec3
	Length     float64
	Bottleneck float64
	Lining     []int
}

// Detector runs cavity and tunnel detection.  It is stateless and safe for
// concurrent use.
type Detector struct {
	defaults Params
}

// NewDetector returns a detector; zero fields of the per-call parameters
// fall back to defaults.
func NewDetector(defaults Params) *Detector { return &Detector{defaults: defaults} }

func (d *Detector) resolve(p Params) (Params, error) {
	if p.GridSpacing == 0 {
		p.GridSpacing = d.defaults.GridSpacing
	}
	if p.ProbeRadius == 0 {
		p.ProbeRadius = d.defaults.ProbeRadius
	}
	if p.InteriorThreshold == 0 {
		p.InteriorThreshold = d.defaults.InteriorThreshold
	}
	if p.BottleneckRadius == 0 {
		p.BottleneckRadius = d.defaults.BottleneckRadius
	}
	return p, p.validate()
}

// Cavities returns the pockets and voids of s, largest first.
func (d *Detector) Cavities(ctx context.Context, s *structure.Structure, p Params) ([]Cavity, error) {
	p, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	g, err := newGrid(ctx, s, p)
	if err != nil {
		return nil, err
	}

	cg := simple.NewUndirectedGraph()
	buried := func(q int) bool { return !g.exterior[q] && g.clearance[q] >= p.InteriorThreshold }
	var buf []int
	for q := 0; q < g.len(); q++ {
		if !buried(q) {
			continue
		}
		if cg.Node(int64(q)) == nil {
			cg.AddNode(simple.Node(q))
		}
		buf = g.neighbours(q, buf)
		for _, n := range buf {
			if n > q && buried(n) {
				if cg.Node(int64(n)) == nil {
					cg.AddNode(simple.Node(n))
				}
				cg.SetEdge(cg.NewEdge(simple.Node(q), simple.Node(n)))
			}
		}
	}

	var out []Cavity
	for _, comp := range topo.ConnectedComponents(cg) {
		if len(comp) < minCavityPoints {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueryCancelled, "cavity detection cancelled")
		}
		points := nodeIDs(comp)
		kind := Void
	scan:
		for _, q := range points {
			buf = g.neighbours(q, buf)
			for _, n := range buf {
				if g.exterior[n] {
					kind = Pocket
					break scan
				}
			}
		}
		lining := g.lining(points)
		if len(lining) == 0 {
			continue
		}
		out = append(out, Cavity{
			Kind:   kind,
			Volume: float64(len(points)) * math.Pow(g.spacing, 3),
			Lining: lining,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].Lining[0] < out[j].Lining[0]
	})
	return out, nil
}

// Tunnels traces one tunnel per origin through points whose clearance is at
// least the bottleneck radius.  Origins that are blocked or cannot reach
// the exterior yield no tunnel.
func (d *Detector) Tunnels(ctx context.Context, s *structure.Structure, origins []spatial.Vec3, p Params) ([]Tunnel, error) {
	p, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	if p.BottleneckRadius <= 0 {
		return nil, errors.InvalidConfig("cavity: bottleneck radius must be positive, got %g.", p.BottleneckRadius)
	}
	if len(origins) == 0 {
		return nil, nil
	}
	g, err := newGrid(ctx, s, p)
	if err != nil {
		return nil, err
	}

	open := func(q int) bool { return g.clearance[q] >= p.BottleneckRadius }
	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	var buf []int
	for q := 0; q < g.len(); q++ {
		if !open(q) {
			continue
		}
		if wg.Node(int64(q)) == nil {
			wg.AddNode(simple.Node(q))
		}
		buf = g.neighbours(q, buf)
		for _, n := range buf {
			if n <= q || !open(n) {
				continue
			}
			if wg.Node(int64(n)) == nil {
				wg.AddNode(simple.Node(n))
			}
			// Narrow passages cost more.
			w := g.spacing / math.Min(g.clearance[q], g.clearance[n])
			wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(q), simple.Node(n), w))
		}
	}

	var out []Tunnel
	for _, o := range origins {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueryCancelled, "tunnel tracing cancelled")
		}
		start, ok := g.snap(o, open)
		if !ok || g.exterior[start] {
			continue
		}
		tree := path.DijkstraFrom(simple.Node(start), wg)
		best, cost := -1, math.Inf(1)
		for q := 0; q < g.len(); q++ {
			if !g.exterior[q] || !open(q) {
				continue
			}
			if w := tree.WeightTo(int64(q)); w < cost {
				best, cost = q, w
			}
		}
		if best < 0 {
			continue
		}
		nodes, _ := tree.To(int64(best))
		points := nodeIDs(nodes)
		bottleneck := math.Inf(1)
		for _, q := range points {
			bottleneck = math.Min(bottleneck, g.clearance[q])
		}
		out = append(out, Tunnel{
			Origin:     o,
			Length:     float64(len(points)-1) * g.spacing,
			Bottleneck: bottleneck,
			Lining:     g.lining(points),
		})
	}
	return out, nil
}

// snap returns the open grid point nearest to x within two cells.
func (g *grid) snap(x spatial.Vec3, open func(int) bool) (int, bool) {
	rel := x.Sub(g.origin).Scale(1 / g.spacing)
	ci, cj, ck := int(math.Round(rel.X)), int(math.Round(rel.Y)), int(math.Round(rel.Z))
	best, bestD := -1, math.Inf(1)
	const reach = 2
	for k := max(0, ck-reach); k <= min(g.nz-1, ck+reach); k++ {
		for j := max(0, cj-reach); j <= min(g.ny-1, cj+reach); j++ {
			for i := max(0, ci-reach); i <= min(g.nx-1, ci+reach); i++ {
				q := g.index(i, j, k)
				if !open(q) {
					continue
				}
				if d := g.position(q).DistanceSquaredTo(x); d < bestD {
					best, bestD = q, d
				}
			}
		}
	}
	return best, best >= 0
}

func nodeIDs(ns []graph.Node) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

func sortedIDs(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
