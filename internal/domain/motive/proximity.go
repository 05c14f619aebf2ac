package motive

import (
	"github.com/turtacn/motivequery/internal/domain/spatial"
)

// ProximityTree is a spatial index over a fixed list of motives keyed by
// their centers.  Radius queries are inflated by the query motive radius
// and the largest indexed radius before the exact pairwise tests run.
type ProximityTree struct {
	motives   []*Motive
	tree      *spatial.Tree
	maxRadius float64
}

// NewProximityTree indexes ms.  The slice is retained; callers must not
// modify it.
func NewProximityTree(ms []*Motive) *ProximityTree {
	centers := make([]spatial.Vec3, len(ms))
	maxRadius := 0.0
	for i, m := range ms {
		centers[i] = m.Center()
		if r := m.Radius(); r > maxRadius {
			maxRadius = r
		}
	}
	return &ProximityTree{motives: ms, tree: spatial.NewTree(centers), maxRadius: maxRadius}
}

// Len returns the number of indexed motives.
func (t *ProximityTree) Len() int { return len(t.motives) }

// Motives returns the indexed motives in insertion order.
func (t *ProximityTree) Motives() []*Motive { return t.motives }

func (t *ProximityTree) candidates(m *Motive, d float64) []*Motive {
	hits := t.tree.Within(m.Center(), d+m.Radius()+t.maxRadius)
	out := make([]*Motive, len(hits))
	for i, h := range hits {
		out[i] = t.motives[h.Index]
	}
	return out
}

// Close returns the indexed motives that AreNear m within d, closest center
// first.
func (t *ProximityTree) Close(m *Motive, d float64) []*Motive {
	var out []*Motive
	for _, c := range t.candidates(m, d) {
		if AreNear(d, m, c) {
			out = append(out, c)
		}
	}
	return out
}

// Connected returns the indexed motives within the inflated radius d that
// are connected to m.
func (t *ProximityTree) Connected(m *Motive, d float64, exclusive bool) []*Motive {
	var out []*Motive
	for _, c := range t.candidates(m, d) {
		if AreConnected(m, c, exclusive) {
			out = append(out, c)
		}
	}
	return out
}

// Nearest returns the motive whose center is closest to the center of m.
func (t *ProximityTree) Nearest(m *Motive) (*Motive, bool) {
	n, ok := t.tree.Nearest(m.Center())
	if !ok {
		return nil, false
	}
	return t.motives[n.Index], true
}
