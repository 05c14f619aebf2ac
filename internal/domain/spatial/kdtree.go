package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Neighbour is a single hit of a tree query: the index of the indexed point
// in the slice passed to NewTree and its Euclidean distance to the query.
type Neighbour struct {
	Index    int
	Distance float64
}

// entry is a kdtree.Comparable carrying the index of the point it stands
// for.  Query points use index -1.
type entry struct {
	pos   Vec3
	index int
}

func (e entry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return e.pos.At(int(d)) - c.(entry).pos.At(int(d))
}

func (e entry) Dims() int { return 3 }

func (e entry) Distance(c kdtree.Comparable) float64 {
	return e.pos.DistanceSquaredTo(c.(entry).pos)
}

// entries satisfies kdtree.Interface.
type entries []entry

func (es entries) Index(i int) kdtree.Comparable { return es[i] }
func (es entries) Len() int                      { return len(es) }
func (es entries) Slice(start, end int) kdtree.Interface {
	return es[start:end]
}
func (es entries) Pivot(d kdtree.Dim) int {
	p := plane{entries: es, dim: d}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// plane pivots entries along one dimension.
type plane struct {
	entries
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.entries[i].pos.At(int(p.dim)) < p.entries[j].pos.At(int(p.dim))
}
func (p plane) Swap(i, j int) { p.entries[i], p.entries[j] = p.entries[j], p.entries[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.entries = p.entries[start:end]
	return p
}

// Tree is an immutable 3-D k-d tree over a fixed list of points.  Results
// refer to points by their index in the original slice.
type Tree struct {
	tree *kdtree.Tree
	n    int
}

// NewTree indexes positions.  The slice is copied; the caller may reuse it.
func NewTree(positions []Vec3) *Tree {
	es := make(entries, len(positions))
	for i, p := range positions {
		es[i] = entry{pos: p, index: i}
	}
	return &Tree{tree: kdtree.New(es, false), n: len(positions)}
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return t.n }

// Within returns every point whose distance to center is at most radius,
// ordered by distance and then by index.
func (t *Tree) Within(center Vec3, radius float64) []Neighbour {
	if t.n == 0 || radius < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keep, entry{pos: center, index: -1})

	out := make([]Neighbour, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, Neighbour{Index: c.Comparable.(entry).index, Distance: math.Sqrt(c.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Nearest returns the point closest to center.  ok is false when the tree
// is empty.
func (t *Tree) Nearest(center Vec3) (n Neighbour, ok bool) {
	if t.n == 0 {
		return Neighbour{}, false
	}
	c, d := t.tree.Nearest(entry{pos: center, index: -1})
	if c == nil {
		return Neighbour{}, false
	}
	return Neighbour{Index: c.(entry).index, Distance: math.Sqrt(d)}, true
}
