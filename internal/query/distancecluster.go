package query

import (
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/pkg/errors"
)

// DistanceCluster matches one motive per sub-query such that every pair
// lies within its own center distance window.  Windows are given as
// lower-triangular matrices: row i holds the windows between sub-query
// i+1 and sub-queries 0..i.
type DistanceCluster struct {
	qs       []Sequence
	min, max [][]float64
}

// NewDistanceCluster builds DistanceCluster(min,max)[q1,q2,...].
func NewDistanceCluster(qs []Sequence, lo, hi [][]float64) (*DistanceCluster, error) {
	n := len(qs)
	if n < 2 {
		return nil, errors.InvalidConfig("DistanceCluster must operate at least on 2 patterns.")
	}
	if err := checkTriangular("min", lo, n); err != nil {
		return nil, err
	}
	if err := checkTriangular("max", hi, n); err != nil {
		return nil, err
	}
	q := &DistanceCluster{qs: qs, min: square(n), max: square(n)}
	for i := 0; i < n-1; i++ {
		for j := 0; j <= i; j++ {
			if lo[i][j] > hi[i][j] {
				return nil, errors.InvalidConfig("Invalid distance matrix. Min value at position (%d,%d) is greater than the max value.", i, j)
			}
			q.min[i+1][j], q.min[j][i+1] = lo[i][j], lo[i][j]
			q.max[i+1][j], q.max[j][i+1] = hi[i][j], hi[i][j]
		}
	}
	return q, nil
}

func checkTriangular(name string, m [][]float64, n int) error {
	if len(m) != n-1 {
		return errors.InvalidConfig("Invalid %s distance matrix dimensions.", name)
	}
	for i, row := range m {
		if len(row) != i+1 {
			return errors.InvalidConfig("Invalid %s distance matrix dimensions.", name)
		}
	}
	return nil
}

func square(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func formatMatrix(m [][]float64) string {
	rows := make([]string, len(m))
	for i, r := range m {
		vs := make([]string, len(r))
		for j, v := range r {
			vs[j] = fixed(v, 3)
		}
		rows[i] = "{" + strings.Join(vs, ",") + "}"
	}
	return "{" + strings.Join(rows, ",") + "}"
}

func (q *DistanceCluster) Signature() string {
	return callOpts("DistanceCluster", []string{formatMatrix(q.min), formatMatrix(q.max)}, signatures(q.qs)...)
}
func (q *DistanceCluster) Children() []Node { return seqChildren(q.qs) }

// vertex is one distinct match together with the sub-queries it
// satisfies.
type vertex struct {
	m      *motive.Motive
	labels []int
	key    string
}

func (v *vertex) labelKey() string {
	if v.key == "" {
		ls := append([]int(nil), v.labels...)
		sort.Ints(ls)
		parts := make([]string, len(ls))
		for i, l := range ls {
			parts[i] = strconv.Itoa(l)
		}
		v.key = strings.Join(parts, " ")
	}
	return v.key
}

func (q *DistanceCluster) vertices(ec *ExecutionContext) ([]*vertex, error) {
	var vs []*vertex
	index := make(map[uint64][]*vertex)
	for label, s := range q.qs {
		ms, err := ec.Motives(s)
		if err != nil {
			return nil, err
		}
	next:
		for _, m := range ms {
			for _, v := range index[m.Hash()] {
				if v.m.Equal(m) {
					if v.labels[len(v.labels)-1] != label {
						v.labels = append(v.labels, label)
					}
					continue next
				}
			}
			v := &vertex{m: m, labels: []int{label}}
			index[m.Hash()] = append(index[m.Hash()], v)
			vs = append(vs, v)
		}
	}
	return vs, nil
}

// fits reports whether some label pair of a and b admits distance d.
func (q *DistanceCluster) fits(a, b *vertex, d float64) bool {
	for _, i := range a.labels {
		for _, j := range b.labels {
			if q.min[i][j] <= d && d <= q.max[i][j] {
				return true
			}
		}
	}
	return false
}

// coreGraph connects the vertices whose centers satisfy a window.
func (q *DistanceCluster) coreGraph(vs []*vertex) *simple.UndirectedGraph {
	lo, hi := q.min[1][0], q.max[1][0]
	for i := range q.min {
		for j := 0; j < i; j++ {
			lo = min(lo, q.min[i][j])
			hi = max(hi, q.max[i][j])
		}
	}

	g := simple.NewUndirectedGraph()
	centers := make([]spatial.Vec3, len(vs))
	for i, v := range vs {
		g.AddNode(simple.Node(i))
		centers[i] = v.m.Center()
	}
	tree := spatial.NewTree(centers)
	for i, v := range vs {
		for _, n := range tree.Within(centers[i], hi) {
			if n.Index <= i || n.Distance < lo {
				continue
			}
			if q.fits(v, vs[n.Index], n.Distance) {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(n.Index)))
			}
		}
	}
	return g
}

// adjacency returns the sorted neighbour ids of every node of g.
func adjacency(g *simple.UndirectedGraph, n int) [][]int {
	adj := make([][]int, n)
	for i := range adj {
		for _, x := range graph.NodesOf(g.From(int64(i))) {
			adj[i] = append(adj[i], int(x.ID()))
		}
		sort.Ints(adj[i])
	}
	return adj
}

type clique []int

func (c clique) key() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (c clique) has(v int) bool {
	i := sort.SearchInts(c, v)
	return i < len(c) && c[i] == v
}

func (c clique) with(v int) clique {
	out := make(clique, 0, len(c)+1)
	i := sort.SearchInts(c, v)
	out = append(out, c[:i]...)
	out = append(out, v)
	return append(out, c[i:]...)
}

// extend grows every clique by one vertex adjacent to all its members.
// tags is scratch space with one slot per vertex.
func extend(ec *ExecutionContext, adj [][]int, tags []bool, cs []clique) ([]clique, error) {
	var out []clique
	seen := make(map[string]struct{})
	tested := make(map[int]struct{})
	for _, c := range cs {
		if err := ec.checkpoint(); err != nil {
			return nil, err
		}
		clear(tested)
		for _, a := range c {
			for _, b := range adj[a] {
				if c.has(b) {
					continue
				}
				if _, ok := tested[b]; ok {
					continue
				}
				tested[b] = struct{}{}
				if !completes(c, adj[b], tags) {
					continue
				}
				x := c.with(b)
				if _, ok := seen[x.key()]; ok {
					continue
				}
				seen[x.key()] = struct{}{}
				out = append(out, x)
			}
		}
	}
	return out, nil
}

// completes reports whether a vertex with neighbours bonds is adjacent to
// every member of c.
func completes(c clique, bonds []int, tags []bool) bool {
	if len(bonds) < len(c) {
		return false
	}
	for _, a := range c {
		tags[a] = false
	}
	for _, b := range bonds {
		tags[b] = true
	}
	for _, a := range c {
		if !tags[a] {
			return false
		}
	}
	return true
}

// covers reports whether the clique holds exactly one vertex per required
// label: vertices sharing a label set must number as many as that set.
func covers(vs []*vertex, c clique, k int) bool {
	groups := make(map[string]int)
	for _, v := range c {
		groups[vs[v].labelKey()]++
	}
	total := 0
	for _, v := range c {
		if groups[vs[v].labelKey()] != len(vs[v].labels) {
			return false
		}
	}
	for _, n := range groups {
		total += n
	}
	return total == k
}

func (q *DistanceCluster) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	vs, err := q.vertices(ec)
	if err != nil {
		return nil, err
	}
	g := q.coreGraph(vs)
	adj := adjacency(g, len(vs))

	var cs []clique
	for a, ns := range adj {
		for _, b := range ns {
			if b > a {
				cs = append(cs, clique{a, b})
			}
		}
	}
	tags := make([]bool, len(vs))
	for k := 3; k <= len(q.qs) && len(cs) > 0; k++ {
		if cs, err = extend(ec, adj, tags, cs); err != nil {
			return nil, err
		}
	}

	limit := ec.cfg.MaxCliqueResults
	seen := motive.NewSet()
	var out []*motive.Motive
	for _, c := range cs {
		if !covers(vs, c, len(q.qs)) {
			continue
		}
		var set motive.AtomSet
		for _, v := range c {
			set = set.Union(vs[v].m.Atoms())
		}
		if x := motive.New(cur, set); seen.Add(x) {
			out = append(out, x)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
