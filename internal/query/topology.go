package query

import (
	"strconv"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// unique drops repeated motives, keeping first occurrences.  With
// namedDuplicates a repeat is kept when it carries a name not seen yet.
func unique(ms []*motive.Motive, namedDuplicates bool) []*motive.Motive {
	u := motive.NewUnique(namedDuplicates)
	out := ms[:0:0]
	for _, m := range ms {
		if u.Accept(m) {
			out = append(out, m)
		}
	}
	return out
}

// keepName copies the name of src onto m.
func keepName(m, src *motive.Motive) *motive.Motive {
	if name, ok := src.Name(); ok {
		return m.WithName(name)
	}
	return m
}

func expansionOpts(depth int, namedDuplicates bool) []string {
	return []string{strconv.Itoa(depth), option("YieldNamedDuplicates", namedDuplicates)}
}

// ─────────────────────────────────────────────────────────────────────────────
// ConnectedAtoms / ConnectedResidues
// ─────────────────────────────────────────────────────────────────────────────

// ConnectedAtoms grows every match of inner by up to depth bond hops.
type ConnectedAtoms struct {
	inner           Sequence
	depth           int
	namedDuplicates bool
}

// NewConnectedAtoms builds ConnectedAtoms(depth)[inner].
func NewConnectedAtoms(inner Sequence, depth int, namedDuplicates bool) (*ConnectedAtoms, error) {
	if depth < 0 {
		return nil, errors.InvalidConfig("ConnectedAtoms: depth must not be negative, got %d.", depth)
	}
	return &ConnectedAtoms{inner: inner, depth: depth, namedDuplicates: namedDuplicates}, nil
}

func (q *ConnectedAtoms) Signature() string {
	return callOpts("ConnectedAtoms", expansionOpts(q.depth, q.namedDuplicates), q.inner.Signature())
}
func (q *ConnectedAtoms) Children() []Node { return []Node{q.inner} }

func (q *ConnectedAtoms) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	seeds, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, 0, len(seeds))
	for _, m := range seeds {
		out = append(out, keepName(q.expand(m), m))
	}
	return unique(out, q.namedDuplicates), nil
}

// expand runs a breadth-first walk over bonds, stopping early once a layer
// adds nothing or the whole structure is covered.
func (q *ConnectedAtoms) expand(m *motive.Motive) *motive.Motive {
	s := m.Context().Structure
	set := m.Atoms()
	frontier := set.Atoms()
	for i := 0; i < q.depth && set.Len() < len(s.Atoms); i++ {
		var next []*structure.Atom
		for _, a := range frontier {
			for _, b := range s.Neighbours(a) {
				if !set.Contains(b) {
					set = set.Add(b)
					next = append(next, b)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return motive.New(m.Context(), set)
}

// ConnectedResidues grows every match of inner to whole residues and then
// by up to depth layers of bonded residues.
type ConnectedResidues struct {
	inner           Sequence
	depth           int
	namedDuplicates bool
}

// NewConnectedResidues builds ConnectedResidues(depth)[inner].
func NewConnectedResidues(inner Sequence, depth int, namedDuplicates bool) (*ConnectedResidues, error) {
	if depth < 0 {
		return nil, errors.InvalidConfig("ConnectedResidues: depth must not be negative, got %d.", depth)
	}
	return &ConnectedResidues{inner: inner, depth: depth, namedDuplicates: namedDuplicates}, nil
}

func (q *ConnectedResidues) Signature() string {
	return callOpts("ConnectedResidues", expansionOpts(q.depth, q.namedDuplicates), q.inner.Signature())
}
func (q *ConnectedResidues) Children() []Node { return []Node{q.inner} }

func (q *ConnectedResidues) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	seeds, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, 0, len(seeds))
	for _, m := range seeds {
		out = append(out, keepName(q.expand(m), m))
	}
	return unique(out, q.namedDuplicates), nil
}

func (q *ConnectedResidues) expand(m *motive.Motive) *motive.Motive {
	c := m.Context()
	s := c.Structure
	set := m.Atoms()
	addResidue := func(seen map[*structure.Residue]struct{}, a *structure.Atom) {
		r := s.ResidueOf(a)
		if r == nil {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		set = set.Union(c.ResidueAtoms(r))
	}

	seen := make(map[*structure.Residue]struct{})
	for _, a := range set.Atoms() {
		addResidue(seen, a)
	}
	for i := 0; i < q.depth && set.Len() < len(s.Atoms); i++ {
		before := set.Len()
		seen = make(map[*structure.Residue]struct{})
		for _, a := range set.Atoms() {
			addResidue(seen, a)
			for _, b := range s.Neighbours(a) {
				if s.ResidueOf(b) != s.ResidueOf(a) {
					addResidue(seen, b)
				}
			}
		}
		if set.Len() == before {
			break
		}
	}
	return motive.New(c, set)
}

// ─────────────────────────────────────────────────────────────────────────────
// Path / Star
// ─────────────────────────────────────────────────────────────────────────────

// atomIndex maps every atom id to the candidate motives containing it.
type atomIndex map[int][]*motive.Motive

func indexByAtom(ms []*motive.Motive) atomIndex {
	idx := make(atomIndex)
	for _, m := range ms {
		m.Atoms().Each(func(a *structure.Atom) bool {
			idx[a.ID] = append(idx[a.ID], m)
			return true
		})
	}
	return idx
}

func indexAll(ec *ExecutionContext, qs []Sequence) ([]atomIndex, error) {
	out := make([]atomIndex, len(qs))
	for i, q := range qs {
		ms, err := ec.Motives(q)
		if err != nil {
			return nil, err
		}
		out[i] = indexByAtom(ms)
	}
	return out, nil
}

// bonded calls fn for every candidate bonded to anchor that does not share
// an atom with acc.  fn returning an error stops the walk.
func bonded(anchor, acc *motive.Motive, idx atomIndex, fn func(m *motive.Motive) error) error {
	s := anchor.Context().Structure
	for _, a := range anchor.Atoms().Atoms() {
		for _, b := range s.Neighbours(a) {
			for _, m := range idx[b.ID] {
				if acc.Atoms().Intersects(m.Atoms()) {
					continue
				}
				if err := fn(m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Path matches chains of motives where each consecutive pair is bonded and
// no atom is used twice.
type Path struct{ qs []Sequence }

// NewPath builds Path()[q1,q2,...].
func NewPath(qs ...Sequence) (*Path, error) {
	if len(qs) == 0 {
		return nil, errors.InvalidConfig("Path: at least one subquery required.")
	}
	return &Path{qs: qs}, nil
}

func (q *Path) Signature() string { return callOpts("Path", nil, signatures(q.qs)...) }
func (q *Path) Children() []Node  { return seqChildren(q.qs) }

func (q *Path) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	idx, err := indexAll(ec, q.qs[1:])
	if err != nil {
		return nil, err
	}
	starts, err := ec.Motives(q.qs[0])
	if err != nil {
		return nil, err
	}
	result := motive.NewUnique(false)
	var out []*motive.Motive

	var chain func(acc, last *motive.Motive, i int) error
	chain = func(acc, last *motive.Motive, i int) error {
		if err := ec.checkpoint(); err != nil {
			return err
		}
		if i == len(idx) {
			if result.Accept(acc) {
				out = append(out, acc)
			}
			return nil
		}
		return bonded(last, acc, idx[i], func(m *motive.Motive) error {
			return chain(motive.Merge(acc, m), m, i+1)
		})
	}
	for _, m := range starts {
		if err := chain(m, m, 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Star matches a center motive with one bonded motive per arm, no atom
// used twice.
type Star struct {
	center Sequence
	arms   []Sequence
}

// NewStar builds Star()[center,arm1,...].
func NewStar(center Sequence, arms ...Sequence) *Star { return &Star{center: center, arms: arms} }

func (q *Star) Signature() string {
	return callOpts("Star", nil, append([]string{q.center.Signature()}, signatures(q.arms)...)...)
}
func (q *Star) Children() []Node { return append([]Node{q.center}, seqChildren(q.arms)...) }

func (q *Star) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	idx, err := indexAll(ec, q.arms)
	if err != nil {
		return nil, err
	}
	centers, err := ec.Motives(q.center)
	if err != nil {
		return nil, err
	}
	result := motive.NewUnique(false)
	var out []*motive.Motive

	var grow func(acc, center *motive.Motive, i int) error
	grow = func(acc, center *motive.Motive, i int) error {
		if err := ec.checkpoint(); err != nil {
			return err
		}
		if i == len(idx) {
			if result.Accept(acc) {
				out = append(out, acc)
			}
			return nil
		}
		return bonded(center, acc, idx[i], func(m *motive.Motive) error {
			return grow(motive.Merge(acc, m), center, i+1)
		})
	}
	for _, c := range centers {
		if err := grow(c, c, 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Connectivity tests
// ─────────────────────────────────────────────────────────────────────────────

// IsConnectedTo tests whether a motive is bonded to (or, with complement,
// bonded to none of) the matches of inner, not counting overlaps.
type IsConnectedTo struct {
	where      Scalar
	inner      Sequence
	complement bool
}

// NewIsConnectedTo builds IsConnectedTo(Complement=..)[where,inner].
func NewIsConnectedTo(where Scalar, inner Sequence, complement bool) *IsConnectedTo {
	return &IsConnectedTo{where: where, inner: inner, complement: complement}
}

func (q *IsConnectedTo) Signature() string {
	return callOpts("IsConnectedTo", []string{option("Complement", q.complement)}, q.where.Signature(), q.inner.Signature())
}
func (q *IsConnectedTo) Children() []Node { return []Node{q.where, q.inner} }

func (q *IsConnectedTo) eval(ec *ExecutionContext) (any, error) {
	tree, err := ec.proximityTree(q.inner)
	if err != nil {
		return nil, err
	}
	m, err := ec.evalMotive(q.where)
	if err != nil {
		return nil, err
	}
	empty := len(tree.Connected(m, ec.cfg.ConnectDistance, true)) == 0
	return empty == q.complement, nil
}

// IsConnected tests whether the bonds inside a motive join all its atoms.
type IsConnected struct{ where Scalar }

// NewIsConnected builds IsConnected()[where].
func NewIsConnected(where Scalar) *IsConnected { return &IsConnected{where: where} }

func (q *IsConnected) Signature() string { return callOpts("IsConnected", nil, q.where.Signature()) }
func (q *IsConnected) Children() []Node  { return []Node{q.where} }

func (q *IsConnected) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.where)
	if err != nil {
		return nil, err
	}
	return isConnected(m), nil
}

func isConnected(m *motive.Motive) bool {
	if m.Len() <= 1 {
		return true
	}
	s := m.Context().Structure
	g := simple.NewUndirectedGraph()
	m.Atoms().Each(func(a *structure.Atom) bool {
		g.AddNode(simple.Node(a.ID))
		return true
	})
	m.Atoms().Each(func(a *structure.Atom) bool {
		for _, b := range s.Neighbours(a) {
			if b.ID > a.ID && m.Has(b) {
				g.SetEdge(g.NewEdge(simple.Node(a.ID), simple.Node(b.ID)))
			}
		}
		return true
	})
	return len(topo.ConnectedComponents(g)) == 1
}
