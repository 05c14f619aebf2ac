package query

import (
	"strings"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Near / Cluster
// ─────────────────────────────────────────────────────────────────────────────

// join merges every pivot match with the close matches of every sub-query.
// The pivot is the sub-query with the fewest matches, ties broken by
// signature.  A pivot match missing a neighbour in any stream is dropped.
func join(ec *ExecutionContext, qs []Sequence, d float64, accept func(*motive.Motive) (bool, error)) ([]*motive.Motive, error) {
	matches := make([][]*motive.Motive, len(qs))
	pivot := 0
	for i, q := range qs {
		ms, err := ec.Motives(q)
		if err != nil {
			return nil, err
		}
		if len(ms) == 0 {
			return nil, nil
		}
		matches[i] = ms
		if n, p := len(ms), len(matches[pivot]); n < p || (n == p && q.Signature() < qs[pivot].Signature()) {
			pivot = i
		}
	}
	trees := make([]*motive.ProximityTree, len(qs))
	for i, q := range qs {
		t, err := ec.proximityTreeOf(q, matches[i])
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}

	seen := motive.NewSet()
	var out []*motive.Motive
next:
	for _, m := range matches[pivot] {
		if err := ec.checkpoint(); err != nil {
			return nil, err
		}
		parts := []*motive.Motive{m}
		for _, t := range trees {
			near := t.Close(m, d)
			if len(near) == 0 {
				continue next
			}
			parts = append(parts, near...)
		}
		x := motive.Merge(parts...)
		if seen.Has(x) {
			continue
		}
		if accept != nil {
			ok, err := accept(x)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		seen.Add(x)
		out = append(out, x)
	}
	return out, nil
}

func validDistance(name string, d float64) error {
	if d < 0 {
		return errors.InvalidConfig("%s: the distance must not be negative, got %s.", name, formatFloat(d))
	}
	return nil
}

// Near matches groups of sub-query matches lying within a distance of a
// pivot match.  A sub-query listed k times must occur exactly k times in
// each result.
type Near struct {
	d      float64
	qs     []Sequence
	unique []Sequence
	counts map[string]int
}

// NewNear builds Near(d)[q1,q2,...].
func NewNear(d float64, qs ...Sequence) (*Near, error) {
	if len(qs) == 0 {
		return nil, errors.InvalidConfig("Near: at least one subquery required.")
	}
	if err := validDistance("Near", d); err != nil {
		return nil, err
	}
	q := &Near{d: d, qs: qs, counts: make(map[string]int)}
	for _, s := range qs {
		sig := s.Signature()
		if q.counts[sig] == 0 {
			q.unique = append(q.unique, s)
		}
		q.counts[sig]++
	}
	return q, nil
}

func (q *Near) Signature() string {
	return "Near(" + fixed(q.d, 2) + ")[" + strings.Join(signatures(q.qs), ",") + "]"
}
func (q *Near) Children() []Node { return seqChildren(q.qs) }

func (q *Near) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return join(ec, q.unique, q.d, func(x *motive.Motive) (bool, error) {
		for _, s := range q.unique {
			n, err := countIn(ec, s, x)
			if err != nil {
				return false, err
			}
			if n != q.counts[s.Signature()] {
				return false, nil
			}
		}
		return true, nil
	})
}

// Cluster matches groups of sub-query matches lying within a distance of a
// pivot match, without the occurrence check of Near.
type Cluster struct {
	d  float64
	qs []Sequence
}

// NewCluster builds Cluster(d)[q1, q2, ...].
func NewCluster(d float64, qs ...Sequence) (*Cluster, error) {
	if len(qs) == 0 {
		return nil, errors.InvalidConfig("Cluster: at least one subquery required.")
	}
	if err := validDistance("Cluster", d); err != nil {
		return nil, err
	}
	return &Cluster{d: d, qs: qs}, nil
}

func (q *Cluster) Signature() string {
	return "Cluster(" + fixed(q.d, 2) + ")[" + strings.Join(signatures(q.qs), ", ") + "]"
}
func (q *Cluster) Children() []Node { return seqChildren(q.qs) }

func (q *Cluster) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return join(ec, q.qs, q.d, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Expansions
// ─────────────────────────────────────────────────────────────────────────────

// ExpandOptions are the flags shared by the distance expansions.
type ExpandOptions struct {
	IgnoreWaters         bool
	ExcludeBase          bool
	YieldNamedDuplicates bool
}

func (o ExpandOptions) render(d float64) []string {
	return []string{
		fixed(d, 3),
		option("IgnoreWaters", o.IgnoreWaters),
		option("ExcludeBase", o.ExcludeBase),
		option("YieldNamedDuplicates", o.YieldNamedDuplicates),
	}
}

type expandFunc func(m *motive.Motive) motive.AtomSet

// expandEach applies fn to every match of inner, keeps non-empty results
// under the name of their seed and filters duplicates.
func expandEach(ec *ExecutionContext, inner Sequence, named bool, fn expandFunc) ([]*motive.Motive, error) {
	seeds, err := ec.Motives(inner)
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, 0, len(seeds))
	for _, m := range seeds {
		set := fn(m)
		if set.IsEmpty() {
			continue
		}
		out = append(out, keepName(motive.New(m.Context(), set), m))
	}
	return unique(out, named), nil
}

// nearbyAtoms collects the atoms within d of any atom of m.
func nearbyAtoms(m *motive.Motive, d float64, ignoreWaters bool) []*structure.Atom {
	s := m.Context().Structure
	seen := make(map[int]struct{})
	var out []*structure.Atom
	m.Atoms().Each(func(a *structure.Atom) bool {
		for _, x := range s.AtomsWithin(a.Position, d) {
			if ignoreWaters && x.IsWater() {
				continue
			}
			if _, ok := seen[x.ID]; ok {
				continue
			}
			seen[x.ID] = struct{}{}
			out = append(out, x)
		}
		return true
	})
	return out
}

// AmbientAtoms grows every match of inner by the atoms within a distance
// of any of its atoms.
type AmbientAtoms struct {
	inner Sequence
	d     float64
	opts  ExpandOptions
}

// NewAmbientAtoms builds AmbientAtoms(d,...)[inner].
func NewAmbientAtoms(inner Sequence, d float64, opts ExpandOptions) (*AmbientAtoms, error) {
	if err := validDistance("AmbientAtoms", d); err != nil {
		return nil, err
	}
	return &AmbientAtoms{inner: inner, d: d, opts: opts}, nil
}

func (q *AmbientAtoms) Signature() string {
	return callOpts("AmbientAtoms", q.opts.render(q.d), q.inner.Signature())
}
func (q *AmbientAtoms) Children() []Node { return []Node{q.inner} }

func (q *AmbientAtoms) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return expandEach(ec, q.inner, q.opts.YieldNamedDuplicates, func(m *motive.Motive) motive.AtomSet {
		near := nearbyAtoms(m, q.d, q.opts.IgnoreWaters)
		if !q.opts.ExcludeBase {
			return m.Atoms().Union(motive.NewAtomSet(near...))
		}
		var fresh []*structure.Atom
		for _, a := range near {
			if !m.Has(a) {
				fresh = append(fresh, a)
			}
		}
		return motive.NewAtomSet(fresh...)
	})
}

// AmbientResidues grows every match of inner by the residues having an
// atom within a distance of any of its atoms.
type AmbientResidues struct {
	inner Sequence
	d     float64
	opts  ExpandOptions
}

// NewAmbientResidues builds AmbientResidues(d,...)[inner].
func NewAmbientResidues(inner Sequence, d float64, opts ExpandOptions) (*AmbientResidues, error) {
	if err := validDistance("AmbientResidues", d); err != nil {
		return nil, err
	}
	return &AmbientResidues{inner: inner, d: d, opts: opts}, nil
}

func (q *AmbientResidues) Signature() string {
	return callOpts("AmbientResidues", q.opts.render(q.d), q.inner.Signature())
}
func (q *AmbientResidues) Children() []Node { return []Node{q.inner} }

func (q *AmbientResidues) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return expandEach(ec, q.inner, q.opts.YieldNamedDuplicates, func(m *motive.Motive) motive.AtomSet {
		c := m.Context()
		s := c.Structure
		var set motive.AtomSet
		if !q.opts.ExcludeBase {
			set = m.Atoms()
		}
		seen := make(map[*structure.Residue]struct{})
		for _, a := range nearbyAtoms(m, q.d, q.opts.IgnoreWaters) {
			if q.opts.ExcludeBase && m.Has(a) {
				continue
			}
			r := s.ResidueOf(a)
			if r == nil {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			set = set.Union(c.ResidueAtoms(r))
		}
		return set
	})
}

// Spherify grows every match of inner by the atoms within a distance of
// its center.
type Spherify struct {
	inner Sequence
	d     float64
	opts  ExpandOptions
}

// NewSpherify builds Spherify(d,...)[inner].
func NewSpherify(inner Sequence, d float64, opts ExpandOptions) (*Spherify, error) {
	if err := validDistance("Spherify", d); err != nil {
		return nil, err
	}
	return &Spherify{inner: inner, d: d, opts: opts}, nil
}

func (q *Spherify) Signature() string {
	return callOpts("Spherify", q.opts.render(q.d), q.inner.Signature())
}
func (q *Spherify) Children() []Node { return []Node{q.inner} }

func (q *Spherify) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return expandEach(ec, q.inner, q.opts.YieldNamedDuplicates, func(m *motive.Motive) motive.AtomSet {
		var set motive.AtomSet
		if !q.opts.ExcludeBase {
			set = m.Atoms()
		}
		for _, a := range m.Context().Structure.AtomsWithin(m.Center(), q.d) {
			if q.opts.IgnoreWaters && a.IsWater() {
				continue
			}
			if q.opts.ExcludeBase && m.Has(a) {
				continue
			}
			set = set.Add(a)
		}
		return set
	})
}

// Filled adds to every match of inner the atoms inside its bounding
// sphere scaled by a factor.
type Filled struct {
	inner        Sequence
	factor       float64
	ignoreWaters bool
}

// NewFilled builds Filled(factor,IgnoreWaters=..)[inner].
func NewFilled(inner Sequence, factor float64, ignoreWaters bool) (*Filled, error) {
	if factor < 0 {
		return nil, errors.InvalidConfig("Filled: the radius factor must not be negative, got %s.", formatFloat(factor))
	}
	return &Filled{inner: inner, factor: factor, ignoreWaters: ignoreWaters}, nil
}

func (q *Filled) Signature() string {
	return "Filled(" + fixed(q.factor, 3) + "," + option("IgnoreWaters", q.ignoreWaters) + ")[" + q.inner.Signature() + "]"
}
func (q *Filled) Children() []Node { return []Node{q.inner} }

func (q *Filled) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	return expandEach(ec, q.inner, false, func(m *motive.Motive) motive.AtomSet {
		set := m.Atoms()
		for _, a := range m.Context().Structure.AtomsWithin(m.Center(), m.Radius()*q.factor) {
			if q.ignoreWaters && a.IsWater() {
				continue
			}
			set = set.Add(a)
		}
		return set
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// NearestDistanceTo
// ─────────────────────────────────────────────────────────────────────────────

// NearestDistanceTo yields the atom distance between a motive and the
// match of inner whose center is nearest to it, or nothing when inner has
// no matches.
type NearestDistanceTo struct {
	m     Scalar
	inner Sequence
}

// NewNearestDistanceTo builds NearestDistanceTo[m,inner].
func NewNearestDistanceTo(m Scalar, inner Sequence) *NearestDistanceTo {
	return &NearestDistanceTo{m: m, inner: inner}
}

func (q *NearestDistanceTo) Signature() string {
	return call("NearestDistanceTo", q.m.Signature(), q.inner.Signature())
}
func (q *NearestDistanceTo) Children() []Node { return []Node{q.m, q.inner} }

func (q *NearestDistanceTo) eval(ec *ExecutionContext) (any, error) {
	tree, err := ec.proximityTree(q.inner)
	if err != nil {
		return nil, err
	}
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	n, ok := tree.Nearest(m)
	if !ok {
		return nil, nil
	}
	return motive.Distance(m, n), nil
}
