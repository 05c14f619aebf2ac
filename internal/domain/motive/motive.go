package motive

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
)

// Motive is an immutable, optionally named set of atoms of one structure.
// Two motives with the same members are equal regardless of how they were
// built.  The name tag is a small integer tracking which seed a motive grew
// from.
type Motive struct {
	atoms AtomSet
	ctx   *Context
	name  int
	named bool

	center spatial.Vec3
	radius float64
}

// New returns a motive over atoms.  An empty set gives an empty motive
// centred at the origin with zero radius.
func New(ctx *Context, atoms AtomSet) *Motive {
	m := &Motive{atoms: atoms, ctx: ctx}
	m.measure()
	return m
}

// FromAtoms returns an unnamed motive over atoms.
func FromAtoms(ctx *Context, atoms ...*structure.Atom) *Motive {
	return New(ctx, NewAtomSet(atoms...))
}

// FromResidues returns an unnamed motive over every atom of residues.
func FromResidues(ctx *Context, residues ...*structure.Residue) *Motive {
	var atoms []*structure.Atom
	for _, r := range residues {
		atoms = append(atoms, r.Atoms...)
	}
	return New(ctx, NewAtomSet(atoms...))
}

func (m *Motive) measure() {
	n := m.atoms.Len()
	if n == 0 {
		return
	}
	var c spatial.Vec3
	m.atoms.Each(func(a *structure.Atom) bool {
		c = c.Add(a.Position)
		return true
	})
	m.center = c.Scale(1 / float64(n))
	m.atoms.Each(func(a *structure.Atom) bool {
		if d := a.Position.DistanceTo(m.center); d > m.radius {
			m.radius = d
		}
		return true
	})
}

func (m *Motive) Atoms() AtomSet             { return m.atoms }
func (m *Motive) Context() *Context          { return m.ctx }
func (m *Motive) Len() int                   { return m.atoms.Len() }
func (m *Motive) Center() spatial.Vec3       { return m.center }
func (m *Motive) Radius() float64            { return m.radius }
func (m *Motive) Hash() uint64               { return m.atoms.Hash() }
func (m *Motive) Has(a *structure.Atom) bool { return m.atoms.Contains(a) }

// Name returns the name tag and whether it is set.
func (m *Motive) Name() (int, bool) { return m.name, m.named }

// WithName returns a copy of m tagged with name.
func (m *Motive) WithName(name int) *Motive {
	c := *m
	c.name, c.named = name, true
	return &c
}

// WithContext returns a copy of m bound to ctx.  Atoms are resolved by id in
// the structure of ctx; ids missing there are dropped.
func (m *Motive) WithContext(ctx *Context) *Motive {
	if m.ctx == ctx {
		return m
	}
	atoms := make([]*structure.Atom, 0, m.Len())
	m.atoms.Each(func(a *structure.Atom) bool {
		if b, ok := ctx.Structure.AtomByID(a.ID); ok {
			atoms = append(atoms, b)
		}
		return true
	})
	out := New(ctx, NewAtomSet(atoms...))
	out.name, out.named = m.name, m.named
	return out
}

// Equal reports whether m and o are over the same structure and have the
// same members.  Names are ignored.
func (m *Motive) Equal(o *Motive) bool {
	return m.ctx == o.ctx && m.atoms.Equal(o.atoms)
}

// MergeNames combines two optional name tags: the smaller one when both are
// set, otherwise whichever is set.
func MergeNames(a int, aok bool, b int, bok bool) (int, bool) {
	switch {
	case aok && bok:
		if a < b {
			return a, true
		}
		return b, true
	case aok:
		return a, true
	default:
		return b, bok
	}
}

// Merge returns the union of ms.  The name is merged with MergeNames.  It
// returns nil when ms is empty.
func Merge(ms ...*Motive) *Motive {
	if len(ms) == 0 {
		return nil
	}
	set := ms[0].atoms
	name, named := ms[0].name, ms[0].named
	for _, m := range ms[1:] {
		set = set.Union(m.atoms)
		name, named = MergeNames(name, named, m.name, m.named)
	}
	out := New(ms[0].ctx, set)
	out.name, out.named = name, named
	return out
}

// Named tags m with its smallest atom id.
func Named(m *Motive) *Motive {
	a, ok := m.atoms.Min()
	if !ok {
		return m
	}
	return m.WithName(a.ID)
}

// Distance returns the smallest atom to atom distance between a and b.
func Distance(a, b *Motive) float64 {
	best := math.MaxFloat64
	xs, ys := a.atoms.Atoms(), b.atoms.Atoms()
	for _, x := range xs {
		for _, y := range ys {
			if d := x.Position.DistanceSquaredTo(y.Position); d < best {
				best = d
			}
		}
	}
	return math.Sqrt(best)
}

// AreNear reports whether some atom of a lies closer than maxDistance to
// some atom of b.  The bounding spheres are checked first.
func AreNear(maxDistance float64, a, b *Motive) bool {
	cd := a.center.DistanceTo(b.center)
	if cd-a.radius-b.radius <= maxDistance {
		return Distance(a, b) < maxDistance
	}
	return false
}

// AreConnected reports whether a and b share an atom or are joined by a
// bond.  With exclusive set, sharing an atom does not count.
func AreConnected(a, b *Motive, exclusive bool) bool {
	if a.atoms.Intersects(b.atoms) {
		return !exclusive
	}
	pivot, other := a, b
	if b.Len() < a.Len() {
		pivot, other = b, a
	}
	s := a.ctx.Structure
	found := false
	pivot.atoms.Each(func(x *structure.Atom) bool {
		for _, n := range s.Neighbours(x) {
			if other.atoms.Contains(n) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// Signature summarises the residue composition, for example "2ALA-LYS".
func (m *Motive) Signature() string {
	seen := make(map[structure.ResidueIdentifier]struct{})
	counts := make(map[string]int)
	m.atoms.Each(func(a *structure.Atom) bool {
		id := a.ResidueID()
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			counts[strings.ToUpper(a.ResidueName)]++
		}
		return true
	})
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		if c := counts[n]; c > 1 {
			parts[i] = strconv.Itoa(c) + n
		} else {
			parts[i] = n
		}
	}
	return strings.Join(parts, "-")
}

func (m *Motive) String() string {
	ids := m.atoms.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	if m.named {
		return fmt.Sprintf("#%d{%s}", m.name, strings.Join(parts, ","))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
