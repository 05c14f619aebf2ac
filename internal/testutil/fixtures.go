package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
)

// AtomSpec describes one fixture atom.  The id is assigned by the Fixture.
type AtomSpec struct {
	Element string
	Name    string
	Residue string
	Number  int
	Chain   string
	Pos     spatial.Vec3
	Het     bool
}

// Fixture builds small hand-made structures for tests.  Atom ids are
// assigned sequentially from 1.
type Fixture struct {
	b    *structure.Builder
	next int
}

// NewFixture starts a fixture structure.
func NewFixture(id string) *Fixture {
	return &Fixture{b: structure.NewBuilder(id), next: 1}
}

// Builder exposes the underlying builder for annotations.
func (f *Fixture) Builder() *structure.Builder { return f.b }

// Add appends an atom and returns its id.
func (f *Fixture) Add(a AtomSpec) int {
	id := f.next
	f.next++
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("%s%d", a.Element, id)
	}
	f.b.AddAtom(structure.Atom{
		ID:            id,
		Element:       a.Element,
		Name:          name,
		Position:      a.Pos,
		ResidueName:   a.Residue,
		ResidueNumber: a.Number,
		Chain:         a.Chain,
		HetAtom:       a.Het,
	})
	return id
}

// Bond bonds consecutive ids: Bond(1, 2, 3) adds 1-2 and 2-3.
func (f *Fixture) Bond(ids ...int) *Fixture {
	for i := 1; i < len(ids); i++ {
		f.b.AddBond(ids[i-1], ids[i])
	}
	return f
}

// Linear adds a bonded chain of atoms of one residue laid out along +X
// from origin with 1.5 Å spacing, and returns their ids.
func (f *Fixture) Linear(residue string, number int, chain string, origin spatial.Vec3, elements ...string) []int {
	ids := make([]int, len(elements))
	for i, el := range elements {
		ids[i] = f.Add(AtomSpec{
			Element: el,
			Residue: residue,
			Number:  number,
			Chain:   chain,
			Pos:     origin.Add(spatial.V(1.5*float64(i), 0, 0)),
		})
	}
	f.Bond(ids...)
	return ids
}

// Ring adds a closed planar ring of the given elements (in cyclic order)
// centred at center in the XY plane, and returns the ring atom ids.
func (f *Fixture) Ring(residue string, number int, chain string, center spatial.Vec3, elements ...string) []int {
	n := len(elements)
	radius := 1.39
	ids := make([]int, n)
	for i, el := range elements {
		angle := 2 * math.Pi * float64(i) / float64(n)
		ids[i] = f.Add(AtomSpec{
			Element: el,
			Residue: residue,
			Number:  number,
			Chain:   chain,
			Het:     true,
			Pos:     center.Add(spatial.V(radius*math.Cos(angle), radius*math.Sin(angle), 0)),
		})
	}
	f.Bond(append(ids, ids[0])...)
	return ids
}

// Benzene adds a C6 ring with one hydrogen per carbon.  It returns the
// carbon ids followed by the hydrogen ids.
func (f *Fixture) Benzene(number int, chain string, center spatial.Vec3) (carbons, hydrogens []int) {
	carbons = f.Ring("BNZ", number, chain, center, "C", "C", "C", "C", "C", "C")
	for i, c := range carbons {
		angle := 2 * math.Pi * float64(i) / 6
		h := f.Add(AtomSpec{
			Element: "H",
			Residue: "BNZ",
			Number:  number,
			Chain:   chain,
			Het:     true,
			Pos:     center.Add(spatial.V(2.47*math.Cos(angle), 2.47*math.Sin(angle), 0)),
		})
		f.Bond(c, h)
		hydrogens = append(hydrogens, h)
	}
	return carbons, hydrogens
}

// Build finalises the structure and fails the test on error.
func (f *Fixture) Build(t testing.TB) *structure.Structure {
	t.Helper()
	s, err := f.b.Build()
	require.NoError(t, err)
	return s
}

// Tripeptide returns a small ALA-LYS-ASP chain A with a water and a benzene
// ligand.  Residues are spaced 4 Å apart along X; the ligand sits 3 Å above
// the lysine.
func Tripeptide(t testing.TB) *structure.Structure {
	t.Helper()
	f := NewFixture("1TRI")
	ala := f.Linear("ALA", 1, "A", spatial.V(0, 0, 0), "N", "C", "C", "O")
	lys := f.Linear("LYS", 2, "A", spatial.V(6, 0, 0), "N", "C", "C", "O")
	asp := f.Linear("ASP", 3, "A", spatial.V(12, 0, 0), "N", "C", "C", "O")
	f.Bond(ala[2], lys[0])
	f.Bond(lys[2], asp[0])
	f.Add(AtomSpec{Element: "O", Name: "O", Residue: "HOH", Number: 101, Chain: "A", Het: true, Pos: spatial.V(30, 30, 30)})
	f.Benzene(201, "A", spatial.V(7.5, 0, 3))
	return f.Build(t)
}
