package motive

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/turtacn/motivequery/internal/domain/structure"
)

// Chain is a residue chain rendered as a string of one-letter codes.  The
// i-th residue corresponds to the i-th byte of Sequence.
type Chain struct {
	ID       string
	Sequence string
	Residues []*structure.Residue
}

// Context bundles the per-structure indexes the operators need.  It is
// built once per structure and never mutated afterwards; lazily computed
// parts are guarded so a context may be shared between readers.
type Context struct {
	Structure *structure.Structure

	seq uint64

	once      sync.Once
	all       *Motive
	residues  map[*structure.Residue]AtomSet
	ringAtoms AtomSet
	amino     []Chain
	nucleo    []Chain
	sheetMap  map[structure.ResidueIdentifier]int
	helixMap  map[structure.ResidueIdentifier]int

	mu     sync.Mutex
	byFP   map[string]AtomSet
	subs   map[uint64][]*Context
	parent *Context
}

var contextSeq uint64

// NewContext indexes s.
func NewContext(s *structure.Structure) *Context {
	return &Context{
		Structure: s,
		seq:       atomic.AddUint64(&contextSeq, 1),
		byFP:      make(map[string]AtomSet),
		subs:      make(map[uint64][]*Context),
	}
}

func (c *Context) init() {
	c.once.Do(func() {
		s := c.Structure
		c.all = New(c, NewAtomSet(s.Atoms...))

		c.residues = make(map[*structure.Residue]AtomSet, len(s.Residues))
		for _, r := range s.Residues {
			c.residues[r] = NewAtomSet(r.Atoms...)
		}

		var ring []*structure.Atom
		for _, r := range s.Rings().All() {
			ring = append(ring, r.Atoms...)
		}
		c.ringAtoms = NewAtomSet(ring...)

		for _, id := range s.Chains() {
			var amino, nucleo []*structure.Residue
			for _, r := range sortedResidues(s.ChainResidues(id)) {
				if r.IsAmino() || (r.IsModified() && structure.IsAminoName(r.ModifiedFrom)) {
					amino = append(amino, r)
				}
				if r.IsNucleotide() {
					nucleo = append(nucleo, r)
				}
			}
			c.amino = append(c.amino, newChain(id, amino, func(r *structure.Residue) string {
				if r.IsModified() {
					return structure.ShortAminoName(r.ModifiedFrom)
				}
				return structure.ShortAminoName(r.Name)
			}))
			c.nucleo = append(c.nucleo, newChain(id, nucleo, func(r *structure.Residue) string {
				return structure.ShortNucleotideName(r.Name)
			}))
		}

		c.sheetMap = elementMap(s.Sheets)
		c.helixMap = elementMap(s.Helices)
	})
}

func sortedResidues(rs []*structure.Residue) []*structure.Residue {
	out := append([]*structure.Residue(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Identifier.Compare(out[j].Identifier) < 0 })
	return out
}

func newChain(id string, rs []*structure.Residue, short func(*structure.Residue) string) Chain {
	var sb strings.Builder
	for _, r := range rs {
		s := short(r)
		if len(s) != 1 {
			s = "X"
		}
		sb.WriteString(s)
	}
	return Chain{ID: id, Sequence: sb.String(), Residues: rs}
}

func elementMap(els []*structure.SecondaryElement) map[structure.ResidueIdentifier]int {
	m := make(map[structure.ResidueIdentifier]int)
	for i, el := range els {
		for _, r := range el.Residues {
			m[r.Identifier] = i + 1
		}
	}
	return m
}

// StructureMotive returns the motive holding every atom of the structure.
func (c *Context) StructureMotive() *Motive {
	c.init()
	return c.all
}

// IsStructureMotive reports whether m covers the whole structure.
func (c *Context) IsStructureMotive(m *Motive) bool {
	return m.ctx == c && m.Len() == len(c.Structure.Atoms)
}

// ResidueAtoms returns the atom set of r.
func (c *Context) ResidueAtoms(r *structure.Residue) AtomSet {
	c.init()
	if set, ok := c.residues[r]; ok {
		return set
	}
	return NewAtomSet(r.Atoms...)
}

// ResidueMotive returns the motive of one residue.
func (c *Context) ResidueMotive(r *structure.Residue) *Motive {
	return New(c, c.ResidueAtoms(r))
}

// RingAtoms returns every atom lying on a perceived ring.
func (c *Context) RingAtoms() AtomSet {
	c.init()
	return c.ringAtoms
}

// RingAtomsByFingerprint returns the atoms of rings with fingerprint fp.
func (c *Context) RingAtomsByFingerprint(fp string) AtomSet {
	key := strings.ToUpper(fp)
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.byFP[key]; ok {
		return set
	}
	var atoms []*structure.Atom
	for _, r := range c.Structure.Rings().ByFingerprint(key) {
		atoms = append(atoms, r.Atoms...)
	}
	set := NewAtomSet(atoms...)
	c.byFP[key] = set
	return set
}

// AminoChains returns one chain per structure chain, holding the amino
// acids and amino-derived modified residues in identifier order.
func (c *Context) AminoChains() []Chain {
	c.init()
	return c.amino
}

// NucleotideChains returns one chain per structure chain, holding the
// nucleotides in identifier order.
func (c *Context) NucleotideChains() []Chain {
	c.init()
	return c.nucleo
}

// SheetIndex returns the 1-based index of the sheet strand containing the
// residue, or 0.
func (c *Context) SheetIndex(id structure.ResidueIdentifier) int {
	c.init()
	return c.sheetMap[id]
}

// HelixIndex returns the 1-based index of the helix containing the residue,
// or 0.
func (c *Context) HelixIndex(id structure.ResidueIdentifier) int {
	c.init()
	return c.helixMap[id]
}

// AtomProperty returns the named per-atom property, or nil.
func (c *Context) AtomProperty(name string, a *structure.Atom) any {
	v, ok := c.Structure.AtomProperty(name, a)
	if !ok {
		return nil
	}
	return v
}

// Seq returns a process-unique number identifying c.
func (c *Context) Seq() uint64 { return c.seq }

// Parent returns the context a sub-context was carved from, or nil.
func (c *Context) Parent() *Context { return c.parent }

// Sub returns the context of the sub-structure spanned by m.  The whole
// structure motive maps to c itself.  Sub-contexts are cached per motive.
func (c *Context) Sub(m *Motive) (*Context, error) {
	if c.IsStructureMotive(m) {
		return c, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs[m.Hash()] {
		if sub.all != nil && sub.all.atoms.Equal(m.atoms) {
			return sub, nil
		}
	}
	s, err := c.Structure.Substructure(c.Structure.ID+"_temp", m.atoms.IDs())
	if err != nil {
		return nil, err
	}
	sub := NewContext(s)
	sub.parent = c
	sub.init()
	c.subs[m.Hash()] = append(c.subs[m.Hash()], sub)
	return sub, nil
}
