package structure

import (
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Secondary structure
// ─────────────────────────────────────────────────────────────────────────────

// SecondaryElement is a helix or a sheet strand spanning a residue range of
// one chain.
type SecondaryElement struct {
	Kind     SecondaryType
	Start    ResidueIdentifier
	End      ResidueIdentifier
	Residues []*Residue
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure
// ─────────────────────────────────────────────────────────────────────────────

// Structure is an immutable molecular structure.  It is safe for concurrent
// readers; lazily computed indexes are guarded by sync.Once.
type Structure struct {
	ID       string
	Atoms    []*Atom
	Bonds    []Bond
	Residues []*Residue
	Helices  []*SecondaryElement
	Sheets   []*SecondaryElement
	Metadata *Metadata

	descriptors    map[string]any
	atomProperties map[string]map[int]any

	byID        map[int]*Atom
	atomIndex   map[int]int
	adjacency   map[int][]*Atom
	residueByID map[ResidueIdentifier]*Residue
	atomResidue map[int]*Residue
	chains      []string
	chainRes    map[string][]*Residue

	ringsOnce sync.Once
	rings     *RingSet

	treeOnce sync.Once
	tree     *spatial.Tree
}

// AtomByID looks an atom up by id.
func (s *Structure) AtomByID(id int) (*Atom, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// IndexOf returns the position of the atom in s.Atoms.
func (s *Structure) IndexOf(a *Atom) int {
	if i, ok := s.atomIndex[a.ID]; ok {
		return i
	}
	return -1
}

// Neighbours returns the atoms bonded to a, ordered by id.
func (s *Structure) Neighbours(a *Atom) []*Atom { return s.adjacency[a.ID] }

// AreBonded reports whether a and b share a bond.
func (s *Structure) AreBonded(a, b *Atom) bool {
	for _, n := range s.adjacency[a.ID] {
		if n.ID == b.ID {
			return true
		}
	}
	return false
}

// ResidueOf returns the residue that owns a.
func (s *Structure) ResidueOf(a *Atom) *Residue { return s.atomResidue[a.ID] }

// Residue looks a residue up by identifier.
func (s *Structure) Residue(id ResidueIdentifier) (*Residue, bool) {
	r, ok := s.residueByID[id]
	return r, ok
}

// Chains returns chain identifiers in order of first appearance.
func (s *Structure) Chains() []string { return s.chains }

// ChainResidues returns the residues of chain in file order.
func (s *Structure) ChainResidues(chain string) []*Residue { return s.chainRes[chain] }

// Descriptor returns a named structure-level descriptor.  Names are
// case-insensitive.
func (s *Structure) Descriptor(name string) (any, bool) {
	v, ok := s.descriptors[strings.ToLower(name)]
	return v, ok
}

// AtomProperty returns the value of a named per-atom property.
func (s *Structure) AtomProperty(name string, a *Atom) (any, bool) {
	props, ok := s.atomProperties[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	v, ok := props[a.ID]
	return v, ok
}

// Rings returns the perceived rings of the structure.
func (s *Structure) Rings() *RingSet {
	s.ringsOnce.Do(func() { s.rings = perceiveRings(s) })
	return s.rings
}

// AtomTree returns a k-d tree over atom positions; hit indexes refer to
// s.Atoms.
func (s *Structure) AtomTree() *spatial.Tree {
	s.treeOnce.Do(func() {
		ps := make([]spatial.Vec3, len(s.Atoms))
		for i, a := range s.Atoms {
			ps[i] = a.Position
		}
		s.tree = spatial.NewTree(ps)
	})
	return s.tree
}

// AtomsWithin returns the atoms within radius of center, closest first.
func (s *Structure) AtomsWithin(center spatial.Vec3, radius float64) []*Atom {
	hits := s.AtomTree().Within(center, radius)
	out := make([]*Atom, len(hits))
	for i, h := range hits {
		out[i] = s.Atoms[h.Index]
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

type secondaryRange struct {
	kind       SecondaryType
	start, end ResidueIdentifier
}

// Builder accumulates atoms, bonds and annotations and produces a validated
// Structure.
type Builder struct {
	id          string
	atoms       []*Atom
	bonds       []Bond
	secondary   []secondaryRange
	modified    map[ResidueIdentifier]string
	metadata    *Metadata
	descriptors map[string]any
	atomProps   map[string]map[int]any
	inferBonds  bool
}

// NewBuilder starts a structure with the given id.
func NewBuilder(id string) *Builder {
	return &Builder{
		id:          id,
		modified:    make(map[ResidueIdentifier]string),
		descriptors: make(map[string]any),
		atomProps:   make(map[string]map[int]any),
	}
}

// AddAtom appends a copy of a.
func (b *Builder) AddAtom(a Atom) *Builder {
	a.Element = NormalizeElement(a.Element)
	if strings.TrimSpace(a.Chain) == "" {
		a.Chain = ""
	}
	if a.InsertionCode == 0 {
		a.InsertionCode = ' '
	}
	b.atoms = append(b.atoms, &a)
	return b
}

// AddBond records an explicit bond between two atom ids.
func (b *Builder) AddBond(a, c int) *Builder {
	b.bonds = append(b.bonds, NewBond(a, c))
	return b
}

// AddHelix records a helix spanning start..end.
func (b *Builder) AddHelix(start, end ResidueIdentifier) *Builder {
	b.secondary = append(b.secondary, secondaryRange{SecondaryHelix, start, end})
	return b
}

// AddSheet records a sheet strand spanning start..end.
func (b *Builder) AddSheet(start, end ResidueIdentifier) *Builder {
	b.secondary = append(b.secondary, secondaryRange{SecondarySheet, start, end})
	return b
}

// MarkModified records that residue id is a modification of parent.
func (b *Builder) MarkModified(id ResidueIdentifier, parent string) *Builder {
	b.modified[id] = strings.ToUpper(strings.TrimSpace(parent))
	return b
}

// SetMetadata attaches header metadata.
func (b *Builder) SetMetadata(m *Metadata) *Builder {
	b.metadata = m
	return b
}

// SetDescriptor attaches a named structure-level value.
func (b *Builder) SetDescriptor(name string, v any) *Builder {
	b.descriptors[strings.ToLower(name)] = v
	return b
}

// SetAtomProperty attaches a named value to one atom.
func (b *Builder) SetAtomProperty(name string, atomID int, v any) *Builder {
	key := strings.ToLower(name)
	props, ok := b.atomProps[key]
	if !ok {
		props = make(map[int]any)
		b.atomProps[key] = props
	}
	props[atomID] = v
	return b
}

// InferBonds enables distance-based covalent bond perception in Build.
func (b *Builder) InferBonds(on bool) *Builder {
	b.inferBonds = on
	return b
}

// Build validates the accumulated data and returns the structure.
func (b *Builder) Build() (*Structure, error) {
	s := &Structure{
		ID:             b.id,
		Atoms:          b.atoms,
		Metadata:       b.metadata,
		descriptors:    b.descriptors,
		atomProperties: b.atomProps,
		byID:           make(map[int]*Atom, len(b.atoms)),
		atomIndex:      make(map[int]int, len(b.atoms)),
		adjacency:      make(map[int][]*Atom, len(b.atoms)),
		residueByID:    make(map[ResidueIdentifier]*Residue),
		atomResidue:    make(map[int]*Residue, len(b.atoms)),
		chainRes:       make(map[string][]*Residue),
	}

	for i, a := range b.atoms {
		if _, dup := s.byID[a.ID]; dup {
			return nil, errors.Newf(errors.ErrCodeStructureInvalid, "structure %q: duplicate atom id %d", b.id, a.ID)
		}
		s.byID[a.ID] = a
		s.atomIndex[a.ID] = i
	}

	s.buildResidues(b.modified)

	bonds, err := b.collectBonds(s)
	if err != nil {
		return nil, err
	}
	s.Bonds = bonds
	for _, bd := range bonds {
		x, y := s.byID[bd.A], s.byID[bd.B]
		s.adjacency[x.ID] = append(s.adjacency[x.ID], y)
		s.adjacency[y.ID] = append(s.adjacency[y.ID], x)
	}
	for id, ns := range s.adjacency {
		sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
		s.adjacency[id] = ns
	}

	for _, r := range b.secondary {
		el := s.resolveSecondary(r)
		if el == nil {
			continue
		}
		if r.kind == SecondaryHelix {
			s.Helices = append(s.Helices, el)
		} else {
			s.Sheets = append(s.Sheets, el)
		}
	}
	return s, nil
}

func (s *Structure) buildResidues(modified map[ResidueIdentifier]string) {
	for _, a := range s.Atoms {
		id := a.ResidueID()
		r, ok := s.residueByID[id]
		if !ok {
			r = &Residue{Identifier: id, Name: strings.ToUpper(a.ResidueName)}
			if parent, mod := modified[id]; mod {
				r.ModifiedFrom = parent
			}
			s.residueByID[id] = r
			s.Residues = append(s.Residues, r)
			if _, seen := s.chainRes[id.Chain]; !seen {
				s.chains = append(s.chains, id.Chain)
			}
			s.chainRes[id.Chain] = append(s.chainRes[id.Chain], r)
		}
		r.Atoms = append(r.Atoms, a)
		s.atomResidue[a.ID] = r
	}
}

func (b *Builder) collectBonds(s *Structure) ([]Bond, error) {
	seen := make(map[Bond]struct{}, len(b.bonds))
	var out []Bond
	for _, bd := range b.bonds {
		if bd.A == bd.B {
			return nil, errors.Newf(errors.ErrCodeStructureInvalid, "structure %q: atom %d bonded to itself", b.id, bd.A)
		}
		if _, ok := s.byID[bd.A]; !ok {
			return nil, errors.Newf(errors.ErrCodeStructureInvalid, "structure %q: bond references unknown atom %d", b.id, bd.A)
		}
		if _, ok := s.byID[bd.B]; !ok {
			return nil, errors.Newf(errors.ErrCodeStructureInvalid, "structure %q: bond references unknown atom %d", b.id, bd.B)
		}
		if _, dup := seen[bd]; dup {
			continue
		}
		seen[bd] = struct{}{}
		out = append(out, bd)
	}
	if b.inferBonds {
		for _, bd := range inferCovalentBonds(s) {
			if _, dup := seen[bd]; dup {
				continue
			}
			seen[bd] = struct{}{}
			out = append(out, bd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out, nil
}

func (s *Structure) resolveSecondary(r secondaryRange) *SecondaryElement {
	residues := s.chainRes[r.start.Chain]
	from, to := -1, -1
	for i, res := range residues {
		if res.Identifier == r.start {
			from = i
		}
		if res.Identifier == r.end {
			to = i
		}
	}
	if from < 0 || to < 0 {
		return nil
	}
	if from > to {
		from, to = to, from
	}
	el := &SecondaryElement{Kind: r.kind, Start: r.start, End: r.end}
	for _, res := range residues[from : to+1] {
		res.SecondaryType = r.kind
		el.Residues = append(el.Residues, res)
	}
	return el
}

// bondTolerance is added to the sum of covalent radii when inferring bonds.
const bondTolerance = 0.45

// minBondLength filters overlapping alternate locations.
const minBondLength = 0.4

func inferCovalentBonds(s *Structure) []Bond {
	maxR := 0.0
	for _, r := range covalentRadii {
		if r > maxR {
			maxR = r
		}
	}
	tree := s.AtomTree()
	var out []Bond
	for _, a := range s.Atoms {
		ra, ok := CovalentRadius(a.Element)
		if !ok {
			continue
		}
		for _, h := range tree.Within(a.Position, ra+maxR+bondTolerance) {
			c := s.Atoms[h.Index]
			if c.ID <= a.ID {
				continue
			}
			rc, ok := CovalentRadius(c.Element)
			if !ok || (a.Element == "H" && c.Element == "H") {
				continue
			}
			if h.Distance >= minBondLength && h.Distance <= ra+rc+bondTolerance {
				out = append(out, NewBond(a.ID, c.ID))
			}
		}
	}
	return out
}

// Substructure returns a new structure made of the atoms with the given ids.
// Bonds between kept atoms, modified residue annotations, secondary
// elements (clipped to the kept residues), metadata and atom properties are
// carried over.  Atom ids are preserved so results can be mapped back.
func (s *Structure) Substructure(id string, atomIDs []int) (*Structure, error) {
	keep := make(map[int]struct{}, len(atomIDs))
	for _, aid := range atomIDs {
		keep[aid] = struct{}{}
	}

	b := NewBuilder(id).SetMetadata(s.Metadata)
	for _, a := range s.Atoms {
		if _, ok := keep[a.ID]; ok {
			b.AddAtom(*a)
		}
	}
	for _, bd := range s.Bonds {
		_, okA := keep[bd.A]
		_, okB := keep[bd.B]
		if okA && okB {
			b.AddBond(bd.A, bd.B)
		}
	}
	for _, r := range s.Residues {
		if r.IsModified() {
			b.MarkModified(r.Identifier, r.ModifiedFrom)
		}
	}
	clip := func(el *SecondaryElement) (first, last ResidueIdentifier, ok bool) {
		for _, r := range el.Residues {
			for _, a := range r.Atoms {
				if _, in := keep[a.ID]; in {
					if !ok {
						first = r.Identifier
					}
					last, ok = r.Identifier, true
					break
				}
			}
		}
		return first, last, ok
	}
	for _, h := range s.Helices {
		if first, last, ok := clip(h); ok {
			b.AddHelix(first, last)
		}
	}
	for _, sh := range s.Sheets {
		if first, last, ok := clip(sh); ok {
			b.AddSheet(first, last)
		}
	}
	for name, props := range s.atomProperties {
		for aid, v := range props {
			if _, ok := keep[aid]; ok {
				b.SetAtomProperty(name, aid, v)
			}
		}
	}
	return b.Build()
}
