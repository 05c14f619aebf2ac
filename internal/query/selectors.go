package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// Selectors are countable leaves.  An empty name or id set matches every
// atom (or residue), and nothing in complement mode.

// ─────────────────────────────────────────────────────────────────────────────
// Shared scanning
// ─────────────────────────────────────────────────────────────────────────────

type atomTest func(a *structure.Atom) bool

func (t atomTest) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	var out []*motive.Motive
	for _, a := range cur.Structure.Atoms {
		if t(a) {
			out = append(out, motive.FromAtoms(cur, a))
		}
	}
	return out, nil
}

func (t atomTest) count(where *motive.Motive) int {
	n := 0
	where.Atoms().Each(func(a *structure.Atom) bool {
		if t(a) {
			n++
		}
		return true
	})
	return n
}

type residueTest func(r *structure.Residue) bool

func (t residueTest) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	var out []*motive.Motive
	for _, r := range cur.Structure.Residues {
		if t(r) {
			out = append(out, cur.ResidueMotive(r))
		}
	}
	return out, nil
}

// count counts the distinct residues touched by where that pass the test.
func (t residueTest) count(where *motive.Motive) int {
	s := where.Context().Structure
	seen := make(map[*structure.Residue]struct{})
	n := 0
	where.Atoms().Each(func(a *structure.Atom) bool {
		r := s.ResidueOf(a)
		if r == nil {
			return true
		}
		if _, ok := seen[r]; ok {
			return true
		}
		seen[r] = struct{}{}
		if t(r) {
			n++
		}
		return true
	})
	return n
}

// nameSet is a case-insensitive membership test honouring the empty-set
// policy.
func nameSet(names []string, complement bool) func(string) bool {
	if len(names) == 0 {
		return func(string) bool { return !complement }
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToUpper(n)] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[strings.ToUpper(name)]
		return ok != complement
	}
}

func sortedUnique(xs []string, norm func(string) string) []string {
	seen := make(map[string]struct{}, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		x = norm(strings.TrimSpace(x))
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom selectors
// ─────────────────────────────────────────────────────────────────────────────

// AtomSet matches atoms by element symbol.
type AtomSet struct {
	elements   []string
	complement bool
	test       atomTest
}

// NewAtomSet matches atoms whose element is (or, with complement, is not)
// one of elements.
func NewAtomSet(elements []string, complement bool) *AtomSet {
	els := sortedUnique(elements, structure.NormalizeElement)
	in := nameSet(els, complement)
	return &AtomSet{
		elements:   els,
		complement: complement,
		test:       func(a *structure.Atom) bool { return in(a.Element) },
	}
}

// IsMember reports whether a passes the element test.
func (q *AtomSet) IsMember(a *structure.Atom) bool { return q.test(a) }

func (q *AtomSet) Signature() string {
	if q.complement {
		return call("AtomSetComplement", q.elements...)
	}
	return call("AtomSet", q.elements...)
}
func (q *AtomSet) Children() []Node { return nil }

func (q *AtomSet) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *AtomSet) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// AtomNames matches atoms by PDB atom name.
type AtomNames struct {
	names      []string
	complement bool
	test       atomTest
}

// NewAtomNames matches atoms whose PDB name is (or is not) one of names.
func NewAtomNames(names []string, complement bool) *AtomNames {
	ns := sortedUnique(names, strings.ToUpper)
	in := nameSet(ns, complement)
	return &AtomNames{names: ns, complement: complement, test: func(a *structure.Atom) bool { return in(a.Name) }}
}

func (q *AtomNames) Signature() string {
	if q.complement {
		return call("NotAtomNames", q.names...)
	}
	return call("AtomNames", q.names...)
}
func (q *AtomNames) Children() []Node { return nil }

func (q *AtomNames) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *AtomNames) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// AtomIds matches atoms by id.
type AtomIds struct {
	ids        []int
	complement bool
	test       atomTest
}

// NewAtomIds matches atoms whose id is (or is not) one of ids.
func NewAtomIds(ids []int, complement bool) *AtomIds {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	sorted := make([]int, 0, len(set))
	for id := range set {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)
	q := &AtomIds{ids: sorted, complement: complement}
	q.test = func(a *structure.Atom) bool {
		if len(set) == 0 {
			return !complement
		}
		_, ok := set[a.ID]
		return ok != complement
	}
	return q
}

func (q *AtomIds) Signature() string {
	ids := make([]string, len(q.ids))
	for i, id := range q.ids {
		ids[i] = strconv.Itoa(id)
	}
	if q.complement {
		return call("NotAtomIds", ids...)
	}
	return call("AtomIds", ids...)
}
func (q *AtomIds) Children() []Node { return nil }

func (q *AtomIds) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	if q.complement || len(q.ids) == 0 {
		return q.test.run(ec)
	}
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, 0, len(q.ids))
	for _, id := range q.ids {
		if a, ok := cur.Structure.AtomByID(id); ok {
			out = append(out, motive.FromAtoms(cur, a))
		}
	}
	return out, nil
}
func (q *AtomIds) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// AtomIdRange matches atoms whose id lies in [min,max].
type AtomIdRange struct {
	min, max int
	test     atomTest
}

// NewAtomIdRange builds AtomIdRange; the bounds may be given in any order.
func NewAtomIdRange(a, b int) *AtomIdRange {
	if a > b {
		a, b = b, a
	}
	return &AtomIdRange{min: a, max: b, test: func(x *structure.Atom) bool { return x.ID >= a && x.ID <= b }}
}

func (q *AtomIdRange) Signature() string {
	return call("AtomIdRange", strconv.Itoa(q.min), strconv.Itoa(q.max))
}
func (q *AtomIdRange) Children() []Node { return nil }

func (q *AtomIdRange) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *AtomIdRange) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Residue selectors
// ─────────────────────────────────────────────────────────────────────────────

// ResidueSet matches residues by name.
type ResidueSet struct {
	names      []string
	complement bool
	test       residueTest
}

// NewResidueSet matches residues whose name is (or is not) one of names.
func NewResidueSet(names []string, complement bool) *ResidueSet {
	ns := sortedUnique(names, strings.ToUpper)
	in := nameSet(ns, complement)
	return &ResidueSet{names: ns, complement: complement, test: func(r *structure.Residue) bool { return in(r.Name) }}
}

func (q *ResidueSet) Signature() string {
	if q.complement {
		return call("ResidueSetComplement", q.names...)
	}
	return call("ResidueSet", q.names...)
}
func (q *ResidueSet) Children() []Node { return nil }

func (q *ResidueSet) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *ResidueSet) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// ModifiedResidues matches modified residues by the name of their parent.
type ModifiedResidues struct {
	parents []string
	test    residueTest
}

// NewModifiedResidues matches modified residues derived from one of
// parents, or any modified residue when parents is empty.
func NewModifiedResidues(parents []string) *ModifiedResidues {
	ps := sortedUnique(parents, strings.ToUpper)
	in := nameSet(ps, false)
	return &ModifiedResidues{parents: ps, test: func(r *structure.Residue) bool { return r.IsModified() && in(r.ModifiedFrom) }}
}

func (q *ModifiedResidues) Signature() string { return callOpts("ModifiedResidues", nil, q.parents...) }
func (q *ModifiedResidues) Children() []Node  { return nil }

func (q *ModifiedResidues) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *ModifiedResidues) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// ResidueIdRange matches residues of one chain numbered within [min,max].
type ResidueIdRange struct {
	chain    string
	min, max int
	test     residueTest
}

// NewResidueIdRange builds ResidueIdRange; the bounds may be given in any
// order.
func NewResidueIdRange(chain string, a, b int) *ResidueIdRange {
	if a > b {
		a, b = b, a
	}
	chain = strings.TrimSpace(chain)
	return &ResidueIdRange{chain: chain, min: a, max: b, test: func(r *structure.Residue) bool {
		id := r.Identifier
		return id.Chain == chain && id.Number >= a && id.Number <= b
	}}
}

func (q *ResidueIdRange) Signature() string {
	return call("ResidueIdRange", q.chain, strconv.Itoa(q.min), strconv.Itoa(q.max))
}
func (q *ResidueIdRange) Children() []Node { return nil }

func (q *ResidueIdRange) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *ResidueIdRange) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// ResidueIds matches residues by identifier ("NUMBER [CHAIN] [i:INS]").
type ResidueIds struct {
	raw  []string
	test residueTest
}

// NewResidueIds parses ids; at least one is required.
func NewResidueIds(ids []string) (*ResidueIds, error) {
	if len(ids) == 0 {
		return nil, errors.InvalidConfig("ResidueIds: at least one identifier required.")
	}
	set := make(map[structure.ResidueIdentifier]struct{}, len(ids))
	for _, raw := range ids {
		id, err := structure.ParseResidueIdentifier(raw)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeQueryInvalidConfig, "ResidueIds: '%s'", raw)
		}
		set[id] = struct{}{}
	}
	return &ResidueIds{raw: append([]string(nil), ids...), test: func(r *structure.Residue) bool {
		_, ok := set[r.Identifier]
		return ok
	}}, nil
}

func (q *ResidueIds) Signature() string { return callOpts("ResidueIds", nil, q.raw...) }
func (q *ResidueIds) Children() []Node  { return nil }

func (q *ResidueIds) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *ResidueIds) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// AminoAcids matches amino acid residues, optionally of one charge type.
type AminoAcids struct {
	charge structure.ChargeType
	test   residueTest
}

// NewAminoAcids builds AminoAcids.  An empty charge type matches every
// amino acid; an unknown one is rejected.
func NewAminoAcids(chargeType string) (*AminoAcids, error) {
	q := &AminoAcids{}
	if strings.TrimSpace(chargeType) != "" {
		c, ok := structure.ParseChargeType(strings.TrimSpace(chargeType))
		if !ok || c == structure.ChargeUnknown {
			return nil, errors.InvalidConfig("'%s' is not a recognized charge type.", chargeType)
		}
		q.charge = c
	}
	q.test = func(r *structure.Residue) bool {
		return r.IsAmino() && (q.charge == structure.ChargeUnknown || r.ChargeType() == q.charge)
	}
	return q, nil
}

func (q *AminoAcids) Signature() string {
	if q.charge == structure.ChargeUnknown {
		return "AminoAcids[]"
	}
	return callOpts("AminoAcids", []string{option("ChargeType", q.charge.String())})
}
func (q *AminoAcids) Children() []Node { return nil }

func (q *AminoAcids) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *AminoAcids) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// NotAminoAcid matches every residue that is not an amino acid.
type NotAminoAcid struct {
	ignoreWaters bool
	test         residueTest
}

// NewNotAminoAcid builds NotAminoAcid, optionally skipping waters.
func NewNotAminoAcid(ignoreWaters bool) *NotAminoAcid {
	return &NotAminoAcid{ignoreWaters: ignoreWaters, test: func(r *structure.Residue) bool {
		return !r.IsAmino() && !(ignoreWaters && r.IsWater())
	}}
}

func (q *NotAminoAcid) Signature() string {
	return "NotAminoAcid[" + option("IgnoreWaters", q.ignoreWaters) + "]"
}
func (q *NotAminoAcid) Children() []Node { return nil }

func (q *NotAminoAcid) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *NotAminoAcid) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// HetResidues matches residues read from HETATM records.
type HetResidues struct {
	ignoreWaters bool
	test         residueTest
}

// NewHetResidues builds HetResidues, optionally skipping waters.
func NewHetResidues(ignoreWaters bool) *HetResidues {
	return &HetResidues{ignoreWaters: ignoreWaters, test: func(r *structure.Residue) bool {
		return r.IsHet() && !(ignoreWaters && r.IsWater())
	}}
}

func (q *HetResidues) Signature() string {
	return "HetResidues[" + option("IgnoreWaters", q.ignoreWaters) + "]"
}
func (q *HetResidues) Children() []Node { return nil }

func (q *HetResidues) run(ec *ExecutionContext) ([]*motive.Motive, error) { return q.test.run(ec) }
func (q *HetResidues) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	return q.test.count(where), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Rings
// ─────────────────────────────────────────────────────────────────────────────

// Ring matches perceived rings by fingerprint, or every ring.
type Ring struct{ fingerprint string }

// NewRing builds a ring selector from the cyclic element sequence.  No
// elements selects every ring; otherwise 3 to 8 elements are required.
func NewRing(elements []string) (*Ring, error) {
	if len(elements) == 0 {
		return &Ring{}, nil
	}
	if len(elements) > structure.MaxRingSize {
		return nil, errors.InvalidConfig("Rings with more than %d atoms are not supported.", structure.MaxRingSize)
	}
	if len(elements) < 3 {
		return nil, errors.InvalidConfig("A ring must contain at least 3 elements.")
	}
	els := make([]string, len(elements))
	for i, e := range elements {
		els[i] = structure.NormalizeElement(e)
		if els[i] == "" {
			return nil, errors.InvalidConfig("Ring: element %d is empty.", i+1)
		}
	}
	return &Ring{fingerprint: structure.Fingerprint(els)}, nil
}

// Fingerprint returns the canonical fingerprint, empty for every ring.
func (q *Ring) Fingerprint() string { return q.fingerprint }

func (q *Ring) Signature() string { return call("Ring", quote(q.fingerprint)) }
func (q *Ring) Children() []Node  { return nil }

func (q *Ring) rings(s *structure.Structure) []*structure.Ring {
	if q.fingerprint == "" {
		return s.Rings().All()
	}
	return s.Rings().ByFingerprint(q.fingerprint)
}

func (q *Ring) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	rs := q.rings(cur.Structure)
	out := make([]*motive.Motive, len(rs))
	for i, r := range rs {
		out[i] = motive.FromAtoms(cur, r.Atoms...)
	}
	return out, nil
}

// count counts the rings lying wholly inside where.
func (q *Ring) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	n := 0
	for _, r := range q.rings(where.Context().Structure) {
		inside := true
		for _, a := range r.Atoms {
			if !where.Has(a) {
				inside = false
				break
			}
		}
		if inside {
			n++
		}
	}
	return n, nil
}

// OnRing matches atoms of a given element set lying on a ring.
type OnRing struct {
	atoms *AtomSet
	ring  *Ring
}

// NewOnRing builds OnRing; ring may be nil for any ring.
func NewOnRing(atoms *AtomSet, ring *Ring) *OnRing { return &OnRing{atoms: atoms, ring: ring} }

func (q *OnRing) Signature() string {
	if q.ring == nil {
		return call("OnRing", q.atoms.Signature())
	}
	return call("OnRing", q.atoms.Signature(), q.ring.Signature())
}
func (q *OnRing) Children() []Node {
	if q.ring == nil {
		return []Node{q.atoms}
	}
	return []Node{q.atoms, q.ring}
}

func (q *OnRing) ringAtoms(c *motive.Context) motive.AtomSet {
	if q.ring == nil || q.ring.fingerprint == "" {
		return c.RingAtoms()
	}
	return c.RingAtomsByFingerprint(q.ring.fingerprint)
}

func (q *OnRing) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	var out []*motive.Motive
	q.ringAtoms(cur).Each(func(a *structure.Atom) bool {
		if q.atoms.IsMember(a) {
			out = append(out, motive.FromAtoms(cur, a))
		}
		return true
	})
	return out, nil
}

func (q *OnRing) count(_ *ExecutionContext, where *motive.Motive) (int, error) {
	ring := q.ringAtoms(where.Context())
	n := 0
	where.Atoms().Each(func(a *structure.Atom) bool {
		if q.atoms.IsMember(a) && ring.Contains(a) {
			n++
		}
		return true
	})
	return n, nil
}
