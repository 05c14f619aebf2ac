package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sequence motifs
// ─────────────────────────────────────────────────────────────────────────────

// ChainKind selects the residue alphabet RegexMotive searches.
type ChainKind int

const (
	AminoChain ChainKind = iota
	NucleotideChain
)

func (k ChainKind) String() string {
	if k == NucleotideChain {
		return "Nucleotide"
	}
	return "Amino"
}

// ParseChainKind parses "Amino" or "Nucleotide", ignoring case.
func ParseChainKind(s string) (ChainKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amino":
		return AminoChain, nil
	case "nucleotide":
		return NucleotideChain, nil
	}
	return 0, errors.InvalidConfig("'%s' is not a valid regular motif query type.", s)
}

// RegexMotive matches a regular expression against the one-letter
// sequence of every chain and yields the residues of each match.
type RegexMotive struct {
	pattern Scalar
	kind    ChainKind
}

// NewRegexMotive builds RegexMotive(Type=..)[pattern].
func NewRegexMotive(pattern Scalar, kind ChainKind) *RegexMotive {
	return &RegexMotive{pattern: pattern, kind: kind}
}

func (q *RegexMotive) Signature() string {
	return callOpts("RegexMotive", []string{option("Type", q.kind)}, q.pattern.Signature())
}
func (q *RegexMotive) Children() []Node { return []Node{q.pattern} }

func (q *RegexMotive) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	v, err := q.pattern.eval(ec)
	if err != nil {
		return nil, err
	}
	expr, ok := v.(string)
	if !ok {
		return nil, errors.TypeMismatch("%s: expected a string, got %s.", q.Signature(), typeName(v))
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeQueryInvalidConfig, "RegexMotive: invalid expression %q", expr)
	}
	chains := cur.AminoChains()
	if q.kind == NucleotideChain {
		chains = cur.NucleotideChains()
	}
	var out []*motive.Motive
	for _, c := range chains {
		for _, loc := range re.FindAllStringIndex(c.Sequence, -1) {
			if loc[0] == loc[1] {
				continue
			}
			out = append(out, motive.FromResidues(cur, c.Residues[loc[0]:loc[1]]...))
		}
	}
	return out, nil
}

// motiveResidues returns the distinct residues of m in identifier order.
func motiveResidues(m *motive.Motive) []*structure.Residue {
	s := m.Context().Structure
	seen := make(map[*structure.Residue]struct{})
	var rs []*structure.Residue
	m.Atoms().Each(func(a *structure.Atom) bool {
		if r := s.ResidueOf(a); r != nil {
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				rs = append(rs, r)
			}
		}
		return true
	})
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Identifier.Compare(rs[j].Identifier) < 0 })
	return rs
}

// AminoSequenceString yields the one-letter sequence of the amino acids of
// a motive.
type AminoSequenceString struct{ m Scalar }

// NewAminoSequenceString builds AminoSequenceString[m].
func NewAminoSequenceString(m Scalar) *AminoSequenceString { return &AminoSequenceString{m: m} }

func (q *AminoSequenceString) Signature() string { return call("AminoSequenceString", q.m.Signature()) }
func (q *AminoSequenceString) Children() []Node  { return []Node{q.m} }

func (q *AminoSequenceString) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, r := range motiveResidues(m) {
		if r.IsAmino() {
			sb.WriteString(r.ShortName())
		}
	}
	return sb.String(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityKind selects what MotiveSimilarity compares.
type SimilarityKind int

const (
	AtomJaccard SimilarityKind = iota
	ResidueJaccard
)

func (k SimilarityKind) String() string {
	if k == ResidueJaccard {
		return "ResidueJaccard"
	}
	return "AtomJaccard"
}

// ParseSimilarityKind parses "AtomJaccard" or "ResidueJaccard", ignoring
// case.
func ParseSimilarityKind(s string) (SimilarityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atomjaccard":
		return AtomJaccard, nil
	case "residuejaccard":
		return ResidueJaccard, nil
	}
	return 0, errors.InvalidConfig("'%s' is not a valid similarity type.", s)
}

// MotiveSimilarity yields the multiset Jaccard index of the element
// symbols or residue names of two motives.
type MotiveSimilarity struct {
	kind SimilarityKind
	a, b Scalar
}

// NewMotiveSimilarity builds MotiveSimilarity[kind,a,b].
func NewMotiveSimilarity(kind SimilarityKind, a, b Scalar) *MotiveSimilarity {
	return &MotiveSimilarity{kind: kind, a: a, b: b}
}

func (q *MotiveSimilarity) Signature() string {
	return call("MotiveSimilarity", q.kind.String(), q.a.Signature(), q.b.Signature())
}
func (q *MotiveSimilarity) Children() []Node { return []Node{q.a, q.b} }

func (q *MotiveSimilarity) labels(m *motive.Motive) []string {
	if q.kind == AtomJaccard {
		out := make([]string, 0, m.Len())
		m.Atoms().Each(func(a *structure.Atom) bool {
			out = append(out, a.Element)
			return true
		})
		return out
	}
	rs := motiveResidues(m)
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func jaccard(xs, ys []string) float64 {
	if len(xs)+len(ys) == 0 {
		return 0
	}
	counts := make(map[string]int, len(xs))
	for _, x := range xs {
		counts[strings.ToUpper(x)]++
	}
	common := 0
	for _, y := range ys {
		k := strings.ToUpper(y)
		if counts[k] > 0 {
			counts[k]--
			common++
		}
	}
	return float64(common) / float64(len(xs)+len(ys)-common)
}

func (q *MotiveSimilarity) eval(ec *ExecutionContext) (any, error) {
	a, err := ec.evalMotive(q.a)
	if err != nil {
		return nil, err
	}
	b, err := ec.evalMotive(q.b)
	if err != nil {
		return nil, err
	}
	return jaccard(q.labels(a), q.labels(b)), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Properties
// ─────────────────────────────────────────────────────────────────────────────

// AtomProperty reads a named property of a single-atom motive.  Larger
// motives yield nothing.
type AtomProperty struct {
	m    Scalar
	name string
}

// NewAtomProperty builds AtomProperty[m, "name"].
func NewAtomProperty(m Scalar, name string) *AtomProperty {
	return &AtomProperty{m: m, name: strings.TrimSpace(name)}
}

func (q *AtomProperty) Signature() string {
	return "AtomProperty[" + q.m.Signature() + ", " + quote(q.name) + "]"
}
func (q *AtomProperty) Children() []Node { return []Node{q.m} }

func (q *AtomProperty) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	if m.Len() != 1 {
		return nil, nil
	}
	a, _ := m.Atoms().Min()
	return normalize(m.Context().AtomProperty(q.name, a)), nil
}

// Descriptor reads a named descriptor of the structure a whole-structure
// motive stands for.
type Descriptor struct {
	name string
	m    Scalar
}

// NewDescriptor builds Descriptor["name",m].
func NewDescriptor(name string, m Scalar) *Descriptor {
	return &Descriptor{name: strings.TrimSpace(name), m: m}
}

func (q *Descriptor) Signature() string {
	return call("Descriptor", quote(q.name), q.m.Signature())
}
func (q *Descriptor) Children() []Node { return []Node{q.m} }

func (q *Descriptor) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	if !m.Context().IsStructureMotive(m) {
		return nil, errors.Runtime("Descriptors can only be read from 'structure level' motives.")
	}
	v, _ := m.Context().Structure.Descriptor(q.name)
	return normalize(v), nil
}

// normalize maps loaded property values onto the engine value types.
func normalize(v any) any {
	switch x := v.(type) {
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float32:
		return float64(x)
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Element views
// ─────────────────────────────────────────────────────────────────────────────

// ElementKind selects how ToElements splits motives.
type ElementKind int

const (
	AtomElements ElementKind = iota
	ResidueElements
)

func (k ElementKind) String() string {
	if k == ResidueElements {
		return "Residues"
	}
	return "Atoms"
}

// ParseElementKind parses "Atoms" or "Residues", ignoring case.
func ParseElementKind(s string) (ElementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atoms":
		return AtomElements, nil
	case "residues":
		return ResidueElements, nil
	}
	return 0, errors.InvalidConfig("'%s' is not a valid element type.", s)
}

// ToElements splits the union of the matches of inner into single atoms or
// per-residue motives, in first-seen order.
type ToElements struct {
	kind  ElementKind
	inner Sequence
}

// NewToElements builds ToElements[kind,inner].
func NewToElements(kind ElementKind, inner Sequence) *ToElements {
	return &ToElements{kind: kind, inner: inner}
}

func (q *ToElements) Signature() string { return call("ToElements", q.kind.String(), q.inner.Signature()) }
func (q *ToElements) Children() []Node  { return []Node{q.inner} }

func (q *ToElements) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	var atoms []*structure.Atom
	for _, m := range ms {
		m.Atoms().Each(func(a *structure.Atom) bool {
			if _, ok := seen[a.ID]; !ok {
				seen[a.ID] = struct{}{}
				atoms = append(atoms, a)
			}
			return true
		})
	}
	if q.kind == AtomElements {
		out := make([]*motive.Motive, len(atoms))
		for i, a := range atoms {
			out[i] = motive.FromAtoms(cur, a)
		}
		return out, nil
	}
	var order []structure.ResidueIdentifier
	groups := make(map[structure.ResidueIdentifier][]*structure.Atom)
	for _, a := range atoms {
		id := a.ResidueID()
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], a)
	}
	out := make([]*motive.Motive, len(order))
	for i, id := range order {
		out[i] = motive.FromAtoms(cur, groups[id]...)
	}
	return out, nil
}

// CommonAtoms yields the atoms of the current structure that also occur,
// with the same id, element, chain and residue number, in another
// structure of the environment.
type CommonAtoms struct{ id string }

// NewCommonAtoms builds CommonAtoms()[id].
func NewCommonAtoms(id string) *CommonAtoms { return &CommonAtoms{id: id} }

func (q *CommonAtoms) Signature() string { return callOpts("CommonAtoms", nil, q.id) }
func (q *CommonAtoms) Children() []Node  { return nil }

func (q *CommonAtoms) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	other, err := NewStructureMotive(q.id).eval(ec)
	if err != nil {
		return nil, err
	}
	var atoms []*structure.Atom
	other.(*motive.Motive).Atoms().Each(func(t *structure.Atom) bool {
		a, ok := cur.Structure.AtomByID(t.ID)
		if ok && strings.EqualFold(a.Element, t.Element) && a.Chain == t.Chain && a.ResidueNumber == t.ResidueNumber {
			atoms = append(atoms, a)
		}
		return true
	})
	if len(atoms) == 0 {
		return nil, nil
	}
	return []*motive.Motive{motive.FromAtoms(cur, atoms...)}, nil
}

// Chains yields one motive per chain, all chains when no ids are given.
type Chains struct{ ids []string }

// NewChains builds Chains()[ids].
func NewChains(ids ...string) *Chains {
	seen := make(map[string]struct{}, len(ids))
	var uniq []string
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	return &Chains{ids: uniq}
}

func (q *Chains) Signature() string { return callOpts("Chains", nil, q.ids...) }
func (q *Chains) Children() []Node  { return nil }

func (q *Chains) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	ids := q.ids
	if len(ids) == 0 {
		ids = cur.Structure.Chains()
	}
	var out []*motive.Motive
	for _, id := range ids {
		rs := cur.Structure.ChainResidues(id)
		if len(rs) == 0 {
			continue
		}
		out = append(out, motive.FromResidues(cur, rs...))
	}
	return out, nil
}

// SecondaryElement yields one motive per helix or sheet strand.
type SecondaryElement struct{ kind structure.SecondaryType }

// NewSecondaryElement builds SecondaryElement()[Sheet|Helix] from the kind
// name.
func NewSecondaryElement(kind string) (*SecondaryElement, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "helix":
		return &SecondaryElement{kind: structure.SecondaryHelix}, nil
	case "sheet":
		return &SecondaryElement{kind: structure.SecondarySheet}, nil
	}
	return nil, errors.InvalidConfig("'%s' is not a valid secondary element type.", kind)
}

func (q *SecondaryElement) Signature() string {
	name := "Sheet"
	if q.kind == structure.SecondaryHelix {
		name = "Helix"
	}
	return callOpts("SecondaryElement", nil, name)
}
func (q *SecondaryElement) Children() []Node { return nil }

func (q *SecondaryElement) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	els := cur.Structure.Sheets
	if q.kind == structure.SecondaryHelix {
		els = cur.Structure.Helices
	}
	var out []*motive.Motive
	for _, el := range els {
		if len(el.Residues) > 0 {
			out = append(out, motive.FromResidues(cur, el.Residues...))
		}
	}
	return out, nil
}

// GroupedAtoms yields one motive per element symbol holding every atom of
// that element.  With no symbols given every element is grouped.
type GroupedAtoms struct {
	elements []string
	allowed  map[string]struct{}
}

// NewGroupedAtoms builds GroupedAtoms()[elements].
func NewGroupedAtoms(elements ...string) *GroupedAtoms {
	q := &GroupedAtoms{elements: sortedUnique(elements, structure.NormalizeElement)}
	if len(q.elements) > 0 {
		q.allowed = make(map[string]struct{}, len(q.elements))
		for _, e := range q.elements {
			q.allowed[e] = struct{}{}
		}
	}
	return q
}

func (q *GroupedAtoms) Signature() string { return callOpts("GroupedAtoms", nil, q.elements...) }
func (q *GroupedAtoms) Children() []Node  { return nil }

func (q *GroupedAtoms) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	var order []string
	groups := make(map[string][]*structure.Atom)
	for _, a := range cur.Structure.Atoms {
		e := structure.NormalizeElement(a.Element)
		if q.allowed != nil {
			if _, ok := q.allowed[e]; !ok {
				continue
			}
		}
		if _, ok := groups[e]; !ok {
			order = append(order, e)
		}
		groups[e] = append(groups[e], a)
	}
	out := make([]*motive.Motive, len(order))
	for i, e := range order {
		out[i] = motive.FromAtoms(cur, groups[e]...)
	}
	return out, nil
}
