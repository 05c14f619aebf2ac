package querytree

import (
	"sort"
	"strings"

	"github.com/turtacn/motivequery/internal/query"
)

type builder func(d *decoder, e *expr) (query.Node, error)

var builders map[string]builder

func register(b builder, names ...string) {
	for _, n := range names {
		builders[strings.ToLower(n)] = b
	}
}

// Ops returns the op names the decoder understands, besides the
// HasAll<Prop>/HasAny<Prop> family.
func Ops() []string {
	out := make([]string, 0, len(builders))
	for n := range builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lookup(e *expr) (builder, error) {
	key := strings.ToLower(e.op)
	if b, ok := builders[key]; ok {
		return b, nil
	}
	if op, ok := query.ParseRelationOp(e.op); ok {
		return relation(op), nil
	}
	if op, ok := query.ParseArithmeticOp(e.op); ok {
		return arithmetic(op), nil
	}
	if op, ok := query.ParseLogicalOp(e.op); ok {
		return logical(op), nil
	}
	for _, mode := range []string{"hasall", "hasany"} {
		if strings.HasPrefix(key, mode) && len(key) > len(mode) {
			return hasMetadata(e.op[len(mode):], mode == "hasany"), nil
		}
	}
	return nil, failf(e.node, "unknown op %q", e.op)
}

func init() {
	builders = make(map[string]builder)

	// Values and logic
	register(buildValue, "Value")
	register(buildList, "List")
	register(buildMinus, "Minus")
	register(buildNot, "LogicalNot", "Not")

	// Selectors
	register(atomSet(false), "AtomSet")
	register(atomSet(true), "AtomSetComplement")
	register(atomNames(false), "AtomNames")
	register(atomNames(true), "NotAtomNames")
	register(atomIds(false), "AtomIds")
	register(atomIds(true), "NotAtomIds")
	register(residueSet(false), "ResidueSet")
	register(residueSet(true), "ResidueSetComplement")
	register(buildAtomIdRange, "AtomIdRange")
	register(buildResidueIdRange, "ResidueIdRange")
	register(buildResidueIds, "ResidueIds")
	register(buildModifiedResidues, "ModifiedResidues")
	register(buildAminoAcids, "AminoAcids")
	register(buildNotAminoAcid, "NotAminoAcid")
	register(buildHetResidues, "HetResidues")
	register(buildRing, "Ring")
	register(buildOnRing, "OnRing")
	register(buildChains, "Chains")
	register(buildGroupedAtoms, "GroupedAtoms")
	register(buildSecondaryElement, "SecondaryElement")

	// Counting
	register(buildCount, "Count")
	register(buildSeqCount, "SeqCount")
	register(buildLength, "Length")
	register(buildAtomId, "AtomId")
	register(buildAtomChain, "AtomChain")

	// Spatial joins
	register(buildNear, "Near")
	register(buildCluster, "Cluster")
	register(buildDistanceCluster, "DistanceCluster")
	register(expansion(func(q query.Sequence, dist float64, o query.ExpandOptions) (query.Node, error) {
		return query.NewAmbientAtoms(q, dist, o)
	}), "AmbientAtoms")
	register(expansion(func(q query.Sequence, dist float64, o query.ExpandOptions) (query.Node, error) {
		return query.NewAmbientResidues(q, dist, o)
	}), "AmbientResidues")
	register(expansion(func(q query.Sequence, dist float64, o query.ExpandOptions) (query.Node, error) {
		return query.NewSpherify(q, dist, o)
	}), "Spherify")
	register(buildFilled, "Filled")
	register(buildNearestDistanceTo, "NearestDistanceTo")
	register(buildStack2, "Stack2")

	// Topology
	register(buildConnectedAtoms, "ConnectedAtoms")
	register(buildConnectedResidues, "ConnectedResidues")
	register(buildPath, "Path")
	register(buildStar, "Star")
	register(buildIsConnected, "IsConnected")
	register(buildIsConnectedTo, "IsConnectedTo")

	// Functional
	register(buildFilter, "Filter")
	register(buildExecuteIf, "ExecuteIf")
	register(buildSelectMany, "SelectMany")
	register(buildOr, "Or")
	register(buildNamed, "Named")
	register(buildUnion, "Union")
	register(buildToMotive, "ToMotive")
	register(buildInside, "Inside")
	register(buildContains, "Contains")

	// Sequences, properties and elements
	register(buildRegexMotive, "RegexMotive")
	register(buildAminoSequenceString, "AminoSequenceString")
	register(buildMotiveSimilarity, "MotiveSimilarity")
	register(buildAtomProperty, "AtomProperty")
	register(buildDescriptor, "Descriptor")
	register(buildToElements, "ToElements")
	register(buildCommonAtoms, "CommonAtoms")
	register(buildMetadata, "Metadata")

	// Scope
	register(buildSymbol, "Symbol")
	register(buildLambda, "Lambda")
	register(buildFind, "Find")
	register(buildCurrentMotive, "CurrentMotive")
	register(buildStructureMotive, "StructureMotive")
	register(buildInputAsPattern, "InputAsPattern")

	// Cavities
	register(buildTunnels, "Tunnels")
	register(buildEmptySpace, "EmptySpace")
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared argument shapes
// ─────────────────────────────────────────────────────────────────────────────

func (d *decoder) sequences(e *expr, from int) ([]query.Sequence, error) {
	qs := make([]query.Sequence, 0, len(e.args)-from)
	for _, n := range e.args[from:] {
		q, err := d.sequence(n)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (d *decoder) scalars(e *expr, from int) ([]query.Scalar, error) {
	xs := make([]query.Scalar, 0, len(e.args)-from)
	for _, n := range e.args[from:] {
		x, err := d.scalar(n)
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
	}
	return xs, nil
}

// unarySeq decodes the single sequence argument of e.
func (d *decoder) unarySeq(e *expr) (query.Sequence, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	return d.sequence(e.args[0])
}

func (d *decoder) unaryScalar(e *expr) (query.Scalar, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	return d.scalar(e.args[0])
}

// seqLambda decodes [sequence, lambda].
func (d *decoder) seqLambda(e *expr) (query.Sequence, *query.Lambda, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, nil, err
	}
	q, err := d.sequence(e.args[0])
	if err != nil {
		return nil, nil, err
	}
	l, err := d.lambda(e.args[1])
	if err != nil {
		return nil, nil, err
	}
	return q, l, nil
}

// scalarName decodes [scalar, "name"].
func (d *decoder) scalarName(e *expr) (query.Scalar, string, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, "", err
	}
	m, err := d.scalar(e.args[0])
	if err != nil {
		return nil, "", err
	}
	name, err := e.str(1)
	return m, name, err
}

func complemented(e *expr, complement bool) (bool, error) {
	c, err := e.optBool("Complement")
	return complement || c, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Values and logic
// ─────────────────────────────────────────────────────────────────────────────

func buildValue(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	v, err := literal(e.args[0])
	if err != nil {
		return nil, err
	}
	return query.NewValue(v), nil
}

func buildList(d *decoder, e *expr) (query.Node, error) {
	items := make([]query.Node, 0, len(e.args))
	for _, n := range e.args {
		item, err := d.node(n)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return query.NewList(items...), nil
}

func relation(op query.RelationOp) builder {
	return func(d *decoder, e *expr) (query.Node, error) {
		if err := e.arity(2, 2); err != nil {
			return nil, err
		}
		xs, err := d.scalars(e, 0)
		if err != nil {
			return nil, err
		}
		return query.NewRelation(op, xs[0], xs[1]), nil
	}
}

func arithmetic(op query.ArithmeticOp) builder {
	return func(d *decoder, e *expr) (query.Node, error) {
		if err := e.arity(2, 2); err != nil {
			return nil, err
		}
		xs, err := d.scalars(e, 0)
		if err != nil {
			return nil, err
		}
		return query.NewArithmetic(op, xs[0], xs[1]), nil
	}
}

func logical(op query.LogicalOp) builder {
	return func(d *decoder, e *expr) (query.Node, error) {
		xs, err := d.scalars(e, 0)
		if err != nil {
			return nil, err
		}
		return query.NewLogical(op, xs...)
	}
}

func buildMinus(d *decoder, e *expr) (query.Node, error) {
	x, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewMinus(x), nil
}

func buildNot(d *decoder, e *expr) (query.Node, error) {
	x, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewLogicalNot(x), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Selectors
// ─────────────────────────────────────────────────────────────────────────────

func atomSet(complement bool) builder {
	return func(_ *decoder, e *expr) (query.Node, error) {
		els, err := e.strs(0)
		if err != nil {
			return nil, err
		}
		c, err := complemented(e, complement)
		if err != nil {
			return nil, err
		}
		return query.NewAtomSet(els, c), nil
	}
}

func atomNames(complement bool) builder {
	return func(_ *decoder, e *expr) (query.Node, error) {
		names, err := e.strs(0)
		if err != nil {
			return nil, err
		}
		c, err := complemented(e, complement)
		if err != nil {
			return nil, err
		}
		return query.NewAtomNames(names, c), nil
	}
}

func atomIds(complement bool) builder {
	return func(_ *decoder, e *expr) (query.Node, error) {
		ids, err := e.ints(0)
		if err != nil {
			return nil, err
		}
		c, err := complemented(e, complement)
		if err != nil {
			return nil, err
		}
		return query.NewAtomIds(ids, c), nil
	}
}

func residueSet(complement bool) builder {
	return func(_ *decoder, e *expr) (query.Node, error) {
		names, err := e.strs(0)
		if err != nil {
			return nil, err
		}
		c, err := complemented(e, complement)
		if err != nil {
			return nil, err
		}
		return query.NewResidueSet(names, c), nil
	}
}

func buildAtomIdRange(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	ids, err := e.ints(0)
	if err != nil {
		return nil, err
	}
	return query.NewAtomIdRange(ids[0], ids[1]), nil
}

func buildResidueIdRange(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(3, 3); err != nil {
		return nil, err
	}
	chain, err := e.str(0)
	if err != nil {
		return nil, err
	}
	ids, err := e.ints(1)
	if err != nil {
		return nil, err
	}
	return query.NewResidueIdRange(chain, ids[0], ids[1]), nil
}

func buildResidueIds(_ *decoder, e *expr) (query.Node, error) {
	ids, err := e.strs(0)
	if err != nil {
		return nil, err
	}
	return query.NewResidueIds(ids)
}

func buildModifiedResidues(_ *decoder, e *expr) (query.Node, error) {
	parents, err := e.strs(0)
	if err != nil {
		return nil, err
	}
	return query.NewModifiedResidues(parents), nil
}

func buildAminoAcids(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(0, 0); err != nil {
		return nil, err
	}
	charge, err := e.optString("ChargeType", "")
	if err != nil {
		return nil, err
	}
	return query.NewAminoAcids(charge)
}

func buildNotAminoAcid(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(0, 0); err != nil {
		return nil, err
	}
	w, err := e.optBool("IgnoreWaters")
	if err != nil {
		return nil, err
	}
	return query.NewNotAminoAcid(w), nil
}

func buildHetResidues(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(0, 0); err != nil {
		return nil, err
	}
	w, err := e.optBool("IgnoreWaters")
	if err != nil {
		return nil, err
	}
	return query.NewHetResidues(w), nil
}

func buildRing(_ *decoder, e *expr) (query.Node, error) {
	els, err := e.strs(0)
	if err != nil {
		return nil, err
	}
	return query.NewRing(els)
}

func buildOnRing(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 2); err != nil {
		return nil, err
	}
	q, err := d.node(e.args[0])
	if err != nil {
		return nil, err
	}
	atoms, ok := q.(*query.AtomSet)
	if !ok {
		return nil, failf(e.args[0], "OnRing: the first argument must be an AtomSet")
	}
	var ring *query.Ring
	if len(e.args) == 2 {
		r, err := d.node(e.args[1])
		if err != nil {
			return nil, err
		}
		if ring, ok = r.(*query.Ring); !ok {
			return nil, failf(e.args[1], "OnRing: the second argument must be a Ring")
		}
	}
	return query.NewOnRing(atoms, ring), nil
}

func buildChains(_ *decoder, e *expr) (query.Node, error) {
	ids, err := e.strs(0)
	if err != nil {
		return nil, err
	}
	return query.NewChains(ids...), nil
}

func buildGroupedAtoms(_ *decoder, e *expr) (query.Node, error) {
	els, err := e.strs(0)
	if err != nil {
		return nil, err
	}
	return query.NewGroupedAtoms(els...), nil
}

func buildSecondaryElement(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	kind, err := e.str(0)
	if err != nil {
		return nil, err
	}
	return query.NewSecondaryElement(kind)
}

// ─────────────────────────────────────────────────────────────────────────────
// Counting
// ─────────────────────────────────────────────────────────────────────────────

func buildCount(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	inner, err := d.sequence(e.args[0])
	if err != nil {
		return nil, err
	}
	where, err := d.scalar(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewCount(inner, where), nil
}

func buildSeqCount(d *decoder, e *expr) (query.Node, error) {
	q, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	return query.NewSeqCount(q), nil
}

func buildLength(d *decoder, e *expr) (query.Node, error) {
	q, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	return query.NewLength(q), nil
}

func buildAtomId(d *decoder, e *expr) (query.Node, error) {
	m, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewAtomId(m), nil
}

func buildAtomChain(d *decoder, e *expr) (query.Node, error) {
	m, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewAtomChain(m), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Spatial joins
// ─────────────────────────────────────────────────────────────────────────────

func buildNear(d *decoder, e *expr) (query.Node, error) {
	dist, err := e.reqFloat("Distance")
	if err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewNear(dist, qs...)
}

func buildCluster(d *decoder, e *expr) (query.Node, error) {
	dist, err := e.reqFloat("Distance")
	if err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewCluster(dist, qs...)
}

func buildDistanceCluster(d *decoder, e *expr) (query.Node, error) {
	lo, err := e.optMatrix("Min")
	if err != nil {
		return nil, err
	}
	hi, err := e.optMatrix("Max")
	if err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewDistanceCluster(qs, lo, hi)
}

func expandOptions(e *expr) (query.ExpandOptions, error) {
	var o query.ExpandOptions
	var err error
	if o.IgnoreWaters, err = e.optBool("IgnoreWaters"); err != nil {
		return o, err
	}
	if o.ExcludeBase, err = e.optBool("ExcludeBase"); err != nil {
		return o, err
	}
	o.YieldNamedDuplicates, err = e.optBool("YieldNamedDuplicates")
	return o, err
}

func expansion(build func(query.Sequence, float64, query.ExpandOptions) (query.Node, error)) builder {
	return func(d *decoder, e *expr) (query.Node, error) {
		inner, err := d.unarySeq(e)
		if err != nil {
			return nil, err
		}
		dist, err := e.reqFloat("Distance")
		if err != nil {
			return nil, err
		}
		opts, err := expandOptions(e)
		if err != nil {
			return nil, err
		}
		return build(inner, dist, opts)
	}
}

func buildFilled(d *decoder, e *expr) (query.Node, error) {
	inner, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	factor, err := e.optFloat("Factor", 1)
	if err != nil {
		return nil, err
	}
	w, err := e.optBool("IgnoreWaters")
	if err != nil {
		return nil, err
	}
	return query.NewFilled(inner, factor, w)
}

func buildNearestDistanceTo(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	m, err := d.scalar(e.args[0])
	if err != nil {
		return nil, err
	}
	inner, err := d.sequence(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewNearestDistanceTo(m, inner), nil
}

func buildStack2(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	var w query.StackWindow
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"MinCenterDistance", &w.MinCenterDistance},
		{"MaxCenterDistance", &w.MaxCenterDistance},
		{"MinProjectedDistance", &w.MinProjectedDistance},
		{"MaxProjectedDistance", &w.MaxProjectedDistance},
		{"MinAngle", &w.MinAngle},
		{"MaxAngle", &w.MaxAngle},
	} {
		v, err := e.reqFloat(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewStack2(w, qs[0], qs[1])
}

// ─────────────────────────────────────────────────────────────────────────────
// Topology
// ─────────────────────────────────────────────────────────────────────────────

func connected(d *decoder, e *expr) (query.Sequence, int, bool, error) {
	inner, err := d.unarySeq(e)
	if err != nil {
		return nil, 0, false, err
	}
	depth, err := e.optInt("Depth", 1)
	if err != nil {
		return nil, 0, false, err
	}
	named, err := e.optBool("YieldNamedDuplicates")
	return inner, depth, named, err
}

func buildConnectedAtoms(d *decoder, e *expr) (query.Node, error) {
	inner, depth, named, err := connected(d, e)
	if err != nil {
		return nil, err
	}
	return query.NewConnectedAtoms(inner, depth, named)
}

func buildConnectedResidues(d *decoder, e *expr) (query.Node, error) {
	inner, depth, named, err := connected(d, e)
	if err != nil {
		return nil, err
	}
	return query.NewConnectedResidues(inner, depth, named)
}

func buildPath(d *decoder, e *expr) (query.Node, error) {
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewPath(qs...)
}

func buildStar(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, -1); err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewStar(qs[0], qs[1:]...), nil
}

func buildIsConnected(d *decoder, e *expr) (query.Node, error) {
	where, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewIsConnected(where), nil
}

func buildIsConnectedTo(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	where, err := d.scalar(e.args[0])
	if err != nil {
		return nil, err
	}
	inner, err := d.sequence(e.args[1])
	if err != nil {
		return nil, err
	}
	c, err := e.optBool("Complement")
	if err != nil {
		return nil, err
	}
	return query.NewIsConnectedTo(where, inner, c), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Functional
// ─────────────────────────────────────────────────────────────────────────────

func buildFilter(d *decoder, e *expr) (query.Node, error) {
	q, l, err := d.seqLambda(e)
	if err != nil {
		return nil, err
	}
	return query.NewFilter(q, l)
}

func buildExecuteIf(d *decoder, e *expr) (query.Node, error) {
	q, l, err := d.seqLambda(e)
	if err != nil {
		return nil, err
	}
	return query.NewExecuteIf(q, l)
}

func buildSelectMany(d *decoder, e *expr) (query.Node, error) {
	q, l, err := d.seqLambda(e)
	if err != nil {
		return nil, err
	}
	return query.NewSelectMany(q, l), nil
}

func buildOr(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, -1); err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewOr(qs...)
}

func buildNamed(d *decoder, e *expr) (query.Node, error) {
	q, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	return query.NewNamed(q), nil
}

func buildUnion(d *decoder, e *expr) (query.Node, error) {
	q, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	return query.NewUnion(q), nil
}

func buildToMotive(d *decoder, e *expr) (query.Node, error) {
	q, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	return query.NewToMotive(q), nil
}

func buildInside(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	return query.NewInside(qs[0], qs[1]), nil
}

func buildContains(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	where, err := d.scalar(e.args[0])
	if err != nil {
		return nil, err
	}
	what, err := d.sequence(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewContains(where, what), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sequences, properties and elements
// ─────────────────────────────────────────────────────────────────────────────

func buildRegexMotive(d *decoder, e *expr) (query.Node, error) {
	pattern, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	name, err := e.optString("Type", "Amino")
	if err != nil {
		return nil, err
	}
	kind, err := query.ParseChainKind(name)
	if err != nil {
		return nil, err
	}
	return query.NewRegexMotive(pattern, kind), nil
}

func buildAminoSequenceString(d *decoder, e *expr) (query.Node, error) {
	m, err := d.unaryScalar(e)
	if err != nil {
		return nil, err
	}
	return query.NewAminoSequenceString(m), nil
}

func buildMotiveSimilarity(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(3, 3); err != nil {
		return nil, err
	}
	name, err := e.str(0)
	if err != nil {
		return nil, err
	}
	kind, err := query.ParseSimilarityKind(name)
	if err != nil {
		return nil, err
	}
	xs, err := d.scalars(e, 1)
	if err != nil {
		return nil, err
	}
	return query.NewMotiveSimilarity(kind, xs[0], xs[1]), nil
}

func buildAtomProperty(d *decoder, e *expr) (query.Node, error) {
	m, name, err := d.scalarName(e)
	if err != nil {
		return nil, err
	}
	return query.NewAtomProperty(m, name), nil
}

func buildDescriptor(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	name, err := e.str(0)
	if err != nil {
		return nil, err
	}
	m, err := d.scalar(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewDescriptor(name, m), nil
}

func buildToElements(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	name, err := e.str(0)
	if err != nil {
		return nil, err
	}
	kind, err := query.ParseElementKind(name)
	if err != nil {
		return nil, err
	}
	inner, err := d.sequence(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewToElements(kind, inner), nil
}

func buildCommonAtoms(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	id, err := e.str(0)
	if err != nil {
		return nil, err
	}
	return query.NewCommonAtoms(id), nil
}

func buildMetadata(d *decoder, e *expr) (query.Node, error) {
	m, name, err := d.scalarName(e)
	if err != nil {
		return nil, err
	}
	return query.NewMetadata(m, name)
}

func hasMetadata(prop string, matchAny bool) builder {
	return func(d *decoder, e *expr) (query.Node, error) {
		if err := e.arity(2, -1); err != nil {
			return nil, err
		}
		m, err := d.scalar(e.args[0])
		if err != nil {
			return nil, err
		}
		values, err := e.strs(1)
		if err != nil {
			return nil, err
		}
		return query.NewHasMetadata(prop, matchAny, m, values...)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scope
// ─────────────────────────────────────────────────────────────────────────────

func buildSymbol(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	name, err := e.str(0)
	if err != nil {
		return nil, err
	}
	return query.NewSymbol(name), nil
}

// buildLambda decodes args [params, body]; params is a name or a list of
// names.
func buildLambda(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	head := &expr{op: e.op, node: e.node, args: e.args[:1]}
	params, err := head.strs(0)
	if err != nil {
		return nil, err
	}
	body, err := d.node(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewLambda(params, body)
}

func buildFind(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	inner, err := d.sequence(e.args[0])
	if err != nil {
		return nil, err
	}
	source, err := d.scalar(e.args[1])
	if err != nil {
		return nil, err
	}
	return query.NewFind(inner, source), nil
}

func buildCurrentMotive(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(0, 0); err != nil {
		return nil, err
	}
	return query.NewCurrentMotive(), nil
}

func buildStructureMotive(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(1, 1); err != nil {
		return nil, err
	}
	id, err := e.str(0)
	if err != nil {
		return nil, err
	}
	return query.NewStructureMotive(id), nil
}

func buildInputAsPattern(_ *decoder, e *expr) (query.Node, error) {
	if err := e.arity(0, 0); err != nil {
		return nil, err
	}
	return query.NewInputAsPattern(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cavities
// ─────────────────────────────────────────────────────────────────────────────

func buildTunnels(d *decoder, e *expr) (query.Node, error) {
	if err := e.arity(2, 2); err != nil {
		return nil, err
	}
	qs, err := d.sequences(e, 0)
	if err != nil {
		return nil, err
	}
	probe, err := e.optFloat("ProbeRadius", 0)
	if err != nil {
		return nil, err
	}
	interior, err := e.optFloat("InteriorThreshold", 0)
	if err != nil {
		return nil, err
	}
	bottleneck, err := e.optFloat("BottleneckRadius", 0)
	if err != nil {
		return nil, err
	}
	return query.NewTunnels(qs[0], qs[1], probe, interior, bottleneck), nil
}

func buildEmptySpace(d *decoder, e *expr) (query.Node, error) {
	where, err := d.unarySeq(e)
	if err != nil {
		return nil, err
	}
	probe, err := e.optFloat("ProbeRadius", 0)
	if err != nil {
		return nil, err
	}
	interior, err := e.optFloat("InteriorThreshold", 0)
	if err != nil {
		return nil, err
	}
	return query.NewEmptySpace(where, probe, interior), nil
}
