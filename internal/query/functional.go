package query

import (
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/pkg/errors"
)

func unary(name string, l *Lambda) error {
	if l == nil {
		return errors.InvalidConfig("%s: a function is required.", name)
	}
	if l.Arity() != 1 {
		return errors.InvalidConfig("%s: the function must take exactly 1 argument, %s takes %d.", name, l.Signature(), l.Arity())
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter / ExecuteIf
// ─────────────────────────────────────────────────────────────────────────────

// Filter keeps the matches of inner the predicate accepts.
type Filter struct {
	inner Sequence
	pred  *Lambda
}

// NewFilter builds Filter[inner,pred].
func NewFilter(inner Sequence, pred *Lambda) (*Filter, error) {
	if err := unary("Filter", pred); err != nil {
		return nil, err
	}
	return &Filter{inner: inner, pred: pred}, nil
}

func (q *Filter) Signature() string { return call("Filter", q.inner.Signature(), q.pred.Signature()) }
func (q *Filter) Children() []Node  { return []Node{q.inner, q.pred} }

func (q *Filter) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	var out []*motive.Motive
	for _, m := range ms {
		leave := ec.withMotive(m)
		v, err := q.pred.apply(ec, m)
		leave()
		if err != nil {
			return nil, err
		}
		ok, err := truthy(q.pred, v)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ExecuteIf evaluates inner only when the predicate accepts the motive of
// the whole current structure.
type ExecuteIf struct {
	inner Sequence
	pred  *Lambda
}

// NewExecuteIf builds ExecuteIf[inner,pred].
func NewExecuteIf(inner Sequence, pred *Lambda) (*ExecuteIf, error) {
	if err := unary("ExecuteIf", pred); err != nil {
		return nil, err
	}
	return &ExecuteIf{inner: inner, pred: pred}, nil
}

func (q *ExecuteIf) Signature() string {
	return call("ExecuteIf", q.inner.Signature(), q.pred.Signature())
}
func (q *ExecuteIf) Children() []Node { return []Node{q.inner, q.pred} }

func (q *ExecuteIf) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	whole := cur.StructureMotive()
	leave := ec.withMotive(whole)
	v, err := q.pred.apply(ec, whole)
	leave()
	if err != nil {
		return nil, err
	}
	ok, err := truthy(q.pred, v)
	if err != nil || !ok {
		return nil, err
	}
	return ec.Motives(q.inner)
}

// ─────────────────────────────────────────────────────────────────────────────
// SelectMany
// ─────────────────────────────────────────────────────────────────────────────

// SelectMany maps every match of src to a sequence and flattens the
// results, keeping the first occurrence of each motive.
type SelectMany struct {
	src      Sequence
	selector *Lambda
}

// NewSelectMany builds SelectMany[src,selector].  The selector must have a
// sequence body.
func NewSelectMany(src Sequence, selector *Lambda) *SelectMany {
	return &SelectMany{src: src, selector: selector}
}

func (q *SelectMany) Signature() string {
	return call("SelectMany", q.src.Signature(), q.selector.Signature())
}
func (q *SelectMany) Children() []Node { return []Node{q.src, q.selector} }

func (q *SelectMany) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	if err := unary("SelectMany", q.selector); err != nil {
		return nil, err
	}
	ms, err := ec.Motives(q.src)
	if err != nil {
		return nil, err
	}
	seen := motive.NewSet()
	var out []*motive.Motive
	for _, m := range ms {
		leave := ec.withMotive(m)
		v, err := q.selector.apply(ec, m)
		leave()
		if err != nil {
			return nil, err
		}
		xs, ok := v.([]*motive.Motive)
		if !ok {
			return nil, errors.TypeMismatch("The selector function of SelectMany must return a sequence of motives, got %s instead.", typeName(v))
		}
		for _, x := range xs {
			if seen.Add(x) {
				out = append(out, x)
			}
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Or / Named
// ─────────────────────────────────────────────────────────────────────────────

// Or concatenates the matches of its operands, keeping first occurrences.
type Or struct{ qs []Sequence }

// NewOr builds Or[q1,q2,...].  Repeated operands are dropped and a single
// operand is returned as is.
func NewOr(qs ...Sequence) (Sequence, error) {
	var uniq []Sequence
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		if o, ok := q.(*Or); ok {
			for _, x := range o.qs {
				if _, dup := seen[x.Signature()]; !dup {
					seen[x.Signature()] = struct{}{}
					uniq = append(uniq, x)
				}
			}
			continue
		}
		if _, dup := seen[q.Signature()]; !dup {
			seen[q.Signature()] = struct{}{}
			uniq = append(uniq, q)
		}
	}
	switch len(uniq) {
	case 0:
		return nil, errors.InvalidConfig("Or: at least one operand required.")
	case 1:
		return uniq[0], nil
	}
	return &Or{qs: uniq}, nil
}

func (q *Or) Signature() string { return call("Or", signatures(q.qs)...) }
func (q *Or) Children() []Node  { return seqChildren(q.qs) }

func (q *Or) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	seen := motive.NewSet()
	var out []*motive.Motive
	for _, s := range q.qs {
		ms, err := ec.Motives(s)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			if seen.Add(m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// Named tags every match of inner with its own smallest atom id.
type Named struct{ inner Sequence }

// NewNamed builds Named[inner].
func NewNamed(inner Sequence) *Named { return &Named{inner: inner} }

func (q *Named) Signature() string { return call("Named", q.inner.Signature()) }
func (q *Named) Children() []Node  { return []Node{q.inner} }

func (q *Named) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, len(ms))
	for i, m := range ms {
		out[i] = motive.Named(m)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Union / ToMotive
// ─────────────────────────────────────────────────────────────────────────────

// collapse merges ms into one motive.  It fails when ms hold no atoms or
// come from different contexts.
func collapse(q Node, ms []*motive.Motive) (*motive.Motive, error) {
	if len(ms) == 0 {
		return nil, errors.Runtime("Cannot convert the sequence '%s' to a motive because it contains no atoms.", q.Signature())
	}
	ctx := ms[0].Context()
	for _, m := range ms[1:] {
		if m.Context() != ctx {
			return nil, errors.Runtime("Cannot convert the sequence '%s' to a motive because the individual motives come from different contexts.", q.Signature())
		}
	}
	x := motive.Merge(ms...)
	if x.Len() == 0 {
		return nil, errors.Runtime("Cannot convert the sequence '%s' to a motive because it contains no atoms.", q.Signature())
	}
	return x, nil
}

// Union collapses the matches of inner into a single motive.
type Union struct{ inner Sequence }

// NewUnion builds Union[inner].
func NewUnion(inner Sequence) *Union { return &Union{inner: inner} }

func (q *Union) Signature() string { return call("Union", q.inner.Signature()) }
func (q *Union) Children() []Node  { return []Node{q.inner} }

func (q *Union) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	x, err := collapse(q, ms)
	if err != nil {
		return nil, err
	}
	return []*motive.Motive{x}, nil
}

// ToMotive is the scalar form of Union.
type ToMotive struct{ inner Sequence }

// NewToMotive builds ToMotive[inner].
func NewToMotive(inner Sequence) *ToMotive { return &ToMotive{inner: inner} }

func (q *ToMotive) Signature() string { return call("ToMotive", q.inner.Signature()) }
func (q *ToMotive) Children() []Node  { return []Node{q.inner} }

func (q *ToMotive) eval(ec *ExecutionContext) (any, error) {
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	return collapse(q, ms)
}
