package query

import (
	"strings"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Symbol
// ─────────────────────────────────────────────────────────────────────────────

// Symbol reads the innermost binding of a lambda parameter.
type Symbol struct{ name string }

// NewSymbol references the symbol name (case-insensitive).
func NewSymbol(name string) *Symbol { return &Symbol{name: strings.ToLower(name)} }

func (q *Symbol) Signature() string { return call("Symbol", quote(q.name)) }
func (q *Symbol) Children() []Node  { return nil }

func (q *Symbol) eval(ec *ExecutionContext) (any, error) { return ec.lookup(q.name) }

// ─────────────────────────────────────────────────────────────────────────────
// Lambda
// ─────────────────────────────────────────────────────────────────────────────

// Lambda is a function value.  Evaluating the node yields the lambda
// itself; operators such as Filter apply it to motives.
type Lambda struct {
	params []string
	body   Node
}

// NewLambda builds a lambda over params.  body must be a Scalar or a
// Sequence.
func NewLambda(params []string, body Node) (*Lambda, error) {
	switch body.(type) {
	case Scalar, Sequence:
	default:
		return nil, errors.InvalidConfig("Lambda: the body %s is not evaluable.", body.Signature())
	}
	ps := make([]string, len(params))
	for i, p := range params {
		ps[i] = strings.ToLower(strings.TrimSpace(p))
		if ps[i] == "" {
			return nil, errors.InvalidConfig("Lambda: parameter %d has no name.", i+1)
		}
	}
	return &Lambda{params: ps, body: body}, nil
}

// Arity returns the number of parameters.
func (q *Lambda) Arity() int { return len(q.params) }

func (q *Lambda) Signature() string {
	return call("Lambda", "("+strings.Join(q.params, ",")+")", q.body.Signature())
}
func (q *Lambda) Children() []Node { return []Node{q.body} }

func (q *Lambda) eval(_ *ExecutionContext) (any, error) { return q, nil }

// apply binds args to the parameters and evaluates the body.  Sequence
// bodies yield []*motive.Motive.  Bindings are released on every path.
func (q *Lambda) apply(ec *ExecutionContext, args ...any) (any, error) {
	if len(args) != len(q.params) {
		return nil, errors.InvalidConfig("Lambda: expected %d argument(s), got %d.", len(q.params), len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, errors.Runtime("The argument '%s' is not defined.", q.params[i])
		}
	}
	defer ec.bind(q.params, args)()

	switch body := q.body.(type) {
	case Sequence:
		return ec.Motives(body)
	case Scalar:
		return body.eval(ec)
	}
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Find
// ─────────────────────────────────────────────────────────────────────────────

// Find evaluates inner inside the sub-structure spanned by the motive
// source evaluates to, and maps the results back to the structure that
// motive belongs to.
type Find struct {
	inner  Sequence
	source Scalar
}

// NewFind builds Find[inner,source].
func NewFind(inner Sequence, source Scalar) *Find { return &Find{inner: inner, source: source} }

func (q *Find) Signature() string { return call("Find", q.inner.Signature(), q.source.Signature()) }
func (q *Find) Children() []Node  { return []Node{q.inner, q.source} }
func (q *Find) bypassCache()      {}

func (q *Find) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	if _, err := ec.Current(); err != nil {
		return nil, err
	}
	src, err := ec.evalMotive(q.source)
	if err != nil {
		return nil, err
	}
	outer := src.Context()
	sub, err := outer.Sub(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeQueryRuntime, "Find: cannot build the sub-structure of %s", src)
	}
	leave := ec.enter(sub)
	ms, err := ec.Motives(q.inner)
	leave()
	if err != nil {
		return nil, err
	}
	out := make([]*motive.Motive, len(ms))
	for i, m := range ms {
		out[i] = m.WithContext(outer)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Context accessors
// ─────────────────────────────────────────────────────────────────────────────

// InputAsPattern yields the motive of the whole current structure.
type InputAsPattern struct{}

// NewInputAsPattern builds InputAsPattern[].
func NewInputAsPattern() *InputAsPattern { return &InputAsPattern{} }

func (q *InputAsPattern) Signature() string { return "InputAsPattern[]" }
func (q *InputAsPattern) Children() []Node  { return nil }

func (q *InputAsPattern) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	return []*motive.Motive{cur.StructureMotive()}, nil
}

// CurrentMotive yields the motive set by the enclosing Filter, SelectMany
// or ExecuteIf, or nothing.
type CurrentMotive struct{}

// NewCurrentMotive builds CurrentMotive[].
func NewCurrentMotive() *CurrentMotive { return &CurrentMotive{} }

func (q *CurrentMotive) Signature() string { return "CurrentMotive[]" }
func (q *CurrentMotive) Children() []Node  { return nil }

func (q *CurrentMotive) eval(ec *ExecutionContext) (any, error) {
	if ec.motive == nil {
		return nil, nil
	}
	return ec.motive, nil
}

// StructureMotive yields the whole-structure motive of a structure in the
// environment.
type StructureMotive struct{ id string }

// NewStructureMotive builds StructureMotive["id"].
func NewStructureMotive(id string) *StructureMotive { return &StructureMotive{id: id} }

func (q *StructureMotive) Signature() string { return call("StructureMotive", quote(q.id)) }
func (q *StructureMotive) Children() []Node  { return nil }

func (q *StructureMotive) eval(ec *ExecutionContext) (any, error) {
	c, ok := ec.env[strings.ToLower(q.id)]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeQueryUnknownStruct,
			"There is no structure with id '%s' in the current ExecutionContext.", q.id)
	}
	return c.StructureMotive(), nil
}
