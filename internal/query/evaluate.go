package query

import (
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// Result is the outcome of one top-level query: the matches of a sequence
// query or the value of a scalar one.
type Result struct {
	Signature string
	Motives   []*motive.Motive
	Value     any
	Scalar    bool
}

// Execute evaluates n in ec.  Scalar results of type *Lambda or []any are
// returned as is.
func (ec *ExecutionContext) Execute(n Node) (Result, error) {
	if err := ec.checkpoint(); err != nil {
		return Result{}, err
	}
	res := Result{Signature: n.Signature()}
	switch q := n.(type) {
	case Sequence:
		ms, err := ec.Motives(q)
		if err != nil {
			return Result{}, err
		}
		res.Motives = ms
	case Scalar:
		v, err := q.eval(ec)
		if err != nil {
			return Result{}, err
		}
		res.Value, res.Scalar = v, true
	default:
		return Result{}, errors.InvalidConfig("%s cannot be evaluated.", n.Signature())
	}
	return res, nil
}

// Evaluate runs n against s in a fresh execution context.
func Evaluate(s *structure.Structure, n Node, opts ...Option) (Result, error) {
	return NewExecutionContext(s, opts...).Execute(n)
}

// Matches evaluates a sequence query and returns its motives.
func Matches(s *structure.Structure, q Sequence, opts ...Option) ([]*motive.Motive, error) {
	res, err := Evaluate(s, q, opts...)
	if err != nil {
		return nil, err
	}
	return res.Motives, nil
}
