package query

import (
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/pkg/errors"
)

// Count counts the matches of inner inside the motive where evaluates to.
// Countable selectors answer directly; anything else is evaluated in the
// sub-structure of that motive.
type Count struct {
	inner Sequence
	where Scalar
}

// NewCount builds Count[inner,where].
func NewCount(inner Sequence, where Scalar) *Count { return &Count{inner: inner, where: where} }

func (q *Count) Signature() string { return call("Count", q.inner.Signature(), q.where.Signature()) }
func (q *Count) Children() []Node  { return []Node{q.inner, q.where} }

func (q *Count) eval(ec *ExecutionContext) (any, error) {
	where, err := ec.evalMotive(q.where)
	if err != nil {
		return nil, err
	}
	return countIn(ec, q.inner, where)
}

func countIn(ec *ExecutionContext, what Sequence, where *motive.Motive) (int, error) {
	if c, ok := what.(Countable); ok {
		return c.count(ec, where)
	}
	sub, err := where.Context().Sub(where)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrCodeQueryRuntime, "Count: cannot build the sub-structure of %s", where)
	}
	defer ec.enter(sub)()
	ms, err := ec.Motives(what)
	if err != nil {
		return 0, err
	}
	return len(ms), nil
}

// SeqCount counts the matches of inner, always evaluating it afresh.
type SeqCount struct{ inner Sequence }

// NewSeqCount builds SeqCount(inner).
func NewSeqCount(inner Sequence) *SeqCount { return &SeqCount{inner: inner} }

func (q *SeqCount) Signature() string { return "SeqCount(" + q.inner.Signature() + ")" }
func (q *SeqCount) Children() []Node  { return []Node{q.inner} }

func (q *SeqCount) eval(ec *ExecutionContext) (any, error) {
	ms, err := q.inner.run(ec)
	if err != nil {
		return nil, err
	}
	return len(ms), nil
}

// Length counts the matches of inner through the memo cache.
type Length struct{ inner Sequence }

// NewLength builds Length[inner].
func NewLength(inner Sequence) *Length { return &Length{inner: inner} }

func (q *Length) Signature() string { return call("Length", q.inner.Signature()) }
func (q *Length) Children() []Node  { return []Node{q.inner} }

func (q *Length) eval(ec *ExecutionContext) (any, error) {
	ms, err := ec.Motives(q.inner)
	if err != nil {
		return nil, err
	}
	return len(ms), nil
}

// AtomId yields the smallest atom id of a motive.
type AtomId struct{ m Scalar }

// NewAtomId builds AtomId[m].
func NewAtomId(m Scalar) *AtomId { return &AtomId{m: m} }

func (q *AtomId) Signature() string { return call("AtomId", q.m.Signature()) }
func (q *AtomId) Children() []Node  { return []Node{q.m} }

func (q *AtomId) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	a, ok := m.Atoms().Min()
	if !ok {
		return nil, nil
	}
	return a.ID, nil
}

// AtomChain yields the chain of the atom with the smallest id.
type AtomChain struct{ m Scalar }

// NewAtomChain builds AtomChain[m].
func NewAtomChain(m Scalar) *AtomChain { return &AtomChain{m: m} }

func (q *AtomChain) Signature() string { return call("AtomChain", q.m.Signature()) }
func (q *AtomChain) Children() []Node  { return []Node{q.m} }

func (q *AtomChain) eval(ec *ExecutionContext) (any, error) {
	m, err := ec.evalMotive(q.m)
	if err != nil {
		return nil, err
	}
	a, ok := m.Atoms().Min()
	if !ok {
		return nil, nil
	}
	return a.Chain, nil
}
