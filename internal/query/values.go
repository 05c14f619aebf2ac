package query

import (
	"math"
	"strings"

	"github.com/turtacn/motivequery/pkg/errors"
)

// epsilon is the tolerance of Equal and NotEqual when either side is a
// float.
const epsilon = 1e-9

// ─────────────────────────────────────────────────────────────────────────────
// Literals
// ─────────────────────────────────────────────────────────────────────────────

// Value is a literal.  Supported values are nil, bool, int, float64 and
// string.
type Value struct{ v any }

// NewValue wraps a literal.  Other integer and float kinds are normalised
// to int and float64.
func NewValue(v any) *Value {
	switch x := v.(type) {
	case int32:
		v = int(x)
	case int64:
		v = int(x)
	case float32:
		v = float64(x)
	}
	return &Value{v: v}
}

func (q *Value) Signature() string {
	if s, ok := q.v.(string); ok {
		return quote(s)
	}
	return formatValue(q.v)
}
func (q *Value) Children() []Node                       { return nil }
func (q *Value) eval(_ *ExecutionContext) (any, error) { return q.v, nil }

// List is a literal list of nodes.  It evaluates to the nodes themselves,
// not their values.
type List struct{ items []Node }

// NewList builds List[...].
func NewList(items ...Node) *List { return &List{items: items} }

// Items returns the list elements.
func (q *List) Items() []Node { return q.items }

func (q *List) Signature() string { return call("List", signatures(q.items)...) }
func (q *List) Children() []Node  { return q.items }

func (q *List) eval(_ *ExecutionContext) (any, error) {
	out := make([]any, len(q.items))
	for i, n := range q.items {
		out[i] = n
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Relations
// ─────────────────────────────────────────────────────────────────────────────

// RelationOp is a comparison operator.
type RelationOp int

const (
	Equal RelationOp = iota
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

var relationNames = [...]string{"Equal", "NotEqual", "Less", "LessEqual", "Greater", "GreaterEqual"}

func (op RelationOp) String() string { return relationNames[op] }

// ParseRelationOp resolves an operator by name.
func ParseRelationOp(name string) (RelationOp, bool) {
	for i, n := range relationNames {
		if strings.EqualFold(n, name) {
			return RelationOp(i), true
		}
	}
	return 0, false
}

// Relation compares two values.  Equal and NotEqual accept nothing on
// either side; the ordering relations yield nothing when a side is
// nothing.  Strings compare ordinally.
type Relation struct {
	op          RelationOp
	left, right Scalar
}

// NewRelation builds op[left,right].
func NewRelation(op RelationOp, left, right Scalar) *Relation {
	return &Relation{op: op, left: left, right: right}
}

func (q *Relation) Signature() string {
	return call(q.op.String(), q.left.Signature(), q.right.Signature())
}
func (q *Relation) Children() []Node { return []Node{q.left, q.right} }

func (q *Relation) eval(ec *ExecutionContext) (any, error) {
	x, err := q.left.eval(ec)
	if err != nil {
		return nil, err
	}
	y, err := q.right.eval(ec)
	if err != nil {
		return nil, err
	}
	switch q.op {
	case Equal, NotEqual:
		eq, err := equalValues(x, y)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeQueryTypeMismatch, "%s", q.Signature())
		}
		return eq == (q.op == Equal), nil
	}
	if x == nil || y == nil {
		return nil, nil
	}
	c, err := compareValues(x, y)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeQueryTypeMismatch, "%s", q.Signature())
	}
	switch q.op {
	case Less:
		return c < 0, nil
	case LessEqual:
		return c <= 0, nil
	case Greater:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func equalValues(x, y any) (bool, error) {
	if x == nil || y == nil {
		return x == nil && y == nil, nil
	}
	xf, xnum := toFloat(x)
	yf, ynum := toFloat(y)
	if xnum && ynum {
		_, xint := x.(int)
		_, yint := y.(int)
		if xint && yint {
			return x.(int) == y.(int), nil
		}
		return math.Abs(xf-yf) <= epsilon, nil
	}
	switch a := x.(type) {
	case string:
		b, ok := y.(string)
		return ok && a == b, nil
	case bool:
		b, ok := y.(bool)
		return ok && a == b, nil
	}
	if xnum || ynum {
		return false, nil
	}
	return x == y, nil
}

func compareValues(x, y any) (int, error) {
	if a, ok := x.(string); ok {
		b, ok := y.(string)
		if !ok {
			return 0, errors.TypeMismatch("cannot compare %s with %s.", typeName(x), typeName(y))
		}
		return strings.Compare(a, b), nil
	}
	a, aok := toFloat(x)
	b, bok := toFloat(y)
	if !aok || !bok {
		return 0, errors.TypeMismatch("cannot compare %s with %s.", typeName(x), typeName(y))
	}
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	}
	return 0, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Arithmetic
// ─────────────────────────────────────────────────────────────────────────────

// ArithmeticOp is a binary arithmetic operator.
type ArithmeticOp int

const (
	Plus ArithmeticOp = iota
	Subtract
	Times
	Divide
	Power
)

var arithmeticNames = [...]string{"Plus", "Subtract", "Times", "Divide", "Power"}

func (op ArithmeticOp) String() string { return arithmeticNames[op] }

// ParseArithmeticOp resolves an operator by name.
func ParseArithmeticOp(name string) (ArithmeticOp, bool) {
	for i, n := range arithmeticNames {
		if strings.EqualFold(n, name) {
			return ArithmeticOp(i), true
		}
	}
	return 0, false
}

// Arithmetic combines two numbers.  Two ints stay integral (Divide
// truncates); anything else is computed in float64.  Nothing on either
// side yields nothing.
type Arithmetic struct {
	op          ArithmeticOp
	left, right Scalar
}

// NewArithmetic builds op[left,right].
func NewArithmetic(op ArithmeticOp, left, right Scalar) *Arithmetic {
	return &Arithmetic{op: op, left: left, right: right}
}

func (q *Arithmetic) Signature() string {
	return call(q.op.String(), q.left.Signature(), q.right.Signature())
}
func (q *Arithmetic) Children() []Node { return []Node{q.left, q.right} }

func (q *Arithmetic) eval(ec *ExecutionContext) (any, error) {
	x, err := q.left.eval(ec)
	if err != nil || x == nil {
		return nil, err
	}
	y, err := q.right.eval(ec)
	if err != nil || y == nil {
		return nil, err
	}
	if q.op == Plus {
		if a, ok := x.(string); ok {
			if b, ok := y.(string); ok {
				return a + b, nil
			}
		}
	}
	xi, xint := x.(int)
	yi, yint := y.(int)
	if xint && yint {
		return q.ints(xi, yi)
	}
	a, aok := toFloat(x)
	b, bok := toFloat(y)
	if !aok || !bok {
		return nil, errors.TypeMismatch("%s: cannot apply to %s and %s.", q.Signature(), typeName(x), typeName(y))
	}
	switch q.op {
	case Plus:
		return a + b, nil
	case Subtract:
		return a - b, nil
	case Times:
		return a * b, nil
	case Divide:
		return a / b, nil
	default:
		return math.Pow(a, b), nil
	}
}

func (q *Arithmetic) ints(a, b int) (any, error) {
	switch q.op {
	case Plus:
		return a + b, nil
	case Subtract:
		return a - b, nil
	case Times:
		return a * b, nil
	case Divide:
		if b == 0 {
			return nil, errors.Runtime("%s: division by zero.", q.Signature())
		}
		return a / b, nil
	}
	if b < 0 {
		return math.Pow(float64(a), float64(b)), nil
	}
	r := 1
	for base := a; b > 0; b >>= 1 {
		if b&1 == 1 {
			r *= base
		}
		base *= base
	}
	return r, nil
}

// Minus negates a number.
type Minus struct{ x Scalar }

// NewMinus builds Minus[x].
func NewMinus(x Scalar) *Minus { return &Minus{x: x} }

func (q *Minus) Signature() string { return call("Minus", q.x.Signature()) }
func (q *Minus) Children() []Node  { return []Node{q.x} }

func (q *Minus) eval(ec *ExecutionContext) (any, error) {
	v, err := q.x.eval(ec)
	if err != nil || v == nil {
		return nil, err
	}
	switch x := v.(type) {
	case int:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, errors.TypeMismatch("%s: expected a number, got %s.", q.Signature(), typeName(v))
}

// ─────────────────────────────────────────────────────────────────────────────
// Logic
// ─────────────────────────────────────────────────────────────────────────────

// LogicalOp is an n-ary boolean operator.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalXor
)

var logicalNames = [...]string{"LogicalAnd", "LogicalOr", "LogicalXor"}

func (op LogicalOp) String() string { return logicalNames[op] }

// ParseLogicalOp resolves an operator by name.
func ParseLogicalOp(name string) (LogicalOp, bool) {
	for i, n := range logicalNames {
		if strings.EqualFold(n, name) {
			return LogicalOp(i), true
		}
	}
	return 0, false
}

// Logical evaluates its operands from the last to the first.  And and Or
// short-circuit; an operand evaluating to nothing makes the result
// nothing.
type Logical struct {
	op LogicalOp
	xs []Scalar
}

// NewLogical builds op[x1,x2,...].
func NewLogical(op LogicalOp, xs ...Scalar) (*Logical, error) {
	if len(xs) == 0 {
		return nil, errors.InvalidConfig("%s: at least one operand is required.", op)
	}
	return &Logical{op: op, xs: xs}, nil
}

func (q *Logical) Signature() string { return call(q.op.String(), signatures(q.xs)...) }
func (q *Logical) Children() []Node  { return scalarChildren(q.xs) }

func (q *Logical) operand(ec *ExecutionContext, i int) (any, error) {
	v, err := q.xs[i].eval(ec)
	if err != nil || v == nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errors.TypeMismatch("%s: expected a boolean, got %s.", q.xs[i].Signature(), typeName(v))
	}
	return b, nil
}

func (q *Logical) eval(ec *ExecutionContext) (any, error) {
	if q.op == LogicalXor {
		first, err := q.operand(ec, 0)
		if err != nil || first == nil {
			return nil, err
		}
		r := first.(bool)
		for i := len(q.xs) - 1; i > 0; i-- {
			v, err := q.operand(ec, i)
			if err != nil || v == nil {
				return nil, err
			}
			r = r != v.(bool)
		}
		return r, nil
	}
	stop := q.op == LogicalOr
	for i := len(q.xs) - 1; i >= 0; i-- {
		v, err := q.operand(ec, i)
		if err != nil || v == nil {
			return nil, err
		}
		if v.(bool) == stop {
			return stop, nil
		}
	}
	return !stop, nil
}

// LogicalNot negates a boolean.
type LogicalNot struct{ x Scalar }

// NewLogicalNot builds LogicalNot[x].
func NewLogicalNot(x Scalar) *LogicalNot { return &LogicalNot{x: x} }

func (q *LogicalNot) Signature() string { return call("LogicalNot", q.x.Signature()) }
func (q *LogicalNot) Children() []Node  { return []Node{q.x} }

func (q *LogicalNot) eval(ec *ExecutionContext) (any, error) {
	v, err := q.x.eval(ec)
	if err != nil || v == nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errors.TypeMismatch("%s: expected a boolean, got %s.", q.Signature(), typeName(v))
	}
	return !b, nil
}

// truthy interprets a predicate result.  Nothing counts as false.
func truthy(q Node, v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	}
	return false, errors.TypeMismatch("%s: expected a boolean, got %s.", q.Signature(), typeName(v))
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived forms
// ─────────────────────────────────────────────────────────────────────────────

// NewContains builds the predicate "what occurs inside where", that is
// Greater[Count[what,where],0].
func NewContains(where Scalar, what Sequence) Scalar {
	return NewRelation(Greater, NewCount(what, where), NewValue(0))
}

// NewInside finds patterns inside every motive of where, that is
// SelectMany[where,Lambda[($m),Find[patterns,Symbol["$m"]]]].
func NewInside(patterns, where Sequence) *SelectMany {
	l := &Lambda{params: []string{"$m"}, body: NewFind(patterns, NewSymbol("$m"))}
	return NewSelectMany(where, l)
}
