// Package query implements the motive query execution engine: typed query
// nodes, the execution context with its symbol scopes and memo cache, and
// the operators that select, traverse, join and combine motives.
//
// Nodes are immutable and safe to share between goroutines.  An
// ExecutionContext is not; evaluate independent structures with one
// context each.
package query

import (
	"github.com/turtacn/motivequery/internal/domain/motive"
)

// Node is a typed query expression.  Every node has a canonical signature
// that is both its display text and its memo cache key.
type Node interface {
	Signature() string
	Children() []Node
}

// Sequence nodes produce an ordered list of motives.
type Sequence interface {
	Node
	run(ec *ExecutionContext) ([]*motive.Motive, error)
}

// Scalar nodes produce one value.  Values are nil, bool, int, float64,
// string, *motive.Motive, []any or *Lambda.
type Scalar interface {
	Node
	eval(ec *ExecutionContext) (any, error)
}

// Countable sequences can count their matches inside a motive without
// materialising them.
type Countable interface {
	Sequence
	count(ec *ExecutionContext, where *motive.Motive) (int, error)
}

// uncached marks sequences that must bypass the memo cache.
type uncached interface {
	bypassCache()
}

func seqChildren(qs []Sequence) []Node {
	out := make([]Node, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}

func scalarChildren(qs []Scalar) []Node {
	out := make([]Node, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}

// Walk calls fn for n and every node below it, depth first.  Returning
// false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// freeSymbols reports whether n references a symbol it does not bind
// itself, or the current motive.  Such sequences depend on evaluation
// state and are never memoised.
func freeSymbols(n Node, bound map[string]int) bool {
	switch q := n.(type) {
	case *Symbol:
		return bound[q.name] == 0
	case *CurrentMotive:
		return true
	case *Lambda:
		for _, p := range q.params {
			bound[p]++
		}
		free := freeSymbols(q.body, bound)
		for _, p := range q.params {
			bound[p]--
		}
		return free
	}
	for _, c := range n.Children() {
		if freeSymbols(c, bound) {
			return true
		}
	}
	return false
}
