package query_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/query"
)

// run evaluates a sequence query in a fresh context.
func run(t *testing.T, s *structure.Structure, q query.Sequence, opts ...query.Option) []*motive.Motive {
	t.Helper()
	ms, err := query.Matches(s, q, opts...)
	require.NoError(t, err)
	return ms
}

// eval evaluates a scalar query in a fresh context.
func eval(t *testing.T, s *structure.Structure, q query.Scalar, opts ...query.Option) any {
	t.Helper()
	res, err := query.Evaluate(s, q, opts...)
	require.NoError(t, err)
	require.True(t, res.Scalar)
	return res.Value
}

// ids renders motives as sorted atom id lists, sorted by their first id.
func ids(ms []*motive.Motive) [][]int {
	out := make([][]int, len(ms))
	for i, m := range ms {
		out[i] = m.Atoms().IDs()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

func atomSet(elements ...string) *query.AtomSet { return query.NewAtomSet(elements, false) }

func lambda(t *testing.T, param string, body query.Node) *query.Lambda {
	t.Helper()
	l, err := query.NewLambda([]string{param}, body)
	require.NoError(t, err)
	return l
}
