package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

func TestFilter(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	residues := query.NewResidueSet(nil, false)

	withOxygen := must[*query.Filter](t)(query.NewFilter(residues,
		lambda(t, "m", query.NewContains(query.NewSymbol("m"), atomSet("O")))))
	assert.Equal(t, [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}, {13}}, ids(run(t, s, withOxygen)))

	// CurrentMotive sees the motive under test.
	withNitrogen := must[*query.Filter](t)(query.NewFilter(residues,
		lambda(t, "m", query.NewContains(query.NewCurrentMotive(), atomSet("N")))))
	assert.Len(t, run(t, s, withNitrogen), 3)

	_, err := query.NewFilter(residues, must[*query.Lambda](t)(query.NewLambda([]string{"a", "b"}, query.NewValue(true))))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))

	notBool := must[*query.Filter](t)(query.NewFilter(residues, lambda(t, "m", query.NewValue(3))))
	_, err = query.Matches(s, notBool)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryTypeMismatch))
}

func TestExecuteIf(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	anyRing := must[*query.Ring](t)(query.NewRing(nil))

	hasRing := must[*query.ExecuteIf](t)(query.NewExecuteIf(atomSet("N"),
		lambda(t, "s", query.NewContains(query.NewSymbol("s"), anyRing))))
	assert.Len(t, run(t, s, hasRing), 3)

	hasIron := must[*query.ExecuteIf](t)(query.NewExecuteIf(atomSet("N"),
		lambda(t, "s", query.NewContains(query.NewSymbol("s"), atomSet("Fe")))))
	assert.Empty(t, run(t, s, hasIron))
}

func TestInside_FindsPerMotive(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	inside := query.NewInside(atomSet("N"), query.NewResidueSet([]string{"LYS", "ASP"}, false))
	ms := run(t, s, inside)
	assert.Equal(t, [][]int{{5}, {9}}, ids(ms))

	root := query.NewExecutionContext(s).Root()
	for _, m := range ms {
		assert.Same(t, root.Structure, m.Context().Structure, "Find maps results back to the outer structure")
	}
}

func TestSelectMany_RequiresSequenceSelector(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	bad := query.NewSelectMany(atomSet("N"), lambda(t, "m", query.NewValue(1)))
	_, err := query.Matches(s, bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryTypeMismatch))

	arity := query.NewSelectMany(atomSet("N"), must[*query.Lambda](t)(query.NewLambda(nil, atomSet("O"))))
	_, err = query.Matches(s, arity)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))

	expand := query.NewSelectMany(atomSet("N"), lambda(t, "m",
		query.NewFind(query.NewAtomSet(nil, false), query.NewSymbol("m"))))
	assert.Equal(t, [][]int{{1}, {5}, {9}}, ids(run(t, s, expand)))
}

func TestSymbols(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	_, err := query.Evaluate(s, query.NewSymbol("x"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryUndefinedSymbol))

	_, err = query.NewLambda([]string{" "}, query.NewValue(1))
	assert.Error(t, err)

	_, err = query.Evaluate(s, query.NewStructureMotive("9XYZ"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryUnknownStruct))

	assert.Nil(t, eval(t, s, query.NewCurrentMotive()))
}

func TestNamedAndUnion(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	ms := run(t, s, query.NewNamed(query.NewResidueSet([]string{"LYS", "ASP"}, false)))
	require.Len(t, ms, 2)
	for _, m := range ms {
		name, ok := m.Name()
		require.True(t, ok)
		first, _ := m.Atoms().Min()
		assert.Equal(t, first.ID, name)
	}

	m := eval(t, s, query.NewToMotive(atomSet("N")))
	require.NotNil(t, m)
	assert.Equal(t, 1, eval(t, s, query.NewLength(query.NewUnion(atomSet("N")))))
	assert.Equal(t, 3, eval(t, s, query.NewLength(atomSet("N"))))
}

func TestValues(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	v := func(x any) query.Scalar { return query.NewValue(x) }
	and := func(xs ...query.Scalar) query.Scalar { return must[*query.Logical](t)(query.NewLogical(query.LogicalAnd, xs...)) }
	or := func(xs ...query.Scalar) query.Scalar { return must[*query.Logical](t)(query.NewLogical(query.LogicalOr, xs...)) }
	xor := func(xs ...query.Scalar) query.Scalar { return must[*query.Logical](t)(query.NewLogical(query.LogicalXor, xs...)) }

	cases := []struct {
		name string
		node query.Scalar
		want any
	}{
		{"int plus", query.NewArithmetic(query.Plus, v(2), v(3)), 5},
		{"int divide truncates", query.NewArithmetic(query.Divide, v(7), v(2)), 3},
		{"float divide", query.NewArithmetic(query.Divide, v(1.0), v(4)), 0.25},
		{"int power", query.NewArithmetic(query.Power, v(2), v(10)), 1024},
		{"string concat", query.NewArithmetic(query.Plus, v("a"), v("b")), "ab"},
		{"nothing propagates", query.NewArithmetic(query.Times, v(nil), v(2)), nil},
		{"minus", query.NewMinus(v(2.5)), -2.5},
		{"equal mixed numbers", query.NewRelation(query.Equal, v(1), v(1.0)), true},
		{"equal nothing", query.NewRelation(query.Equal, v(nil), v(nil)), true},
		{"not equal nothing", query.NewRelation(query.NotEqual, v(nil), v(1)), true},
		{"less nothing", query.NewRelation(query.Less, v(nil), v(1)), nil},
		{"less strings", query.NewRelation(query.Less, v("ALA"), v("LYS")), true},
		{"greater equal", query.NewRelation(query.GreaterEqual, v(2), v(2.0)), true},
		{"and", and(v(true), v(true)), true},
		{"and short circuit", and(v(nil), v(false)), false},
		{"and nothing", and(v(true), v(nil)), nil},
		{"or", or(v(false), v(true)), true},
		{"xor", xor(v(true), v(true), v(true)), true},
		{"not", query.NewLogicalNot(v(false)), true},
		{"atom id", query.NewAtomId(query.NewToMotive(query.NewAtomIds([]int{7}, false))), 7},
		{"atom chain", query.NewAtomChain(query.NewToMotive(query.NewAtomIds([]int{7}, false))), "A"},
		{"seq count", query.NewSeqCount(atomSet("O")), 4},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, eval(t, s, tc.node))
		})
	}

	_, err := query.Evaluate(s, query.NewArithmetic(query.Divide, v(1), v(0)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryRuntime))
	_, err = query.Evaluate(s, query.NewRelation(query.Less, v("a"), v(1)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryTypeMismatch))
	_, err = query.NewLogical(query.LogicalAnd)
	assert.Error(t, err)
}
