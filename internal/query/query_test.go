package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

func tenAtoms(t *testing.T) *structure.Structure {
	f := testutil.NewFixture("10AT")
	for i, el := range []string{"C", "O", "C", "N", "C", "O", "S", "C", "N", "H"} {
		f.Add(testutil.AtomSpec{Element: el, Residue: "LIG", Number: 1, Chain: "A", Het: true, Pos: spatial.V(3*float64(i), 0, 0)})
	}
	return f.Build(t)
}

func TestAtomSet_SelectsSingletons(t *testing.T) {
	t.Parallel()
	s := tenAtoms(t)

	ms := run(t, s, atomSet("C", "O"))
	require.Len(t, ms, 6)
	for _, m := range ms {
		assert.Equal(t, 1, m.Len())
	}
	assert.Equal(t, [][]int{{1}, {2}, {3}, {5}, {6}, {8}}, ids(ms))

	assert.Len(t, run(t, s, query.NewAtomSet([]string{"C", "O"}, true)), 4)
	assert.Len(t, run(t, s, query.NewAtomSet(nil, false)), 10, "an empty set matches every atom")
	assert.Empty(t, run(t, s, query.NewAtomSet(nil, true)))
}

func TestRing_Benzene(t *testing.T) {
	t.Parallel()
	f := testutil.NewFixture("BENZ")
	carbons, _ := f.Benzene(1, "A", spatial.V(0, 0, 0))
	s := f.Build(t)

	ring := must[*query.Ring](t)(query.NewRing([]string{"C", "C", "C", "C", "C", "C"}))
	ms := run(t, s, ring)
	require.Len(t, ms, 1)
	assert.Equal(t, 6, ms[0].Len())
	assert.Equal(t, carbons, ms[0].Atoms().IDs())

	pyridine := must[*query.Ring](t)(query.NewRing([]string{"N", "C", "C", "C", "C", "C"}))
	assert.Empty(t, run(t, s, pyridine))

	_, err := query.NewRing([]string{"C", "C"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
	_, err = query.NewRing([]string{"C", "C", "C", "C", "C", "C", "C", "C", "C"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestNear_TooFarApart(t *testing.T) {
	t.Parallel()
	f := testutil.NewFixture("FAR1")
	f.Add(testutil.AtomSpec{Element: "S", Residue: "CYS", Number: 1, Chain: "A", Pos: spatial.V(0, 0, 0)})
	f.Add(testutil.AtomSpec{Element: "FE", Residue: "HEM", Number: 2, Chain: "A", Het: true, Pos: spatial.V(5, 0, 0)})
	s := f.Build(t)

	near := must[*query.Near](t)(query.NewNear(4.0, atomSet("S"), atomSet("Fe")))
	assert.Empty(t, run(t, s, near))

	wider := must[*query.Near](t)(query.NewNear(6.0, atomSet("S"), atomSet("Fe")))
	assert.Equal(t, [][]int{{1, 2}}, ids(run(t, s, wider)))
}

func TestConnectedAtoms_DepthOne(t *testing.T) {
	t.Parallel()
	f := testutil.NewFixture("CONN")
	c := f.Add(testutil.AtomSpec{Element: "C", Residue: "LIG", Number: 1, Pos: spatial.V(0, 0, 0)})
	n := f.Add(testutil.AtomSpec{Element: "N", Residue: "LIG", Number: 1, Pos: spatial.V(1.5, 0, 0)})
	o := f.Add(testutil.AtomSpec{Element: "O", Residue: "LIG", Number: 1, Pos: spatial.V(0, 1.5, 0)})
	sf := f.Add(testutil.AtomSpec{Element: "S", Residue: "LIG", Number: 1, Pos: spatial.V(0, 0, 1.5)})
	h := f.Add(testutil.AtomSpec{Element: "H", Residue: "LIG", Number: 1, Pos: spatial.V(2.5, 0, 0)})
	f.Bond(c, n).Bond(c, o).Bond(c, sf).Bond(n, h)
	s := f.Build(t)

	one := must[*query.ConnectedAtoms](t)(query.NewConnectedAtoms(atomSet("C"), 1, false))
	ms := run(t, s, one)
	require.Len(t, ms, 1)
	assert.Equal(t, 4, ms[0].Len())
	assert.Equal(t, []int{c, n, o, sf}, ms[0].Atoms().IDs())

	two := must[*query.ConnectedAtoms](t)(query.NewConnectedAtoms(atomSet("C"), 2, false))
	assert.Equal(t, [][]int{{c, n, o, sf, h}}, ids(run(t, s, two)))

	_, err := query.NewConnectedAtoms(atomSet("C"), -1, false)
	assert.Error(t, err)
}

func TestCount_FastPathMatchesExecution(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	wheres := map[string]query.Scalar{
		"structure": query.NewInputAsPattern(),
		"lysine":    query.NewToMotive(query.NewResidueSet([]string{"LYS"}, false)),
		"prefix":    query.NewToMotive(query.NewAtomIds([]int{1, 2, 3, 4, 5}, false)),
	}
	for name, where := range wheres {
		where := where
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fast := eval(t, s, query.NewCount(atomSet("N"), where))
			full := eval(t, s, query.NewCount(query.NewNamed(atomSet("N")), where))
			assert.Equal(t, fast, full)

			m := eval(t, s, where)
			require.NotNil(t, m)
		})
	}
	assert.Equal(t, 3, eval(t, s, query.NewCount(atomSet("N"), query.NewInputAsPattern())))
	assert.Equal(t, 1, eval(t, s, query.NewCount(atomSet("N"), wheres["lysine"])))
}

func TestOr_DuplicateOperandIsIdentity(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	a := query.NewResidueSet([]string{"LYS", "ASP"}, false)
	same := query.NewResidueSet([]string{"ASP", "LYS"}, false)

	or := must[query.Sequence](t)(query.NewOr(a, same))
	assert.Equal(t, a.Signature(), or.Signature())
	assert.Equal(t, ids(run(t, s, a)), ids(run(t, s, or)))

	mixed := must[query.Sequence](t)(query.NewOr(a, atomSet("O"), a))
	assert.Equal(t, "Or[ResidueSet[ASP,LYS],AtomSet[O]]", mixed.Signature())
	assert.Len(t, run(t, s, mixed), 2+4)

	_, err := query.NewOr()
	assert.Error(t, err)
}

func TestNear_Symmetric(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	ab := must[*query.Near](t)(query.NewNear(3.0, atomSet("N"), atomSet("O")))
	ba := must[*query.Near](t)(query.NewNear(3.0, atomSet("O"), atomSet("N")))
	want := [][]int{{4, 5}, {8, 9}}
	assert.Equal(t, want, ids(run(t, s, ab)))
	assert.Equal(t, want, ids(run(t, s, ba)))

	// Equal match counts exercise the pivot tie-break.
	x := query.NewAtomIds([]int{1, 5, 9}, false)
	y := atomSet("N")
	xy := must[*query.Near](t)(query.NewNear(3.0, x, y))
	yx := must[*query.Near](t)(query.NewNear(3.0, y, x))
	assert.Equal(t, [][]int{{1}, {5}, {9}}, ids(run(t, s, xy)))
	assert.Equal(t, ids(run(t, s, xy)), ids(run(t, s, yx)))
}

func TestNear_OccurrenceCount(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	pairs := must[*query.Near](t)(query.NewNear(7.0, atomSet("N"), atomSet("N")))
	assert.Equal(t, [][]int{{1, 5}, {5, 9}}, ids(run(t, s, pairs)))

	tight := must[*query.Near](t)(query.NewNear(3.0, atomSet("N"), atomSet("N")))
	assert.Empty(t, run(t, s, tight))

	_, err := query.NewNear(-1, atomSet("N"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestDistanceCluster_OneLabelEach(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	n, o := atomSet("N"), atomSet("O")
	ligand := query.NewResidueSet([]string{"BNZ"}, false)

	pair := must[*query.DistanceCluster](t)(query.NewDistanceCluster(
		[]query.Sequence{n, o}, [][]float64{{1}}, [][]float64{{2}}))
	ms := run(t, s, pair)
	assert.Equal(t, [][]int{{4, 5}, {8, 9}}, ids(ms))

	triple := must[*query.DistanceCluster](t)(query.NewDistanceCluster(
		[]query.Sequence{n, o, ligand},
		[][]float64{{1}, {0, 0}},
		[][]float64{{2}, {4, 5}}))
	ms = run(t, s, triple)
	require.Len(t, ms, 1)
	for _, q := range []query.Sequence{n, o, ligand} {
		ok := eval(t, s, query.NewContains(query.NewToMotive(triple), q))
		assert.Equal(t, true, ok, q.Signature())
	}
	assert.Equal(t, 1, eval(t, s, query.NewCount(n, query.NewToMotive(triple))))
	assert.Equal(t, 1, eval(t, s, query.NewCount(o, query.NewToMotive(triple))))
	assert.Equal(t, 2+12, ms[0].Len())
}

func TestDistanceCluster_InvalidMatrices(t *testing.T) {
	t.Parallel()
	n, o := atomSet("N"), atomSet("O")
	cases := map[string]struct {
		qs     []query.Sequence
		lo, hi [][]float64
	}{
		"one pattern":   {qs: []query.Sequence{n}, lo: nil, hi: nil},
		"short min":     {qs: []query.Sequence{n, o}, lo: [][]float64{}, hi: [][]float64{{1}}},
		"ragged max":    {qs: []query.Sequence{n, o}, lo: [][]float64{{1}}, hi: [][]float64{{1, 2}}},
		"min above max": {qs: []query.Sequence{n, o}, lo: [][]float64{{3}}, hi: [][]float64{{2}}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := query.NewDistanceCluster(tc.qs, tc.lo, tc.hi)
			assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig), "%v", err)
		})
	}
}

func TestMemoization_Transparent(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	n := atomSet("N")
	near := must[*query.Near](t)(query.NewNear(3.0, n, atomSet("O")))
	q := must[query.Sequence](t)(query.NewOr(near, must[*query.ConnectedAtoms](t)(query.NewConnectedAtoms(n, 1, false)), n))

	want := ids(run(t, s, q))
	ec := query.NewExecutionContext(s)
	for i := 0; i < 4; i++ {
		res, err := ec.Execute(q)
		require.NoError(t, err)
		assert.Equal(t, want, ids(res.Motives), "round %d", i)
	}
	stats := ec.Cache().Stats()
	assert.Positive(t, stats.Promotions)
	assert.Positive(t, stats.Hits)

	ec.Reset()
	assert.Zero(t, ec.Cache().Len())
	res, err := ec.Execute(q)
	require.NoError(t, err)
	assert.Equal(t, want, ids(res.Motives))
}

func TestExecute_Cancelled(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := query.Evaluate(s, atomSet("N"), query.WithContext(ctx))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryCancelled))
}

func TestUnion_EmptyIsRuntimeError(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	_, err := query.Evaluate(s, query.NewUnion(atomSet("FE")))
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryRuntime))

	ms := run(t, s, query.NewUnion(query.NewResidueSet([]string{"ALA", "LYS"}, false)))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8}}, ids(ms))
}
