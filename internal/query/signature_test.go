package query_test

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/motivequery/internal/query"
)

func TestSignatures_Golden(t *testing.T) {
	t.Parallel()
	n, o := atomSet("N"), atomSet("O")
	lys := query.NewResidueSet([]string{"lys"}, false)
	benzene := must[*query.Ring](t)(query.NewRing([]string{"C", "C", "C", "C", "C", "C"}))
	pyridine := must[*query.Ring](t)(query.NewRing([]string{"N", "C", "C", "C", "C", "C"}))

	nodes := []struct {
		name string
		node query.Node
	}{
		{"atom_set", atomSet("O", "c", "C")},
		{"atom_set_complement", query.NewAtomSet([]string{"o"}, true)},
		{"residue_set", query.NewResidueSet([]string{"lys", "asp"}, false)},
		{"ring", pyridine},
		{"near", must[*query.Near](t)(query.NewNear(4, n, o))},
		{"cluster", must[*query.Cluster](t)(query.NewCluster(3.5, n, o))},
		{"ambient_atoms", must[*query.AmbientAtoms](t)(query.NewAmbientAtoms(n, 4, query.ExpandOptions{IgnoreWaters: true}))},
		{"filled", must[*query.Filled](t)(query.NewFilled(pyridine, 1.5, false))},
		{"connected_atoms", must[*query.ConnectedAtoms](t)(query.NewConnectedAtoms(n, 2, true))},
		{"distance_cluster", must[*query.DistanceCluster](t)(query.NewDistanceCluster(
			[]query.Sequence{n, o}, [][]float64{{1}}, [][]float64{{2.5}}))},
		{"stack2", must[*query.Stack2](t)(query.NewStack2(query.StackWindow{
			MinCenterDistance: 3, MaxCenterDistance: 4,
			MaxProjectedDistance: 1.5, MaxAngle: 30,
		}, benzene, benzene))},
		{"filter", must[*query.Filter](t)(query.NewFilter(lys, lambda(t, "m", query.NewContains(query.NewSymbol("m"), n))))},
		{"has_any", must[*query.HasMetadata](t)(query.NewHasMetadata("Keywords", true, query.NewInputAsPattern(), "kinase"))},
		{"regex", query.NewRegexMotive(query.NewValue("GK.D"), query.AminoChain)},
		{"tunnels", query.NewTunnels(lys, n, 1.2, 3, 1.4)},
		{"or", must[query.Sequence](t)(query.NewOr(lys, o, lys))},
	}

	var sb strings.Builder
	for _, tc := range nodes {
		sb.WriteString(tc.name + ": " + tc.node.Signature() + "\n")
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "signatures", []byte(sb.String()))
}

func TestSignatures_Deterministic(t *testing.T) {
	t.Parallel()
	build := func() string {
		near := must[*query.Near](t)(query.NewNear(2.25, atomSet("C", "N"), query.NewResidueSet([]string{"his", "HIS"}, false)))
		return query.NewToMotive(near).Signature()
	}
	assert.Equal(t, build(), build())
	assert.Equal(t, "ToMotive[Near(2.25)[AtomSet[C,N],ResidueSet[HIS]]]", build())
}
