package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/motivequery/internal/domain/cavity"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
)

// fakeGeometry answers every call with the same lining and records what it
// was asked.
type fakeGeometry struct {
	lining  []int
	atoms   []int
	origins []spatial.Vec3
	params  []cavity.Params
}

func (f *fakeGeometry) Cavities(_ context.Context, s *structure.Structure, p cavity.Params) ([]cavity.Cavity, error) {
	f.atoms = append(f.atoms, len(s.Atoms))
	f.params = append(f.params, p)
	return []cavity.Cavity{
		{Kind: cavity.Void, Volume: 10, Lining: f.lining},
		{Kind: cavity.Pocket, Volume: 1, Lining: []int{999}},
	}, nil
}

func (f *fakeGeometry) Tunnels(_ context.Context, s *structure.Structure, origins []spatial.Vec3, p cavity.Params) ([]cavity.Tunnel, error) {
	f.atoms = append(f.atoms, len(s.Atoms))
	f.origins = append(f.origins, origins...)
	f.params = append(f.params, p)
	return []cavity.Tunnel{{Length: 4, Bottleneck: 1.5, Lining: f.lining}}, nil
}

func TestEmptySpace_MapsLiningBack(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	geo := &fakeGeometry{lining: []int{5, 6, 99}}

	q := query.NewEmptySpace(query.NewResidueSet([]string{"LYS"}, false), 1.4, 1.1)
	ms := run(t, s, q, query.WithGeometry(geo))

	assert.Equal(t, [][]int{{5, 6}}, ids(ms), "unknown ids are dropped and empty linings skipped")
	assert.Equal(t, []int{4}, geo.atoms, "detection runs on the lysine only")
	assert.Equal(t, cavity.Params{ProbeRadius: 1.4, InteriorThreshold: 1.1}, geo.params[0])
}

func TestTunnels_StartsFromCenters(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	geo := &fakeGeometry{lining: []int{7, 8}}
	protein := query.NewUnion(query.NewResidueSet([]string{"ALA", "LYS", "ASP"}, false))

	ms := run(t, s, query.NewTunnels(protein, atomSet("N"), 3, 1.2, 0.9), query.WithGeometry(geo))
	assert.Equal(t, [][]int{{7, 8}}, ids(ms))
	assert.Equal(t, []int{12}, geo.atoms)
	assert.ElementsMatch(t, []spatial.Vec3{spatial.V(0, 0, 0), spatial.V(6, 0, 0), spatial.V(12, 0, 0)}, geo.origins)

	idle := &fakeGeometry{lining: []int{7}}
	assert.Empty(t, run(t, s, query.NewTunnels(protein, atomSet("Fe"), 3, 1.2, 0.9), query.WithGeometry(idle)))
	assert.Empty(t, idle.atoms, "no origins, no detection")
}
