package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

func TestCluster_SkipsOccurrenceCheck(t *testing.T) {
	t.Parallel()
	s := tenAtoms(t)

	cluster := must[*query.Cluster](t)(query.NewCluster(3.5, atomSet("C"), atomSet("N")))
	assert.Equal(t, [][]int{{3, 4, 5}, {8, 9}}, ids(run(t, s, cluster)))

	near := must[*query.Near](t)(query.NewNear(3.5, atomSet("C"), atomSet("N")))
	assert.Equal(t, [][]int{{8, 9}}, ids(run(t, s, near)), "Near keeps one match per operand")

	_, err := query.NewCluster(1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestAmbientAtoms(t *testing.T) {
	t.Parallel()
	s := tenAtoms(t)
	sulfur := atomSet("S")

	grown := must[*query.AmbientAtoms](t)(query.NewAmbientAtoms(sulfur, 3.5, query.ExpandOptions{}))
	assert.Equal(t, [][]int{{6, 7, 8}}, ids(run(t, s, grown)))

	shell := must[*query.AmbientAtoms](t)(query.NewAmbientAtoms(sulfur, 3.5, query.ExpandOptions{ExcludeBase: true}))
	assert.Equal(t, [][]int{{6, 8}}, ids(run(t, s, shell)))

	lonely := must[*query.AmbientAtoms](t)(query.NewAmbientAtoms(sulfur, 1, query.ExpandOptions{ExcludeBase: true}))
	assert.Empty(t, run(t, s, lonely), "empty expansions are dropped")

	_, err := query.NewAmbientAtoms(sulfur, -1, query.ExpandOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestAmbientResidues(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ligand := query.NewResidueSet([]string{"BNZ"}, false)

	// The ring hydrogens reach the alanine oxygen and the carbons reach the
	// lysine; the aspartate stays out of range.
	grown := must[*query.AmbientResidues](t)(query.NewAmbientResidues(ligand, 3.2, query.ExpandOptions{IgnoreWaters: true}))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25}}, ids(run(t, s, grown)))

	shell := must[*query.AmbientResidues](t)(query.NewAmbientResidues(ligand, 3.2, query.ExpandOptions{ExcludeBase: true}))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8}}, ids(run(t, s, shell)))
}

func TestSpherifyAndFilled(t *testing.T) {
	t.Parallel()
	s := tenAtoms(t)

	sphere := must[*query.Spherify](t)(query.NewSpherify(atomSet("S"), 6.5, query.ExpandOptions{}))
	assert.Equal(t, [][]int{{5, 6, 7, 8, 9}}, ids(run(t, s, sphere)))

	// Atoms 1 and 3 span 6 Å; the scaled bounding sphere picks up atom 2.
	filled := must[*query.Filled](t)(query.NewFilled(query.NewAtomIds([]int{1, 3}, false), 1.1, false))
	assert.Equal(t, [][]int{{1, 2, 3}}, ids(run(t, s, filled)))

	_, err := query.NewFilled(atomSet("S"), -0.5, false)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}

func TestNearestDistanceTo(t *testing.T) {
	t.Parallel()
	s := tenAtoms(t)
	first := query.NewToMotive(query.NewAtomIds([]int{1}, false))

	assert.InDelta(t, 18.0, eval(t, s, query.NewNearestDistanceTo(first, atomSet("S"))), 1e-9)
	assert.InDelta(t, 9.0, eval(t, s, query.NewNearestDistanceTo(first, atomSet("N"))), 1e-9)
	assert.Nil(t, eval(t, s, query.NewNearestDistanceTo(first, atomSet("Fe"))))
}
