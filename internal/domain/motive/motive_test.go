package motive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/testutil"
)

func atoms(t *testing.T, s *structure.Structure, ids ...int) []*structure.Atom {
	t.Helper()
	out := make([]*structure.Atom, len(ids))
	for i, id := range ids {
		a, ok := s.AtomByID(id)
		require.True(t, ok, "atom %d", id)
		out[i] = a
	}
	return out
}

func TestAtomSet_OrderIndependent(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)

	a := motive.NewAtomSet(atoms(t, s, 1, 2, 3, 9)...)
	b := motive.NewAtomSet(atoms(t, s, 9, 3, 1, 2, 2)...)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, []int{1, 2, 3, 9}, b.IDs())

	left := motive.NewAtomSet(atoms(t, s, 1, 2)...)
	right := motive.NewAtomSet(atoms(t, s, 3, 9)...)
	u := left.Union(right)
	assert.True(t, u.Equal(a))
	assert.Equal(t, a.Hash(), u.Hash())

	assert.Equal(t, 2, left.Len(), "union must not modify its inputs")
	assert.False(t, a.Equal(left))
}

func TestAtomSet_Basics(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	xs := atoms(t, s, 5, 6, 7)

	var empty motive.AtomSet
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Equal(motive.NewAtomSet()))
	_, ok := empty.Min()
	assert.False(t, ok)

	set := empty.Add(xs[1]).Add(xs[0]).Add(xs[0])
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(5))
	assert.False(t, set.Has(7))
	min, ok := set.Min()
	require.True(t, ok)
	assert.Equal(t, 5, min.ID)

	assert.True(t, set.Intersects(motive.NewAtomSet(xs[1], xs[2])))
	assert.False(t, set.Intersects(motive.NewAtomSet(xs[2])))
}

func TestMotive_Geometry(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	m := motive.FromAtoms(ctx, atoms(t, s, 1, 2)...)
	assert.InDelta(t, 0.75, m.Center().X, 1e-9)
	assert.InDelta(t, 0.75, m.Radius(), 1e-9)
	assert.Equal(t, "{1,2}", m.String())

	empty := motive.New(ctx, motive.AtomSet{})
	assert.Zero(t, empty.Len())
	assert.Equal(t, spatial.Vec3{}, empty.Center())
	assert.Zero(t, empty.Radius())
}

func TestMergeNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b      int
		aok, bok  bool
		want      int
		wantNamed bool
	}{
		{a: 3, aok: true, b: 5, bok: true, want: 3, wantNamed: true},
		{a: 7, aok: true, b: 2, bok: true, want: 2, wantNamed: true},
		{a: 4, aok: true, want: 4, wantNamed: true},
		{b: 9, bok: true, want: 9, wantNamed: true},
		{},
	}
	for _, tt := range tests {
		got, named := motive.MergeNames(tt.a, tt.aok, tt.b, tt.bok)
		assert.Equal(t, tt.wantNamed, named)
		if tt.wantNamed {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestMerge_And_Named(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	a := motive.FromAtoms(ctx, atoms(t, s, 4, 3)...).WithName(8)
	b := motive.FromAtoms(ctx, atoms(t, s, 3, 5)...).WithName(2)
	c := motive.FromAtoms(ctx, atoms(t, s, 6)...)

	m := motive.Merge(a, b, c)
	assert.Equal(t, []int{3, 4, 5, 6}, m.Atoms().IDs())
	name, ok := m.Name()
	require.True(t, ok)
	assert.Equal(t, 2, name)

	named := motive.Named(c)
	name, ok = named.Name()
	require.True(t, ok)
	assert.Equal(t, 6, name)
	_, ok = c.Name()
	assert.False(t, ok, "Named must return a copy")

	assert.True(t, a.Equal(motive.FromAtoms(ctx, atoms(t, s, 3, 4)...)), "names do not take part in equality")
	assert.Nil(t, motive.Merge())
}

func TestAreNear(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	ala := motive.FromAtoms(ctx, atoms(t, s, 1, 2, 3, 4)...)
	asp := motive.FromAtoms(ctx, atoms(t, s, 9, 10, 11, 12)...)

	assert.InDelta(t, 7.5, motive.Distance(ala, asp), 1e-9)
	assert.True(t, motive.AreNear(8, ala, asp))
	assert.False(t, motive.AreNear(7.5, ala, asp), "the distance test is strict")
	assert.False(t, motive.AreNear(2, ala, asp))
}

func TestAreConnected(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	ala := motive.FromAtoms(ctx, atoms(t, s, 1, 2, 3, 4)...)
	lys := motive.FromAtoms(ctx, atoms(t, s, 5, 6, 7, 8)...)
	asp := motive.FromAtoms(ctx, atoms(t, s, 9, 10, 11, 12)...)
	overlap := motive.FromAtoms(ctx, atoms(t, s, 4, 5)...)

	assert.True(t, motive.AreConnected(ala, lys, false))
	assert.True(t, motive.AreConnected(lys, ala, true))
	assert.False(t, motive.AreConnected(ala, asp, false))
	assert.True(t, motive.AreConnected(ala, overlap, false))
	assert.False(t, motive.AreConnected(asp, overlap, true))
	assert.False(t, motive.AreConnected(ala, ala, true))
}

func TestMotive_Signature(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	assert.Equal(t, "ALA-ASP-BNZ-HOH-LYS", ctx.StructureMotive().Signature())
	m := motive.FromAtoms(ctx, atoms(t, s, 1, 5)...)
	assert.Equal(t, "ALA-LYS", m.Signature())
}

func TestUnique(t *testing.T) {
	t.Parallel()
	s := testutil.Tripeptide(t)
	ctx := motive.NewContext(s)

	m := motive.FromAtoms(ctx, atoms(t, s, 1, 2)...)
	stream := []*motive.Motive{m.WithName(1), m.WithName(2), m.WithName(1), m, motive.FromAtoms(ctx, atoms(t, s, 3)...)}

	plain := motive.NewUnique(false)
	var got []*motive.Motive
	for _, x := range stream {
		if plain.Accept(x) {
			got = append(got, x)
		}
	}
	assert.Len(t, got, 2)

	named := motive.NewUnique(true)
	got = got[:0]
	for _, x := range stream {
		if named.Accept(x) {
			got = append(got, x)
		}
	}
	require.Len(t, got, 3)
	name, _ := got[1].Name()
	assert.Equal(t, 2, name)

	assert.Len(t, motive.Distinct(stream), 2)
}
