package spatial

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n int, seed int64) []Vec3 {
	r := rand.New(rand.NewSource(seed))
	ps := make([]Vec3, n)
	for i := range ps {
		ps[i] = V(r.Float64()*30, r.Float64()*30, r.Float64()*30)
	}
	return ps
}

func bruteWithin(ps []Vec3, c Vec3, radius float64) []int {
	var out []int
	for i, p := range ps {
		if p.DistanceTo(c) <= radius {
			out = append(out, i)
		}
	}
	return out
}

func TestTree_WithinMatchesBruteForce(t *testing.T) {
	t.Parallel()
	ps := randomPoints(500, 7)
	tree := NewTree(ps)
	require.Equal(t, 500, tree.Len())

	for _, q := range randomPoints(25, 11) {
		for _, radius := range []float64{0.5, 2.5, 6} {
			hits := tree.Within(q, radius)
			got := make([]int, len(hits))
			for i, h := range hits {
				got[i] = h.Index
				assert.InDelta(t, ps[h.Index].DistanceTo(q), h.Distance, 1e-9)
			}
			sort.Ints(got)
			assert.Equal(t, bruteWithin(ps, q, radius), nilIfEmpty(got))
		}
	}
}

func nilIfEmpty(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	return xs
}

func TestTree_WithinOrderedByDistance(t *testing.T) {
	t.Parallel()
	ps := []Vec3{V(3, 0, 0), V(1, 0, 0), V(2, 0, 0), V(-1, 0, 0)}
	hits := NewTree(ps).Within(V(0, 0, 0), 2.5)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Index)
	assert.Equal(t, 3, hits[1].Index)
	assert.Equal(t, 2, hits[2].Index)
}

func TestTree_Nearest(t *testing.T) {
	t.Parallel()
	ps := randomPoints(300, 3)
	tree := NewTree(ps)

	for _, q := range randomPoints(20, 5) {
		n, ok := tree.Nearest(q)
		require.True(t, ok)
		best := math.Inf(1)
		for _, p := range ps {
			best = math.Min(best, p.DistanceTo(q))
		}
		assert.InDelta(t, best, n.Distance, 1e-9)
	}
}

func TestTree_Empty(t *testing.T) {
	t.Parallel()
	tree := NewTree(nil)
	assert.Empty(t, tree.Within(V(0, 0, 0), 10))
	_, ok := tree.Nearest(V(0, 0, 0))
	assert.False(t, ok)
}

func TestVec3_Operations(t *testing.T) {
	t.Parallel()
	a, b := V(1, 2, 3), V(4, 6, 3)
	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.Equal(t, V(5, 8, 6), a.Add(b))
	assert.Equal(t, V(-3, -4, 0), a.Sub(b))
	assert.Equal(t, V(0, 0, 1), V(1, 0, 0).Cross(V(0, 1, 0)))
	assert.Equal(t, V(2, 3, 3), Centroid([]Vec3{V(1, 2, 3), V(3, 4, 3)}))
	assert.InDelta(t, 1.0, V(3, 4, 12).Normalize().Norm(), 1e-12)
	assert.InDelta(t, 169.0, V(3, 4, 12).NormSquared(), 1e-12)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())

	min, max := Bounds([]Vec3{a, b, V(-1, 9, 0)})
	assert.Equal(t, V(-1, 2, 0), min)
	assert.Equal(t, V(4, 9, 3), max)
}
