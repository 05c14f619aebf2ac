package cavity_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/domain/cavity"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

// cage places n carbons on a sphere of the given radius using a Fibonacci
// lattice, skipping the positions keep rejects.
func cage(t *testing.T, n int, radius float64, keep func(spatial.Vec3) bool) *structure.Structure {
	f := testutil.NewFixture("CAGE")
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		theta := golden * float64(i)
		p := spatial.V(r*math.Cos(theta), r*math.Sin(theta), z).Scale(radius)
		if keep != nil && !keep(p) {
			continue
		}
		f.Add(testutil.AtomSpec{Element: "C", Residue: "CAG", Number: 1, Chain: "A", Het: true, Pos: p})
	}
	return f.Build(t)
}

func TestCavities_ClosedCageIsVoid(t *testing.T) {
	t.Parallel()
	s := cage(t, 150, 6, nil)
	d := cavity.NewDetector(cavity.Params{GridSpacing: 0.8, ProbeRadius: 1.4, InteriorThreshold: 1.0, BottleneckRadius: 1.0})

	cs, err := d.Cavities(context.Background(), s, cavity.Params{})
	require.NoError(t, err)
	require.NotEmpty(t, cs)

	largest := cs[0]
	assert.Equal(t, cavity.Void, largest.Kind)
	assert.Greater(t, largest.Volume, 50.0)
	assert.Greater(t, len(largest.Lining), 140, "the whole cage lines the void")
	assert.IsIncreasing(t, largest.Lining)
}

func TestTunnels(t *testing.T) {
	t.Parallel()
	params := cavity.Params{GridSpacing: 0.8, ProbeRadius: 3.0, InteriorThreshold: 1.0, BottleneckRadius: 1.0}
	d := cavity.NewDetector(params)
	center := []spatial.Vec3{spatial.V(0, 0, 0)}

	closed := cage(t, 150, 6, nil)
	ts, err := d.Tunnels(context.Background(), closed, center, cavity.Params{})
	require.NoError(t, err)
	assert.Empty(t, ts, "a sealed cage has no way out")

	open := cage(t, 150, 6, func(p spatial.Vec3) bool { return p.Z < 5 })
	ts, err = d.Tunnels(context.Background(), open, center, cavity.Params{})
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Greater(t, ts[0].Length, 3.0)
	assert.GreaterOrEqual(t, ts[0].Bottleneck, params.BottleneckRadius)
	assert.NotEmpty(t, ts[0].Lining)

	none, err := d.Tunnels(context.Background(), open, nil, cavity.Params{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDetector_Errors(t *testing.T) {
	t.Parallel()
	s := cage(t, 40, 4, nil)

	d := cavity.NewDetector(cavity.Params{GridSpacing: 0.8, ProbeRadius: 1.0, InteriorThreshold: 2.0})
	_, err := d.Cavities(context.Background(), s, cavity.Params{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))

	ok := cavity.NewDetector(cavity.Params{GridSpacing: 0.8, ProbeRadius: 1.4, InteriorThreshold: 1.0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ok.Cavities(ctx, s, cavity.Params{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryCancelled))

	_, err = ok.Tunnels(context.Background(), s, []spatial.Vec3{{}}, cavity.Params{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig), "tunnels need a bottleneck radius")

	_, err = ok.Cavities(context.Background(), s, cavity.Params{GridSpacing: 0.001})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryRuntime), "oversized grids are refused")
}
