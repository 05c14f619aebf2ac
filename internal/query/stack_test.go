package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/testutil"
	"github.com/turtacn/motivequery/pkg/errors"
)

func TestStack2_ParallelRings(t *testing.T) {
	t.Parallel()
	f := testutil.NewFixture("STCK")
	f.Benzene(1, "A", spatial.V(0, 0, 0))
	f.Benzene(2, "A", spatial.V(0.5, 0, 3.5))
	f.Benzene(3, "A", spatial.V(20, 0, 0))
	s := f.Build(t)
	rings := must[*query.Ring](t)(query.NewRing(nil))

	parallel := query.StackWindow{
		MinCenterDistance: 3, MaxCenterDistance: 4,
		MinProjectedDistance: 0, MaxProjectedDistance: 1.5,
		MinAngle: 0, MaxAngle: 30,
	}
	stack := must[*query.Stack2](t)(query.NewStack2(parallel, rings, rings))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 13, 14, 15, 16, 17, 18}}, ids(run(t, s, stack)))

	tShaped := parallel
	tShaped.MinAngle, tShaped.MaxAngle = 60, 90
	assert.Empty(t, run(t, s, must[*query.Stack2](t)(query.NewStack2(tShaped, rings, rings))))

	offset := parallel
	offset.MaxProjectedDistance = 0.2
	assert.Empty(t, run(t, s, must[*query.Stack2](t)(query.NewStack2(offset, rings, rings))))

	bad := parallel
	bad.MinCenterDistance = 5
	_, err := query.NewStack2(bad, rings, rings)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryInvalidConfig))
}
