package query

import (
	"math"

	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/pkg/errors"
)

// StackWindow bounds the geometry accepted by Stack2.  Distances are in
// Ångström, angles in degrees.
type StackWindow struct {
	MinCenterDistance    float64
	MaxCenterDistance    float64
	MinProjectedDistance float64
	MaxProjectedDistance float64
	MinAngle             float64
	MaxAngle             float64
}

// Stack2 pairs planar motives of q1 and q2 whose best-fit planes are
// stacked: centers within a distance window, plane normals within an
// angle window, and each center projected onto the other plane within a
// lateral offset window.
type Stack2 struct {
	q1, q2   Sequence
	minC     float64
	maxC     float64
	minP     float64
	maxP     float64
	minP2    float64
	maxP2    float64
	minAngle float64
	maxAngle float64
}

// NewStack2 builds Stack2(...)[q1,q2].
func NewStack2(w StackWindow, q1, q2 Sequence) (*Stack2, error) {
	if w.MinCenterDistance > w.MaxCenterDistance || w.MinProjectedDistance > w.MaxProjectedDistance || w.MinAngle > w.MaxAngle {
		return nil, errors.InvalidConfig("Stack2: every lower bound must not exceed its upper bound.")
	}
	maxP2 := sq(w.MaxProjectedDistance)
	if w.MaxProjectedDistance < 0 {
		maxP2 = -1
	}
	return &Stack2{
		q1:       q1,
		q2:       q2,
		minC:     w.MinCenterDistance,
		maxC:     w.MaxCenterDistance,
		minP:     w.MinProjectedDistance,
		maxP:     w.MaxProjectedDistance,
		minP2:    sq(math.Max(0, w.MinProjectedDistance)),
		maxP2:    maxP2,
		minAngle: w.MinAngle * math.Pi / 180,
		maxAngle: w.MaxAngle * math.Pi / 180,
	}, nil
}

func (q *Stack2) Signature() string {
	opts := []string{
		fixed(q.minC, 4), fixed(q.maxC, 4),
		fixed(q.minP, 4), fixed(q.maxP, 4),
		fixed(q.minAngle, 4), fixed(q.maxAngle, 4),
	}
	return callOpts("Stack2", opts, q.q1.Signature(), q.q2.Signature())
}
func (q *Stack2) Children() []Node { return []Node{q.q1, q.q2} }

func within(x, lo, hi float64) bool { return x >= lo && x <= hi }

func sq(x float64) float64 { return x * x }

// projectedOffset2 projects p onto the plane through origin with unit
// normal n and returns its squared distance to origin.
func projectedOffset2(n, origin, p spatial.Vec3) float64 {
	d := p.Sub(origin)
	return d.Sub(n.Scale(n.Dot(d))).NormSquared()
}

// planeFits holds the best-fit plane normals of one operand's motives,
// fitted on first use and kept for the rest of the run.
type planeFits struct {
	ms      []*motive.Motive
	normals []spatial.Vec3
	fitted  []bool
}

func newPlaneFits(ms []*motive.Motive) *planeFits {
	return &planeFits{
		ms:      ms,
		normals: make([]spatial.Vec3, len(ms)),
		fitted:  make([]bool, len(ms)),
	}
}

func (p *planeFits) normal(e *eigen3, i int) (spatial.Vec3, error) {
	if p.fitted[i] {
		return p.normals[i], nil
	}
	m := p.ms[i]
	center := m.Center()
	e.resetScatter()
	m.Atoms().Each(func(a *structure.Atom) bool {
		e.accumulate(a.Position, center)
		return true
	})
	n, err := e.normal()
	if err != nil {
		return spatial.Vec3{}, err
	}
	p.normals[i], p.fitted[i] = n, true
	return n, nil
}

// stacked tests motive i of xp against motive j of yp.  Once both normals
// are fitted it does not allocate.
func (q *Stack2) stacked(e *eigen3, xp *planeFits, i int, yp *planeFits, j int) (bool, error) {
	a, b := xp.ms[i], yp.ms[j]
	if a.Len() < 3 || b.Len() < 3 || a.Equal(b) {
		return false, nil
	}
	if !within(a.Center().DistanceTo(b.Center()), q.minC, q.maxC) {
		return false, nil
	}
	n1, err := xp.normal(e, i)
	if err != nil {
		return false, err
	}
	n2, err := yp.normal(e, j)
	if err != nil {
		return false, err
	}
	angle := math.Acos(math.Max(-1, math.Min(1, n1.Dot(n2))))
	if !within(angle, q.minAngle, q.maxAngle) {
		return false, nil
	}
	return within(projectedOffset2(n1, a.Center(), b.Center()), q.minP2, q.maxP2) &&
		within(projectedOffset2(n2, b.Center(), a.Center()), q.minP2, q.maxP2), nil
}

func (q *Stack2) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	xs, err := ec.Motives(q.q1)
	if err != nil {
		return nil, err
	}
	self := q.q1.Signature() == q.q2.Signature()
	ys := xs
	if !self {
		if ys, err = ec.Motives(q.q2); err != nil {
			return nil, err
		}
	}

	e := newEigen3(ec.cfg.EVDMaxIterations)
	xp := newPlaneFits(xs)
	yp := xp
	if !self {
		yp = newPlaneFits(ys)
	}
	seen := motive.NewSet()
	var out []*motive.Motive
	for i := range xs {
		if err := ec.checkpoint(); err != nil {
			return nil, err
		}
		start := 0
		if self {
			start = i + 1
		}
		for j := start; j < len(ys); j++ {
			ok, err := q.stacked(e, xp, i, yp, j)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if x := motive.Merge(xs[i], ys[j]); seen.Add(x) {
				out = append(out, x)
			}
		}
	}
	return out, nil
}
