package query

import (
	"context"

	"github.com/turtacn/motivequery/internal/config"
	"github.com/turtacn/motivequery/internal/domain/cavity"
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/internal/domain/structure"
)

// GeometryService finds empty space in a structure.  Results refer to
// atoms by id.
type GeometryService interface {
	Cavities(ctx context.Context, s *structure.Structure, p cavity.Params) ([]cavity.Cavity, error)
	Tunnels(ctx context.Context, s *structure.Structure, origins []spatial.Vec3, p cavity.Params) ([]cavity.Tunnel, error)
}

func newGridGeometry(cfg config.CavityConfig) GeometryService {
	return cavity.NewDetector(cavity.Params{
		GridSpacing:       cfg.GridSpacing,
		ProbeRadius:       cfg.ProbeRadius,
		InteriorThreshold: cfg.InteriorThreshold,
		BottleneckRadius:  cfg.BottleneckRadius,
	})
}

// liningMotive maps atom ids of a sub-structure back to cur.
func liningMotive(cur *motive.Context, ids []int) *motive.Motive {
	atoms := make([]*structure.Atom, 0, len(ids))
	for _, id := range ids {
		if a, ok := cur.Structure.AtomByID(id); ok {
			atoms = append(atoms, a)
		}
	}
	return motive.FromAtoms(cur, atoms...)
}

// Tunnels traces tunnels inside every match of where, starting from the
// centers of the matches of start.
type Tunnels struct {
	where, start Sequence
	params       cavity.Params
}

// NewTunnels builds Tunnels(ProbeRadius=..,InteriorThreshold=..,BottleneckRadius=..)[where,start].
func NewTunnels(where, start Sequence, probe, interior, bottleneck float64) *Tunnels {
	return &Tunnels{where: where, start: start, params: cavity.Params{
		ProbeRadius:       probe,
		InteriorThreshold: interior,
		BottleneckRadius:  bottleneck,
	}}
}

func (q *Tunnels) Signature() string {
	return callOpts("Tunnels", []string{
		option("ProbeRadius", q.params.ProbeRadius),
		option("InteriorThreshold", q.params.InteriorThreshold),
		option("BottleneckRadius", q.params.BottleneckRadius),
	}, q.where.Signature(), q.start.Signature())
}
func (q *Tunnels) Children() []Node { return []Node{q.where, q.start} }

func (q *Tunnels) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	parents, err := ec.Motives(q.where)
	if err != nil {
		return nil, err
	}
	starts, err := ec.Motives(q.start)
	if err != nil || len(starts) == 0 {
		return nil, err
	}
	origins := make([]spatial.Vec3, len(starts))
	for i, m := range starts {
		origins[i] = m.Center()
	}

	var out []*motive.Motive
	for _, parent := range parents {
		sub, err := parent.Context().Sub(parent)
		if err != nil {
			return nil, err
		}
		ts, err := ec.geometry.Tunnels(ec.ctx, sub.Structure, origins, q.params)
		if err != nil {
			return nil, err
		}
		for _, t := range ts {
			if m := liningMotive(cur, t.Lining); m.Len() > 0 {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// EmptySpace yields the lining of every pocket and void inside the matches
// of where.
type EmptySpace struct {
	where  Sequence
	params cavity.Params
}

// NewEmptySpace builds EmptySpace(ProbeRadius=..,InteriorThreshold=..)[where].
func NewEmptySpace(where Sequence, probe, interior float64) *EmptySpace {
	return &EmptySpace{where: where, params: cavity.Params{ProbeRadius: probe, InteriorThreshold: interior}}
}

func (q *EmptySpace) Signature() string {
	return callOpts("EmptySpace", []string{
		option("ProbeRadius", q.params.ProbeRadius),
		option("InteriorThreshold", q.params.InteriorThreshold),
	}, q.where.Signature())
}
func (q *EmptySpace) Children() []Node { return []Node{q.where} }

func (q *EmptySpace) run(ec *ExecutionContext) ([]*motive.Motive, error) {
	cur, err := ec.Current()
	if err != nil {
		return nil, err
	}
	parents, err := ec.Motives(q.where)
	if err != nil {
		return nil, err
	}
	var out []*motive.Motive
	for _, parent := range parents {
		sub, err := parent.Context().Sub(parent)
		if err != nil {
			return nil, err
		}
		cs, err := ec.geometry.Cavities(ec.ctx, sub.Structure, q.params)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			if m := liningMotive(cur, c.Lining); m.Len() > 0 {
				out = append(out, m)
			}
		}
	}
	return out, nil
}
