package query

import (
	"context"
	"strconv"
	"strings"

	"github.com/turtacn/motivequery/internal/config"
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

// Option configures an ExecutionContext.
type Option func(*ExecutionContext)

// WithContext sets the context checked by long-running operators.
func WithContext(ctx context.Context) Option {
	return func(ec *ExecutionContext) { ec.ctx = ctx }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(ec *ExecutionContext) { ec.logger = l }
}

// WithEngineConfig overrides the engine tuning knobs.
func WithEngineConfig(cfg config.EngineConfig) Option {
	return func(ec *ExecutionContext) { ec.cfg = cfg }
}

// WithEnvironment registers further structures reachable through
// StructureMotive.
func WithEnvironment(ss ...*structure.Structure) Option {
	return func(ec *ExecutionContext) {
		for _, s := range ss {
			ec.env[strings.ToLower(s.ID)] = motive.NewContext(s)
		}
	}
}

// WithGeometry sets the cavity and tunnel service.
func WithGeometry(g GeometryService) Option {
	return func(ec *ExecutionContext) { ec.geometry = g }
}

// WithCache makes the context use c instead of a fresh cache.
func WithCache(c *MotiveCache) Option {
	return func(ec *ExecutionContext) { ec.cache = c }
}

// ─────────────────────────────────────────────────────────────────────────────
// ExecutionContext
// ─────────────────────────────────────────────────────────────────────────────

// ExecutionContext is the mutable state of one evaluation: the current
// motive context (swapped by Find and Count), the structure environment,
// the symbol binding stacks, the current motive and the memo cache.
type ExecutionContext struct {
	ctx      context.Context
	root     *motive.Context
	current  *motive.Context
	env      map[string]*motive.Context
	symbols  map[string][]any
	motive   *motive.Motive
	cache    *MotiveCache
	volatile map[Node]bool
	cfg      config.EngineConfig
	logger   logging.Logger
	geometry GeometryService
}

// NewExecutionContext prepares the evaluation of queries against s.
func NewExecutionContext(s *structure.Structure, opts ...Option) *ExecutionContext {
	root := motive.NewContext(s)
	ec := &ExecutionContext{
		ctx:      context.Background(),
		root:     root,
		current:  root,
		env:      map[string]*motive.Context{strings.ToLower(s.ID): root},
		symbols:  make(map[string][]any),
		volatile: make(map[Node]bool),
		cfg:      config.Default().Engine,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.cache == nil {
		ec.cache = NewMotiveCache()
	}
	if ec.geometry == nil {
		ec.geometry = newGridGeometry(ec.cfg.Cavity)
	}
	return ec
}

// Cache returns the memo cache.
func (ec *ExecutionContext) Cache() *MotiveCache { return ec.cache }

// Root returns the motive context of the structure the evaluation started
// from.
func (ec *ExecutionContext) Root() *motive.Context { return ec.root }

// Reset clears the cache and all bindings so the context can evaluate an
// unrelated query.
func (ec *ExecutionContext) Reset() {
	ec.cache.Reset()
	ec.current = ec.root
	ec.motive = nil
	ec.symbols = make(map[string][]any)
	ec.volatile = make(map[Node]bool)
}

// Current returns the current motive context.
func (ec *ExecutionContext) Current() (*motive.Context, error) {
	if ec.current == nil {
		return nil, errors.New(errors.ErrCodeQueryNoContext, "MotiveContext is not set.")
	}
	return ec.current, nil
}

// enter makes c the current motive context until the returned function is
// called.
func (ec *ExecutionContext) enter(c *motive.Context) func() {
	old := ec.current
	ec.current = c
	return func() { ec.current = old }
}

// checkpoint fails once the evaluation context is cancelled.
func (ec *ExecutionContext) checkpoint() error {
	if err := ec.ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueryCancelled, "evaluation cancelled")
	}
	return nil
}

// ── Symbols ──────────────────────────────────────────────────────────────────

// bind pushes values for names and returns the function that pops them.
func (ec *ExecutionContext) bind(names []string, values []any) func() {
	for i, n := range names {
		ec.symbols[n] = append(ec.symbols[n], values[i])
	}
	return func() {
		for _, n := range names {
			if st := ec.symbols[n]; len(st) > 0 {
				ec.symbols[n] = st[:len(st)-1]
			}
		}
	}
}

func (ec *ExecutionContext) lookup(name string) (any, error) {
	if st := ec.symbols[name]; len(st) > 0 {
		return st[len(st)-1], nil
	}
	return nil, errors.Newf(errors.ErrCodeQueryUndefinedSymbol, "The symbol '%s' is not defined.", name)
}

// withMotive makes m the current motive until the returned function is
// called.
func (ec *ExecutionContext) withMotive(m *motive.Motive) func() {
	old := ec.motive
	ec.motive = m
	return func() { ec.motive = old }
}

// ── Evaluation ───────────────────────────────────────────────────────────────

func (ec *ExecutionContext) isVolatile(q Node) bool {
	v, ok := ec.volatile[q]
	if !ok {
		_, bypass := q.(uncached)
		v = bypass || freeSymbols(q, make(map[string]int))
		ec.volatile[q] = v
	}
	return v
}

// cacheKey scopes the signature by the current motive context when it is
// not the root one.
func (ec *ExecutionContext) cacheKey(q Node) string {
	if ec.current == ec.root {
		return q.Signature()
	}
	return "@" + strconv.FormatUint(ec.current.Seq(), 10) + ":" + q.Signature()
}

// Motives evaluates a sequence node through the memo cache.
func (ec *ExecutionContext) Motives(q Sequence) ([]*motive.Motive, error) {
	if ec.isVolatile(q) {
		return q.run(ec)
	}
	key := ec.cacheKey(q)
	switch ec.cache.bump(key) {
	case 1:
		ec.cache.stats.Executions++
		return q.run(ec)
	case 2:
		ms, err := q.run(ec)
		if err != nil {
			return nil, err
		}
		ec.cache.store(key, ms)
		ec.logger.Debug("motive cache promotion", logging.Signature(key), logging.Int("motives", len(ms)))
		return ms, nil
	default:
		return ec.cache.lookup(key)
	}
}

// Value evaluates a scalar node.
func (ec *ExecutionContext) Value(q Scalar) (any, error) { return q.eval(ec) }

// evalMotive evaluates q and requires a motive.
func (ec *ExecutionContext) evalMotive(q Scalar) (*motive.Motive, error) {
	v, err := q.eval(ec)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*motive.Motive)
	if !ok {
		return nil, errors.TypeMismatch("%s: expected a motive, got %s.", q.Signature(), typeName(v))
	}
	return m, nil
}

// proximityTree returns the tree over the matches of q, building and
// caching it on first use.
func (ec *ExecutionContext) proximityTree(q Sequence) (*motive.ProximityTree, error) {
	return ec.proximityTreeOf(q, nil)
}

// proximityTreeOf is proximityTree for callers that already hold the
// matches of q.  A nil ms evaluates q.
func (ec *ExecutionContext) proximityTreeOf(q Sequence, ms []*motive.Motive) (*motive.ProximityTree, error) {
	volatile := ec.isVolatile(q)
	key := ec.cacheKey(q)
	if !volatile {
		if t, ok := ec.cache.tree(key); ok {
			return t, nil
		}
	}
	if ms == nil {
		var err error
		if ms, err = ec.Motives(q); err != nil {
			return nil, err
		}
	}
	t := motive.NewProximityTree(ms)
	if !volatile {
		ec.cache.storeTree(key, t)
	}
	return t, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case bool:
		return "a boolean"
	case int, float64:
		return "a number"
	case string:
		return "a string"
	case *motive.Motive:
		return "a motive"
	case []any:
		return "a list"
	case *Lambda:
		return "a function"
	}
	return "an unknown value"
}
