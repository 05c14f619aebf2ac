// Package batch evaluates one query against many structures concurrently.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/motivequery/internal/config"
	"github.com/turtacn/motivequery/internal/domain/motive"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/infrastructure/database/redis"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/pkg/errors"
)

// ItemStatus is the outcome of one batch item.
type ItemStatus string

const (
	StatusOK        ItemStatus = "ok"
	StatusFailed    ItemStatus = "failed"
	StatusCancelled ItemStatus = "cancelled"
)

// Item is one structure to evaluate.  Load runs on the worker that
// evaluates the item.
type Item struct {
	Source string
	Load   func() (*structure.Structure, error)
}

// FromStructures wraps already loaded structures.
func FromStructures(ss ...*structure.Structure) []Item {
	items := make([]Item, len(ss))
	for i, s := range ss {
		s := s
		items[i] = Item{Source: s.ID, Load: func() (*structure.Structure, error) { return s, nil }}
	}
	return items
}

// FromFiles loads structures from PDB or document files.
func FromFiles(paths ...string) []Item {
	items := make([]Item, len(paths))
	for i, p := range paths {
		p := p
		items[i] = Item{Source: filepath.Base(p), Load: func() (*structure.Structure, error) { return structure.LoadFile(p) }}
	}
	return items
}

// ItemResult is the result of the query on one structure.
type ItemResult struct {
	Index       int           `json:"index"`
	Source      string        `json:"source"`
	StructureID string        `json:"structure_id,omitempty"`
	Status      ItemStatus    `json:"status"`
	Cached      bool          `json:"cached"`
	Scalar      bool          `json:"scalar"`
	Motives     [][]int       `json:"motives,omitempty"`
	Value       any           `json:"value,omitempty"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	Err         error         `json:"-"`
}

// BatchResult aggregates a run.  Items keep the input order.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Signature string        `json:"signature"`
	Started   time.Time     `json:"started"`
	Elapsed   time.Duration `json:"elapsed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Cached    int           `json:"cached"`
	Items     []ItemResult  `json:"items"`
}

// Store persists per-structure results; *redis.ResultStore implements it.
type Store interface {
	GetOrCompute(ctx context.Context, structureID, signature string,
		compute func(ctx context.Context) (*redis.StoredResult, error)) (*redis.StoredResult, bool, error)
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(l logging.Logger) Option { return func(r *Runner) { r.logger = l } }

func WithMetrics(m *prometheus.EngineMetrics) Option { return func(r *Runner) { r.metrics = m } }

// WithStore enables result persistence.
func WithStore(s Store) Option { return func(r *Runner) { r.store = s } }

// WithQueryOptions passes options to every execution context.
func WithQueryOptions(opts ...query.Option) Option {
	return func(r *Runner) { r.queryOpts = append(r.queryOpts, opts...) }
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(next func() string) Option { return func(r *Runner) { r.newID = next } }

// Runner evaluates queries over structure batches.
type Runner struct {
	cfg       config.BatchConfig
	logger    logging.Logger
	metrics   *prometheus.EngineMetrics
	store     Store
	queryOpts []query.Option
	newID     func() string
	now       func() time.Time
}

// NewRunner builds a runner.  Zero config fields take the defaults.
func NewRunner(cfg config.BatchConfig, opts ...Option) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultBatchConcurrency
	}
	r := &Runner{
		cfg:     cfg,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNopEngineMetrics(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates q against every item.  Item failures are reported per item;
// Run itself fails only when there is nothing to do or nothing succeeded.
func (r *Runner) Run(ctx context.Context, q query.Node, items []Item) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeBatchEmpty, "batch: no structures to evaluate")
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	res := &BatchResult{
		RunID:     r.newID(),
		Signature: q.Signature(),
		Started:   r.now(),
		Items:     make([]ItemResult, len(items)),
	}
	log := r.logger.With(logging.RunID(res.RunID))
	log.Info("Batch started", logging.Signature(res.Signature), logging.Int("items", len(items)),
		logging.Int("concurrency", r.cfg.Concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			res.Items[i] = r.runOne(gctx, log, res.RunID, q, i, it)
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range res.Items {
		switch item.Status {
		case StatusOK:
			res.Succeeded++
			if item.Cached {
				res.Cached++
			}
		case StatusCancelled:
			res.Cancelled++
		default:
			res.Failed++
		}
	}
	res.Elapsed = time.Since(res.Started)
	prometheus.RecordBatch(r.metrics, res.Elapsed, res.Failed+res.Cancelled)
	log.Info("Batch finished", logging.Int("succeeded", res.Succeeded), logging.Int("failed", res.Failed),
		logging.Int("cancelled", res.Cancelled), logging.Int("cached", res.Cached), logging.Duration("elapsed", res.Elapsed))

	if res.Succeeded == 0 {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, errors.ErrCodeQueryCancelled, "batch: cancelled")
		}
		return res, errors.Newf(errors.ErrCodeBatchFailed, "batch: all %d structures failed", len(items))
	}
	return res, nil
}

func (r *Runner) runOne(ctx context.Context, log logging.Logger, runID string, q query.Node, i int, it Item) ItemResult {
	out := ItemResult{Index: i, Source: it.Source}
	if ctx.Err() != nil {
		out.Status, out.Err = StatusCancelled, ctx.Err()
		out.Error = out.Err.Error()
		r.metrics.BatchItemsTotal.WithLabelValues(string(out.Status)).Inc()
		return out
	}

	inFlight := r.metrics.BatchInFlight.WithLabelValues()
	inFlight.Inc()
	defer inFlight.Dec()
	start := time.Now()

	stored, cached, err := r.evaluate(ctx, log, runID, q, it, &out)
	out.Elapsed = time.Since(start)
	switch {
	case err != nil && (errors.IsCode(err, errors.ErrCodeQueryCancelled) || ctx.Err() != nil):
		out.Status = StatusCancelled
	case err != nil:
		out.Status = StatusFailed
		log.Warn("Batch item failed", logging.String("source", it.Source), logging.Err(err))
	default:
		out.Status = StatusOK
		out.Cached = cached
		out.Motives = stored.Motives
		out.Value = stored.Value
		out.Scalar = stored.Scalar
	}
	if err != nil {
		out.Err, out.Error = err, err.Error()
	}
	r.metrics.BatchItemsTotal.WithLabelValues(string(out.Status)).Inc()
	return out
}

func (r *Runner) evaluate(ctx context.Context, log logging.Logger, runID string, q query.Node, it Item, out *ItemResult) (*redis.StoredResult, bool, error) {
	s, err := it.Load()
	if err != nil {
		return nil, false, err
	}
	out.StructureID = s.ID
	sig := q.Signature()

	compute := func(ctx context.Context) (*redis.StoredResult, error) {
		start := time.Now()
		opts := append(append([]query.Option{}, r.queryOpts...),
			query.WithContext(ctx), query.WithLogger(log.With(logging.StructureID(s.ID))))
		res, err := query.Evaluate(s, q, opts...)
		elapsed := time.Since(start)
		prometheus.RecordQuery(r.metrics, elapsed, len(res.Motives), err)
		if err != nil {
			return nil, err
		}
		return &redis.StoredResult{
			RunID:       runID,
			StructureID: s.ID,
			Signature:   sig,
			Scalar:      res.Scalar,
			Motives:     MotiveIDs(res.Motives),
			Value:       Plain(res.Value),
			Elapsed:     elapsed,
			StoredAt:    r.now(),
		}, nil
	}

	if r.store == nil {
		stored, err := compute(ctx)
		return stored, false, err
	}
	stored, cached, err := r.store.GetOrCompute(ctx, s.ID, sig, compute)
	if err == nil {
		prometheus.RecordStoreAccess(r.metrics, cached)
	}
	return stored, cached, err
}

// MotiveIDs lists the atom ids of every motive.
func MotiveIDs(ms []*motive.Motive) [][]int {
	if len(ms) == 0 {
		return nil
	}
	out := make([][]int, len(ms))
	for i, m := range ms {
		out[i] = m.Atoms().IDs()
	}
	return out
}

// Plain converts a query value into JSON-friendly data: motives become
// atom id lists and functions their signature.
func Plain(v any) any {
	switch x := v.(type) {
	case *motive.Motive:
		return x.Atoms().IDs()
	case []*motive.Motive:
		return MotiveIDs(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Plain(e)
		}
		return out
	case query.Node:
		return x.Signature()
	}
	return v
}

// Summary renders the per-status counts.
func (b *BatchResult) Summary() string {
	return fmt.Sprintf("succeeded=%d failed=%d cancelled=%d cached=%d", b.Succeeded, b.Failed, b.Cancelled, b.Cached)
}
