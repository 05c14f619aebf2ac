package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/motivequery/pkg/errors"
)

var (
	ErrResultMiss          = errors.New(errors.ErrCodeNotFound, "result not stored")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "result serialization failed")
)

// leaseTTL bounds how long one process may hold the right to write a key.
const leaseTTL = 30 * time.Second

// StoredResult is the persisted outcome of one query on one structure.
type StoredResult struct {
	RunID       string        `json:"run_id"`
	StructureID string        `json:"structure_id"`
	Signature   string        `json:"signature"`
	Scalar      bool          `json:"scalar"`
	Motives     [][]int       `json:"motives,omitempty"`
	Value       any           `json:"value,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	StoredAt    time.Time     `json:"stored_at"`
}

// ResultStore keeps query results in Redis keyed by structure id and the
// hash of the query signature.
type ResultStore struct {
	client  *Client
	logger  logging.Logger
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
	lease   []LeaseOption
	metrics *prometheus.EngineMetrics
}

// StoreOption configures a ResultStore.
type StoreOption func(*ResultStore)

// WithTTL overrides the result lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *ResultStore) { s.ttl = ttl }
}

// WithMetrics counts failed store operations.
func WithMetrics(m *prometheus.EngineMetrics) StoreOption {
	return func(s *ResultStore) { s.metrics = m }
}

// WithLeaseOptions passes options to every write lease.
func WithLeaseOptions(opts ...LeaseOption) StoreOption {
	return func(s *ResultStore) { s.lease = opts }
}

// NewResultStore returns a store using the client's key prefix and TTL.
func NewResultStore(client *Client, log logging.Logger, opts ...StoreOption) *ResultStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg := client.Config()
	s := &ResultStore{
		client:  client,
		logger:  log,
		prefix:  cfg.KeyPrefix,
		ttl:     cfg.ResultTTL,
		metrics: prometheus.NewNopEngineMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignatureHash returns the key component derived from a query signature.
func SignatureHash(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:12])
}

// Key returns the Redis key of a result.
func (s *ResultStore) Key(structureID, signature string) string {
	return s.prefix + "result:" + structureID + ":" + SignatureHash(signature)
}

// Get loads a stored result.  Missing keys yield ErrResultMiss.
func (s *ResultStore) Get(ctx context.Context, structureID, signature string) (*StoredResult, error) {
	data, err := s.client.Get(ctx, s.Key(structureID, signature)).Bytes()
	if err == redis.Nil {
		return nil, ErrResultMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read result")
	}
	var r StoredResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return &r, nil
}

// Put stores a result, overwriting any previous one.
func (s *ResultStore) Put(ctx context.Context, r *StoredResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := s.client.Set(ctx, s.Key(r.StructureID, r.Signature), string(data), s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write result")
	}
	return nil
}

// GetOrCompute returns the stored result or computes and stores it.
// Concurrent callers in this process share one computation; across
// processes a lease decides who writes.  cached reports a store hit.
func (s *ResultStore) GetOrCompute(ctx context.Context, structureID, signature string,
	compute func(ctx context.Context) (*StoredResult, error)) (r *StoredResult, cached bool, err error) {
	r, err = s.Get(ctx, structureID, signature)
	if err == nil {
		return r, true, nil
	}
	if err != ErrResultMiss {
		prometheus.RecordStoreError(s.metrics, "get")
		s.logger.Warn("Result store unavailable, computing without it",
			logging.StructureID(structureID), logging.Err(err))
		r, err = compute(ctx)
		return r, false, err
	}

	key := s.Key(structureID, signature)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		lease := NewLease(s.client, key+":lease", leaseTTL, s.lease...)
		ok, lerr := lease.TryAcquire(ctx)
		if lerr != nil || !ok {
			return res, nil
		}
		if perr := s.Put(ctx, res); perr != nil {
			prometheus.RecordStoreError(s.metrics, "put")
			s.logger.Warn("Failed to store result", logging.StructureID(structureID), logging.Err(perr))
		}
		if rerr := lease.Release(ctx); rerr != nil {
			s.logger.Debug("Lease release failed", logging.String("key", lease.Key()), logging.Err(rerr))
		}
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*StoredResult), false, nil
}

// DeleteStructure removes every result stored for a structure and returns
// how many keys were deleted.
func (s *ResultStore) DeleteStructure(ctx context.Context, structureID string) (int64, error) {
	var deleted int64
	var cursor uint64
	match := s.prefix + "result:" + structureID + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan results")
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete results")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
