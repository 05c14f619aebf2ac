package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/motivequery/pkg/errors"
)

var ErrLeaseNotHeld = errors.New(errors.ErrCodeConflict, "lease not held by this owner")

// releaseScript deletes the lease key only while it still carries the
// owner's token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// Lease is a best-effort cross-process mutex on one key.  It expires on
// its own after the TTL so a crashed owner never blocks others for long.
type Lease struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// LeaseOption configures a Lease.
type LeaseOption func(*Lease)

// WithLeaseToken fixes the owner token instead of a random uuid.
func WithLeaseToken(token string) LeaseOption {
	return func(l *Lease) { l.token = token }
}

// NewLease prepares a lease on key without acquiring it.
func NewLease(client *Client, key string, ttl time.Duration, opts ...LeaseOption) *Lease {
	l := &Lease{client: client, key: key, ttl: ttl}
	for _, opt := range opts {
		opt(l)
	}
	if l.token == "" {
		l.token = uuid.NewString()
	}
	return l
}

// Key returns the lease key.
func (l *Lease) Key() string { return l.key }

// TryAcquire takes the lease if nobody holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire lease")
	}
	return ok, nil
}

// Release gives the lease back.  It fails with ErrLeaseNotHeld when the
// lease expired or was taken over.
func (l *Lease) Release(ctx context.Context) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lease")
	}
	if n == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}
