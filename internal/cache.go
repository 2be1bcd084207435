package internal

import (
	"context"
	"time"
)

// Cached is a value with the time it was fetched. The owner keeps it and
// decides the TTL at each read; there is no package-level cache state.
type Cached[T any] struct {
	Value     T
	FetchedAt time.Time
}

// Fresh reports whether the value was fetched less than ttl before now.
// A never-fetched value or a non-positive ttl is never fresh.
func (c *Cached[T]) Fresh(now time.Time, ttl time.Duration) bool {
	if c == nil || c.FetchedAt.IsZero() || ttl <= 0 {
		return false
	}
	return now.Sub(c.FetchedAt) < ttl
}

// Refresh returns the cached value while fresh, otherwise calls load and stores
// its result. On load failure the previous value is kept and the error returned.
func (c *Cached[T]) Refresh(ctx context.Context, now time.Time, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c.Fresh(now, ttl) {
		return c.Value, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Value = v
	c.FetchedAt = now
	return v, nil
}

// Invalidate forces the next Refresh to load.
func (c *Cached[T]) Invalidate() {
	c.FetchedAt = time.Time{}
}
