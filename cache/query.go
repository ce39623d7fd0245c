package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Result is what a query observed. Value is meaningful only when HasValue is
// set; Err may accompany a value when the last revalidation failed.
type Result[T any] struct {
	Key       string
	Value     T
	HasValue  bool
	Err       error
	Status    Status
	UpdatedAt time.Time
}

// IsLoading reports whether the caller has nothing to show yet.
func (r Result[T]) IsLoading() bool {
	return r.Status == StatusLoading
}

// IsStale reports whether the value shown may be out of date.
func (r Result[T]) IsStale() bool {
	return r.Status == StatusStale || r.Status == StatusRevalidating
}

type queryOptions struct {
	staleTime    time.Duration
	hasStaleTime bool
	refetch      bool
}

type QueryOption func(*queryOptions)

// StaleTime overrides the store's staleness window for this key.
func StaleTime(d time.Duration) QueryOption {
	return func(o *queryOptions) {
		o.staleTime, o.hasStaleTime = d, true
	}
}

// Refetch waits for a new fetch even when a fresh value is cached.
func Refetch() QueryOption {
	return func(o *queryOptions) { o.refetch = true }
}

// Query returns the value cached under key, fetching it when needed.
//
// A fresh value is returned as is. A stale value is returned immediately
// while a background fetch revalidates it. With no value, Query waits for the
// fetch or for ctx to end; in the latter case the fetch keeps running and
// populates the entry for later callers. Concurrent callers share one fetch.
func Query[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (T, error), opts ...QueryOption) Result[T] {
	o := queryOptions{staleTime: s.staleTime}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	e := s.entryLocked(key)
	e.fetch = func(ctx context.Context) (any, error) { return fetch(ctx) }
	if o.hasStaleTime {
		e.staleTime = o.staleTime
	}
	status := e.status(s.now())

	switch {
	case status == StatusFresh && !o.refetch:
		s.metrics.query("fresh")
		snap := s.snapshotLocked(key)
		s.mu.Unlock()
		return resultOf[T](snap)

	case e.hasValue && !o.refetch:
		s.metrics.query("stale")
		if !e.fetching {
			s.startLocked(ctx, e)
			s.logger.Debug().Str("key", key).Msg("serving stale value, revalidating")
		}
		snap := s.snapshotLocked(key)
		s.mu.Unlock()
		return resultOf[T](snap)
	}

	s.metrics.query("miss")
	ch := s.startLocked(ctx, e)
	s.mu.Unlock()

	select {
	case res := <-ch:
		s.mu.Lock()
		cur, ok := s.entries[key]
		snap := s.snapshotLocked(key)
		s.mu.Unlock()
		if !ok || cur != e {
			// Removed while in flight; report what the fetch produced.
			return resultOf[T](Snapshot{
				Key:      key,
				Value:    res.Val,
				HasValue: res.Err == nil,
				Err:      res.Err,
				Status:   settledStatus(res.Err),
			})
		}
		if res.Err != nil && snap.Err == nil {
			snap.Err = res.Err
		}
		return resultOf[T](snap)

	case <-ctx.Done():
		snap := s.Peek(key)
		snap.Err = ctx.Err()
		return resultOf[T](snap)
	}
}

func settledStatus(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusFresh
}

func resultOf[T any](snap Snapshot) Result[T] {
	r := Result[T]{
		Key:       snap.Key,
		HasValue:  snap.HasValue,
		Err:       snap.Err,
		Status:    snap.Status,
		UpdatedAt: snap.UpdatedAt,
	}
	if !snap.HasValue {
		return r
	}
	v, ok := snap.Value.(T)
	if !ok {
		var zero T
		r.HasValue = false
		r.Err = errors.Newf("cache: key %q holds %T, not %T", snap.Key, snap.Value, zero)
		return r
	}
	r.Value = v
	return r
}
