package cache

import (
	"context"
	"sync"
)

// Mutate runs a write exactly once. On success the keys returned by affected
// are invalidated; on failure the store is left untouched and the error is
// returned unchanged. Writes are never retried.
func Mutate[T any](ctx context.Context, s *Store, fn func(context.Context) (T, error), affected func(T) []string) (T, error) {
	v, err := fn(ctx)
	s.metrics.mutation(err)
	if err != nil {
		s.logger.Debug().Err(err).Msg("mutation failed")
		return v, err
	}
	if affected != nil {
		if keys := affected(v); len(keys) > 0 {
			s.Invalidate(keys...)
		}
	}
	return v, nil
}

// Mutation is a reusable write trigger that remembers whether it is running
// and how its last run ended.
type Mutation[V, T any] struct {
	store    *Store
	fn       func(context.Context, V) (T, error)
	affected func(V, T) []string

	mu      sync.Mutex
	pending int
	err     error
}

// NewMutation binds fn to s. affected receives the input and the result of a
// successful run and names the keys to invalidate.
func NewMutation[V, T any](s *Store, fn func(context.Context, V) (T, error), affected func(V, T) []string) *Mutation[V, T] {
	return &Mutation[V, T]{store: s, fn: fn, affected: affected}
}

// Run performs the write with input v.
func (m *Mutation[V, T]) Run(ctx context.Context, v V) (T, error) {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	res, err := Mutate(ctx, m.store, func(ctx context.Context) (T, error) {
		return m.fn(ctx, v)
	}, func(res T) []string {
		if m.affected == nil {
			return nil
		}
		return m.affected(v, res)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	m.err = err
	return res, err
}

// Pending reports whether a run is in progress.
func (m *Mutation[V, T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// Err is the error of the last completed run.
func (m *Mutation[V, T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
