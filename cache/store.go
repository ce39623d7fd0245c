// Package cache is a keyed, time-aware store for remote reads. It
// deduplicates concurrent fetches, serves stale values while revalidating
// them in the background, and coordinates invalidation after writes.
//
// One mutex guards every entry and is held only for state transitions, never
// across a fetch. Fetches run on a context detached from the caller, so a
// caller that gives up never aborts the fetch other callers may be sharing.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const DefaultStaleTime = time.Minute

type fetchFunc func(context.Context) (any, error)

type entry struct {
	key       string
	value     any
	hasValue  bool
	err       error
	updatedAt time.Time
	staleTime time.Duration

	// invalidated forces the entry stale regardless of its age.
	invalidated bool
	fetching    bool
	// dirty records an invalidation that arrived while a fetch was in
	// flight; the result of that fetch is stale on arrival.
	dirty bool
	fetch fetchFunc
}

func (e *entry) status(now time.Time) Status {
	switch {
	case !e.hasValue && e.fetching:
		return StatusLoading
	case !e.hasValue && e.err != nil:
		return StatusError
	case !e.hasValue:
		return StatusEmpty
	case e.fetching:
		return StatusRevalidating
	case e.invalidated || e.err != nil || now.Sub(e.updatedAt) >= e.staleTime:
		return StatusStale
	default:
		return StatusFresh
	}
}

// Snapshot is a point-in-time view of one entry.
type Snapshot struct {
	Key       string
	Value     any
	HasValue  bool
	Err       error
	Status    Status
	UpdatedAt time.Time
}

// Store holds cache entries. Create one with New; the zero value is not
// usable.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[string]map[uuid.UUID]*Subscription
	group   singleflight.Group

	staleTime time.Duration
	retry     RetryPolicy
	logger    zerolog.Logger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Store)

// WithStaleTime sets the default window during which a value is fresh.
func WithStaleTime(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.staleTime = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		entries:   make(map[string]*entry),
		subs:      make(map[string]map[uuid.UUID]*Subscription),
		staleTime: DefaultStaleTime,
		retry:     DefaultRetryPolicy(),
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StaleTime returns the default staleness window.
func (s *Store) StaleTime() time.Duration {
	return s.staleTime
}

// Peek returns the current state of key without fetching.
func (s *Store) Peek(key string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(key)
}

// Keys lists the keys currently held, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Len is the number of entries held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Invalidate marks the entries stale. Entries with subscribers and a known
// fetcher are revalidated right away; the rest are refetched on their next
// query. Keys that are not cached are ignored. It returns the number of
// entries affected.
func (s *Store) Invalidate(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			s.invalidateLocked(e)
			n++
		}
	}
	s.metrics.invalidated(n)
	if n > 0 {
		s.logger.Debug().Strs("keys", keys).Int("affected", n).Msg("cache invalidated")
	}
	return n
}

// InvalidatePrefix invalidates every entry whose key is prefix or extends it
// by whole segments.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.entries {
		if HasKeyPrefix(key, prefix) {
			s.invalidateLocked(e)
			n++
		}
	}
	s.metrics.invalidated(n)
	if n > 0 {
		s.logger.Debug().Str("prefix", prefix).Int("affected", n).Msg("cache invalidated")
	}
	return n
}

func (s *Store) invalidateLocked(e *entry) {
	if e.fetching {
		e.dirty = true
		return
	}
	e.invalidated = true
	if e.fetch != nil && len(s.subs[e.key]) > 0 {
		s.startLocked(context.Background(), e)
		return
	}
	s.notifyLocked(e.key)
}

// Remove drops the entries outright. A fetch in flight for a removed key
// still completes, but its result is discarded.
func (s *Store) Remove(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		if e.fetching {
			s.group.Forget(key)
		}
		delete(s.entries, key)
		s.notifyLocked(key)
	}
	s.metrics.setEntries(len(s.entries))
}

// Reset drops every entry. Subscriptions stay registered and observe an
// empty snapshot.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for key, e := range s.entries {
		if e.fetching {
			s.group.Forget(key)
		}
		keys = append(keys, key)
	}
	s.entries = make(map[string]*entry)
	for _, key := range keys {
		s.notifyLocked(key)
	}
	s.metrics.setEntries(0)
}

func (s *Store) entryLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{key: key, staleTime: s.staleTime}
		s.entries[key] = e
		s.metrics.setEntries(len(s.entries))
	}
	return e
}

func (s *Store) snapshotLocked(key string) Snapshot {
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{Key: key, Status: StatusEmpty}
	}
	return Snapshot{
		Key:       key,
		Value:     e.value,
		HasValue:  e.hasValue,
		Err:       e.err,
		Status:    e.status(s.now()),
		UpdatedAt: e.updatedAt,
	}
}

// startLocked joins the fetch in flight for e, or starts one. The returned
// channel delivers the shared outcome once the entry has been updated.
func (s *Store) startLocked(ctx context.Context, e *entry) <-chan singleflight.Result {
	fetch := e.fetch
	if !e.fetching {
		e.fetching = true
		e.dirty = false
		s.notifyLocked(e.key)
	}
	detached := context.WithoutCancel(ctx)
	return s.group.DoChan(e.key, func() (any, error) {
		v, err := s.retry.run(detached, fetch, func(err error, next time.Duration) {
			s.logger.Debug().Err(err).Str("key", e.key).Dur("retry_in", next).Msg("fetch failed, retrying")
		})
		s.commit(e, v, err)
		return v, err
	})
}

// commit stores the outcome of a fetch. Results for entries removed while
// the fetch was in flight are dropped.
func (s *Store) commit(e *entry, v any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.fetch(err)
	if s.entries[e.key] != e {
		return
	}
	s.group.Forget(e.key)
	e.fetching = false
	now := s.now()
	if err != nil {
		e.err = err
		s.logger.Warn().Err(err).Str("key", e.key).Bool("has_value", e.hasValue).Msg("fetch failed")
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.updatedAt = now
		e.invalidated = false
	}
	if e.dirty {
		e.dirty = false
		e.invalidated = true
		if e.fetch != nil && len(s.subs[e.key]) > 0 {
			s.startLocked(context.Background(), e)
			return
		}
	}
	s.notifyLocked(e.key)
}
