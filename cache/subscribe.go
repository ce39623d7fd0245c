package cache

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription delivers snapshots of one key as its entry changes. Only the
// latest snapshot is buffered; a slow reader skips intermediate states.
type Subscription struct {
	ID  uuid.UUID
	Key string
	C   <-chan Snapshot

	ch    chan Snapshot
	store *Store
	once  sync.Once
}

// Subscribe registers interest in key and immediately delivers its current
// state. Entries with subscribers are revalidated as soon as they are
// invalidated.
func (s *Store) Subscribe(key string) *Subscription {
	ch := make(chan Snapshot, 1)
	sub := &Subscription{ID: uuid.New(), Key: key, C: ch, ch: ch, store: s}

	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subs[key]
	if !ok {
		set = make(map[uuid.UUID]*Subscription)
		s.subs[key] = set
	}
	set[sub.ID] = sub
	sub.deliver(s.snapshotLocked(key))
	return sub
}

// Unsubscribe stops delivery and closes C. A fetch in flight for the key is
// not aborted. Calling it more than once is safe.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subs[sub.Key]; ok {
			delete(set, sub.ID)
			if len(set) == 0 {
				delete(s.subs, sub.Key)
			}
		}
		close(sub.ch)
	})
}

// deliver replaces any undelivered snapshot with snap. Callers hold the
// store lock, which serializes senders against close.
func (sub *Subscription) deliver(snap Snapshot) {
	select {
	case sub.ch <- snap:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}

func (s *Store) notifyLocked(key string) {
	set := s.subs[key]
	if len(set) == 0 {
		return
	}
	snap := s.snapshotLocked(key)
	for _, sub := range set {
		sub.deliver(snap)
	}
}
