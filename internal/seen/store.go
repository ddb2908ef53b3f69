// Package seen holds the bounded set of item identifiers used to skip items
// that earlier cycles already processed.
package seen

import "sync"

// DefaultCapacity is the cap used when none is configured.
const DefaultCapacity = 10000

// Store is an insertion-ordered membership set with a hard cap. When an
// insert pushes it past the cap, only the most recent cap/2 ids are kept.
// Contents live for the lifetime of the process.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    []string
	ids      map[string]struct{}
}

// NewStore creates a Store. A capacity below 2 falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		order:    make([]string, 0, capacity+1),
		ids:      make(map[string]struct{}, capacity+1),
	}
}

// IsNew reports whether id has not been marked seen.
func (s *Store) IsNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return !ok
}

// MarkSeen records id. Marking an id that is already present is a no-op.
func (s *Store) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	if len(s.order) > s.capacity {
		s.compact()
	}
}

// Size returns the number of ids currently held.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Capacity returns the configured cap.
func (s *Store) Capacity() int {
	return s.capacity
}

// compact keeps the newest capacity/2 ids in insertion order.
func (s *Store) compact() {
	keep := s.capacity / 2
	tail := s.order[len(s.order)-keep:]

	order := make([]string, keep, s.capacity+1)
	copy(order, tail)
	ids := make(map[string]struct{}, s.capacity+1)
	for _, id := range order {
		ids[id] = struct{}{}
	}
	s.order = order
	s.ids = ids
}
