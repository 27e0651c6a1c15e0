package whatsapp

import (
	"sync"
	"time"
)

// seenSet remembers message ids for ttl so provider redeliveries are skipped.
// It is per process only.
type seenSet struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	seen    map[string]time.Time
	now     func() time.Time
}

func newSeenSet(ttl time.Duration, maxSize int) *seenSet {
	return &seenSet{
		ttl:     ttl,
		maxSize: maxSize,
		seen:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// Mark records id and reports whether it was already present and unexpired.
func (s *seenSet) Mark(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.seen[id]; ok && now.Before(expires) {
		return true
	}
	if len(s.seen) >= s.maxSize {
		s.evict(now)
	}
	s.seen[id] = now.Add(s.ttl)
	return false
}

func (s *seenSet) evict(now time.Time) {
	for id, expires := range s.seen {
		if !now.Before(expires) {
			delete(s.seen, id)
		}
	}
	// Still full of live ids: drop everything rather than grow unbounded.
	if len(s.seen) >= s.maxSize {
		s.seen = make(map[string]time.Time)
	}
}

func (s *seenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
