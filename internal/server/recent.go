package server

import (
	"sync"

	"github.com/fleetops/eldstream/internal/model"
)

// RecentStore keeps the latest persisted entries in a fixed-capacity
// ring. It is fed by the ingest pipeline and serves dashboards that want
// "what just happened" without a range query.
type RecentStore struct {
	mu       sync.Mutex
	entries  []*model.LogEntry
	capacity int
}

func newRecentStore(capacity int) *RecentStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentStore{capacity: capacity}
}

// Add records one persisted entry, evicting the oldest past capacity.
func (s *RecentStore) Add(entry *model.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
}

// Entries returns the held entries newest first.
func (s *RecentStore) Entries() []*model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.LogEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return out
}
