// Package query serves bounded historical reads over the event store.
package query

import (
	"context"
	"time"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/model"
)

// Store is the read side of the event store.
type Store interface {
	QueryRange(ctx context.Context, start, end time.Time) ([]model.LogEntry, error)
}

// Service validates caller-supplied bounds before touching the store.
type Service struct {
	store Store
}

// New returns a Service reading from store.
func New(store Store) *Service {
	return &Service{store: store}
}

// Logs returns entries in the closed interval [start, end], newest first
// (timestamp descending, id descending on ties). A start after end is a
// caller error: a fault.InvalidRangeError is returned and the store is
// never accessed.
func (s *Service) Logs(ctx context.Context, start, end time.Time) ([]model.LogEntry, error) {
	if start.After(end) {
		return nil, &fault.InvalidRangeError{Start: start, End: end}
	}
	return s.store.QueryRange(ctx, start, end)
}
