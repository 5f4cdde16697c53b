package query

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/model"
)

// recordingStore implements the store contract, ordering included:
// timestamp descending, id descending on ties.
type recordingStore struct {
	calls   int
	entries []model.LogEntry
}

func (s *recordingStore) QueryRange(_ context.Context, start, end time.Time) ([]model.LogEntry, error) {
	s.calls++
	out := make([]model.LogEntry, 0)
	for _, e := range s.entries {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func TestLogsRejectsReversedRangeWithoutStoreAccess(t *testing.T) {
	store := &recordingStore{}
	svc := New(store)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Logs(context.Background(), start, end)

	var re *fault.InvalidRangeError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want fault.InvalidRangeError", err)
	}
	if store.calls != 0 {
		t.Fatalf("store accessed %d times, want 0", store.calls)
	}
}

func TestLogsInclusiveBoundaries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	store := &recordingStore{entries: []model.LogEntry{
		{ID: 1, DriverID: "D1", Timestamp: start, EventType: "ON_DUTY"},            // on the start bound
		{ID: 2, DriverID: "D1", Timestamp: end, EventType: "OFF_DUTY"},             // on the end bound
		{ID: 3, DriverID: "D1", Timestamp: end.Add(time.Second), EventType: "X"},   // outside
		{ID: 4, DriverID: "D1", Timestamp: start.Add(-time.Second), EventType: ""}, // outside
	}}
	svc := New(store)

	got, err := svc.Logs(context.Background(), start, end)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (both bounds inclusive)", len(got))
	}
}

func TestLogsOrdersNewestFirstWithIDTieBreak(t *testing.T) {
	early := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := &recordingStore{entries: []model.LogEntry{
		{ID: 1, DriverID: "D1", Timestamp: early, EventType: "ON_DUTY"},
		{ID: 2, DriverID: "D1", Timestamp: late, EventType: "DRIVING"},
		{ID: 3, DriverID: "D2", Timestamp: late, EventType: "ON_DUTY"}, // same instant as id 2
	}}
	svc := New(store)

	got, err := svc.Logs(context.Background(), early, late)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, wantID := range []int64{3, 2, 1} {
		if got[i].ID != wantID {
			t.Fatalf("entries[%d].ID = %d, want %d (timestamp DESC, id DESC on ties)", i, got[i].ID, wantID)
		}
	}
}

func TestLogsEqualBoundsIsValid(t *testing.T) {
	store := &recordingStore{}
	svc := New(store)
	instant := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := svc.Logs(context.Background(), instant, instant)
	if err != nil {
		t.Fatalf("equal bounds should be valid: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d entries, want empty result (not an error)", len(got))
	}
	if store.calls != 1 {
		t.Fatalf("store accessed %d times, want 1", store.calls)
	}
}
