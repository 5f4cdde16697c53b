// Package fault defines the error taxonomy shared across the ingest,
// query, and live-delivery paths. Handlers map these to HTTP statuses;
// everything else wraps and passes them through.
package fault

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed or missing required field on an
// inbound payload. Nothing is persisted or published when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidRangeError reports a query range whose start is after its end.
// The store is never touched when it is returned.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// PersistenceError reports a storage-layer failure. The failed operation
// leaves no partial record behind.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError reports a best-effort live-delivery failure: a publish on
// a closed bus or a send to a dead subscriber. It is contained at the
// boundary where it occurs and never surfaces to ingest callers.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery: %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
