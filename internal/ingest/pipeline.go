// Package ingest turns one raw device payload into a persisted, published
// fact: validate and normalize, append to the store, then hand the raw
// bytes to the live bus.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/model"
)

// Store is the durable write side of the event store.
type Store interface {
	Append(ctx context.Context, entry *model.LogEntry) error
}

// Publisher is the live side: best-effort broadcast of the raw payload.
type Publisher interface {
	Publish(msg []byte) error
}

// Opts carries optional pipeline hooks.
type Opts struct {
	// OnEntry is called with each successfully persisted entry, after the
	// append and regardless of publish outcome.
	OnEntry func(*model.LogEntry)
}

// Pipeline is the ingest coordinator. One durable write and at most one
// publish per call; no retries.
type Pipeline struct {
	store   Store
	pub     Publisher
	onEntry func(*model.LogEntry)
	log     zerolog.Logger
}

// New returns a Pipeline writing to store and publishing to pub.
func New(store Store, pub Publisher, logger zerolog.Logger, opts *Opts) *Pipeline {
	p := &Pipeline{
		store: store,
		pub:   pub,
		log:   logger.With().Str("component", "ingest").Logger(),
	}
	if opts != nil {
		p.onEntry = opts.OnEntry
	}
	return p
}

var parserPool fastjson.ParserPool

// Ingest validates raw, persists a LogEntry extracted from it, and then
// publishes the raw payload verbatim to the bus. A validation or
// persistence failure aborts before publish and is returned to the
// caller; a publish failure is logged and swallowed because the persisted
// write is the source of truth.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (*model.LogEntry, error) {
	entry, err := parsePayload(raw)
	if err != nil {
		return nil, err
	}

	if err := p.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	if p.onEntry != nil {
		p.onEntry(entry)
	}

	if err := p.pub.Publish(raw); err != nil {
		// Best-effort live delivery: the entry is durable, viewers catch
		// up through the query path.
		p.log.Warn().Err(err).Str("driver_id", entry.DriverID).Msg("live publish failed")
	}
	return entry, nil
}

// parsePayload peeks the canonical fields out of the raw JSON without
// re-encoding it; the payload itself is stored verbatim as metadata.
func parsePayload(raw []byte) (*model.LogEntry, error) {
	parser := parserPool.Get()
	defer parserPool.Put(parser)

	v, err := parser.ParseBytes(raw)
	if err != nil {
		return nil, &fault.ValidationError{Field: "payload", Reason: "not valid JSON"}
	}

	driverID := firstString(v, "driverId", "driver_id")
	if driverID == "" {
		return nil, &fault.ValidationError{Field: "driverId", Reason: "missing"}
	}
	eventType := firstString(v, "status", "eventType", "event_type")
	if eventType == "" {
		return nil, &fault.ValidationError{Field: "eventType", Reason: "missing"}
	}
	ts := firstString(v, "timestamp")
	if ts == "" {
		return nil, &fault.ValidationError{Field: "timestamp", Reason: "missing"}
	}
	when, err := NormalizeTimestamp(ts)
	if err != nil {
		return nil, &fault.ValidationError{Field: "timestamp", Reason: err.Error()}
	}

	metadata := make([]byte, len(raw))
	copy(metadata, raw)
	return &model.LogEntry{
		DriverID:  driverID,
		Timestamp: when,
		EventType: eventType,
		Metadata:  metadata,
	}, nil
}

func firstString(v *fastjson.Value, keys ...string) string {
	for _, key := range keys {
		if b := v.GetStringBytes(key); len(b) > 0 {
			return string(b)
		}
	}
	return ""
}

// NormalizeTimestamp parses an ISO-8601 instant carrying either a literal
// UTC marker or an explicit offset and returns the canonical UTC instant.
// Anything else is rejected: a local time without offset is ambiguous.
func NormalizeTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
