package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/eldstream/internal/fault"
	"github.com/fleetops/eldstream/internal/model"
)

// LogEntryRepository is the durable event store: append and range query
// over log_entries. Entries are immutable once written.
type LogEntryRepository struct {
	pool *pgxpool.Pool
}

// NewLogEntryRepository returns a LogEntryRepository using the given pool.
func NewLogEntryRepository(pool *pgxpool.Pool) *LogEntryRepository {
	return &LogEntryRepository{pool: pool}
}

// Append inserts one entry and fills in its store-assigned id. The insert
// is a single statement: on failure nothing is written and a
// fault.PersistenceError is returned. The row is visible to queries as
// soon as Append returns.
func (r *LogEntryRepository) Append(ctx context.Context, entry *model.LogEntry) error {
	switch {
	case entry.DriverID == "":
		return &fault.ValidationError{Field: "driverId", Reason: "missing"}
	case entry.EventType == "":
		return &fault.ValidationError{Field: "eventType", Reason: "missing"}
	case entry.Timestamp.IsZero():
		return &fault.ValidationError{Field: "timestamp", Reason: "missing"}
	}
	query := `
		INSERT INTO log_entries (driver_id, timestamp, event_type, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		entry.DriverID,
		entry.Timestamp,
		entry.EventType,
		entry.Metadata,
	).Scan(&entry.ID)
	if err != nil {
		return &fault.PersistenceError{Op: "append log entry", Err: err}
	}
	return nil
}

// QueryRange returns all entries with start <= timestamp <= end, ordered
// by timestamp descending with id descending as tie-break. No matches is
// an empty slice, not an error; a start after end is a
// fault.InvalidRangeError.
func (r *LogEntryRepository) QueryRange(ctx context.Context, start, end time.Time) ([]model.LogEntry, error) {
	if start.After(end) {
		return nil, &fault.InvalidRangeError{Start: start, End: end}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, driver_id, timestamp, event_type, metadata
		FROM log_entries
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp DESC, id DESC`, start, end)
	if err != nil {
		return nil, &fault.PersistenceError{Op: "query log entries", Err: err}
	}
	defer rows.Close()

	entries := make([]model.LogEntry, 0)
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(
			&e.ID,
			&e.DriverID,
			&e.Timestamp,
			&e.EventType,
			&e.Metadata,
		); err != nil {
			return nil, &fault.PersistenceError{Op: "scan log entry", Err: err}
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &fault.PersistenceError{Op: "read log entries", Err: err}
	}
	return entries, nil
}
