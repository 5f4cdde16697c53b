package model

import (
	"encoding/json"
	"time"
)

// LogEntry is the durable unit of record: one duty-status event reported
// by an electronic logging device. Entries are immutable once persisted;
// there is no update or delete path.
type LogEntry struct {
	ID        int64           `db:"id" json:"id"`
	DriverID  string          `db:"driver_id" json:"driver_id"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
	EventType string          `db:"event_type" json:"event_type"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata,omitempty"`
}
