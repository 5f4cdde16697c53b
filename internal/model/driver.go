package model

// Driver is the reference entity for identity lookups. The hot ingest
// path never mutates it.
type Driver struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
