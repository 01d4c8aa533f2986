// Package store defines the storage boundary consumed by model-backed
// kyks: a filterable, orderable, sliceable query contract plus save and
// delete with integrity-conflict reporting. SQLite is the shipped backend;
// an in-memory implementation backs tests and fixed lists.
package store

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on integrity violations (unique keys,
	// foreign-key restrictions on delete). Callers recover locally by
	// rendering an inline alert; it never crosses the dispatcher.
	ErrConflict = errors.New("integrity conflict")
)

// Record is a persisted entity addressable by primary key. The type label
// names the model class and prefixes the record's stable identifier.
type Record interface {
	PK() int64
	TypeLabel() string
}

// Query is an ordered, filterable view over persisted records. Builder
// methods return derived queries; the receiver is never mutated, so a
// query value can be reused across render passes.
type Query interface {
	// Filter restricts the query to records whose field equals value.
	Filter(field string, value any) Query
	// OrderBy orders by the given fields; a leading '-' means descending.
	OrderBy(fields ...string) Query
	// Count returns the number of matching records.
	Count() (int, error)
	// Slice returns records in [start, end); end < 0 means to the end.
	Slice(start, end int) ([]Record, error)
	// Get returns the record with the given primary key, or ErrNotFound.
	Get(pk int64) (Record, error)
}
