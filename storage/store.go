// Package storage provides the record storage abstraction backing the
// identity and API token stores.
package storage

import "errors"

// ErrNotFound is returned when a record or collection does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for persisted records, grouped into named
// collections ("users", "api_tokens"). Values are opaque byte slices;
// callers own the encoding.
type Store interface {
	// Put creates or replaces the record.
	Put(collection, id string, value []byte) error
	// Get retrieves a record. Returns ErrNotFound when absent.
	Get(collection, id string) ([]byte, error)
	// Delete removes a record. Returns ErrNotFound when absent.
	Delete(collection, id string) error
	// List returns the ids present in a collection, in key order.
	List(collection string) ([]string, error)
	// ForEach calls fn for every record in a collection. A false return
	// from fn stops the iteration early.
	ForEach(collection string, fn func(id string, value []byte) bool) error
}
