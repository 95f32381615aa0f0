// Package storage defines the durable key/value contract the session store
// persists its credentials through. Implementations must detect mutations
// made by other processes sharing the same backing store and surface them via
// OnExternalChange, so a logout anywhere propagates everywhere.
package storage

import "errors"

// Keys reserved for authentication state. Both are written together on login
// and cleared together on logout; the session store is their single writer.
const (
	TokenKey = "auth.token"
	UserKey  = "auth.user"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Event describes an externally observed mutation of a key, i.e. one not
// performed through this Store instance.
type Event struct {
	Key     string
	Removed bool // true when the key was deleted, false when overwritten
}

// Store is a durable string key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Put writes all given pairs as a single durable update.
	Put(values map[string]string) error

	// Delete removes the given keys as a single durable update. Deleting a
	// missing key is not an error.
	Delete(keys ...string) error

	// OnExternalChange registers fn to be called for mutations performed by
	// other writers of the same backing store. fn must not call back into the
	// Store. The returned cancel func unregisters the callback.
	OnExternalChange(fn func(Event)) (cancel func())

	// Close releases watchers and other resources. The Store must not be
	// used afterwards.
	Close() error
}
