// Package session owns the client-side authentication session: the logged-in
// user, the bearer token, and the computed expiry. It is the single writer of
// durable auth storage and the only component that talks to the auth API.
package session

import (
	"time"

	"github.com/jrsteele09/go-intranet-client/users"
)

// Status reflects the outcome of the most recent asynchronous auth operation.
// It is UI feedback only; whether a session is live is answered by
// Session.Authenticated, never by Status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Session is an immutable snapshot of the store's state. Every transition
// replaces the whole record; no partially updated state is observable.
type Session struct {
	User          *users.User
	Token         string
	SessionExpiry time.Time
	LastLoginTime time.Time
	Status        Status
	Error         string

	// Initialized is false until the store has finished restoring (or
	// failing to restore) persisted credentials. Access decisions must not
	// be made before then.
	Initialized bool
}

// Authenticated reports whether the session holds a live login. User and
// token are always set and cleared together.
func (s Session) Authenticated() bool {
	return s.User != nil && s.Token != ""
}
