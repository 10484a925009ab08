package session

import "errors"

// Well-known durable storage keys.
const (
	TokenKey = "JWT_TOKEN"
	UserKey  = "USER"
)

// ErrNotFound is returned by Repo.Get when nothing is persisted.
var ErrNotFound = errors.New("session not found")

// Record is the raw persisted form of a Session: the opaque token under TokenKey and the
// serialized identity summary under UserKey.
type Record struct {
	Token string
	User  []byte
}

// Repo is durable storage for the Session.
type Repo interface {
	// Put writes both keys in one step
	Put(rec Record) error

	// Get returns ErrNotFound unless both keys are present
	Get() (*Record, error)

	// Delete removes both keys; deleting nothing is not an error
	Delete() error
}
