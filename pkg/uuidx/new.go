// Package uuidx generates the time-ordered identifiers used for streams and relay events.
package uuidx

import "github.com/google/uuid"

// New returns a version 7 UUID. It panics when the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString is New formatted in canonical form.
func NewString() string {
	return New().String()
}

// Parse parses s and rejects anything that is not a version 7 UUID.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, err
	}
	if id.Version() != 7 {
		return uuid.Nil, ErrNotTimeOrdered
	}
	return id, nil
}

// ErrNotTimeOrdered is returned by Parse for UUIDs of another version.
var ErrNotTimeOrdered = uuidError("uuid is not a version 7 uuid")

type uuidError string

func (e uuidError) Error() string { return string(e) }
