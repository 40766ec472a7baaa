package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write,
// e.g. registering an email that already has an account.
var ErrConflict = errors.New("already exists")
