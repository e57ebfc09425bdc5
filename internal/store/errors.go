package store

import "errors"

// ErrNotFound is returned when a record does not exist, or exists but is not
// visible to the requesting user. The two cases are indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint (username, email) would be
// violated.
var ErrConflict = errors.New("already exists")
