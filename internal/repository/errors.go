package repository

import "errors"

// ErrNotFound is returned when a delete targets a document that no longer
// exists. Callers racing over the same id (user delete vs. eviction) use it
// to tell "someone else already removed it" apart from a real failure.
var ErrNotFound = errors.New("document not found")
