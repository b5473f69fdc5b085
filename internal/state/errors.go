package state

import "errors"

// ErrNotFound is returned for an unknown feature set or feature key. A
// known key holding a null value is not an error.
var ErrNotFound = errors.New("not found")
