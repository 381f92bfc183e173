package repository

import "errors"

// ErrNotFound is returned when a lookup matches no document. Callers that
// treat "absent" as a normal state check for it with errors.Is.
var ErrNotFound = errors.New("not found")
