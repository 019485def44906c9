package repository

import "errors"

// ErrForeignKey is returned when a write would leave a reference to a row
// that does not exist, or delete a row that is still referenced. References
// between entities never cascade in the store; callers unlink or delete
// dependents first.
var ErrForeignKey = errors.New("foreign key violation")
