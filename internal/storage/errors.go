package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidStatus is returned for an item status outside the workflow.
var ErrInvalidStatus = errors.New("invalid status")
