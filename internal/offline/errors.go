package offline

import "errors"

var (
	// ErrNotFound is returned when no usable entry exists for an episode id
	ErrNotFound = errors.New("episode not found in offline library")
	// ErrLocked is returned when another process holds the library lock
	ErrLocked = errors.New("offline library is in use by another process")
	// ErrClosed is returned for operations on a closed store
	ErrClosed = errors.New("offline library is closed")
)
