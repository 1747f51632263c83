package index

import "errors"

var (
	// ErrNotFound indicates an unknown stock code.
	ErrNotFound = errors.New("stock not found")

	// ErrInvalidSnapshot indicates input that is not a list of stock records.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrLocked indicates the snapshot lock could not be acquired in time.
	ErrLocked = errors.New("snapshot is locked by another process")
)
