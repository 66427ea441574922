package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation or a serialization failure.
	// Both mean the write lost a race and may succeed against fresh state.
	ErrConflict = errors.New("conflict")
)
