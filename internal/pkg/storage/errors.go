package storage

import "errors"

var (
	// ErrPathEscape means a resolved target path would fall outside the
	// configured root. Always fatal, never retried; logged as a
	// security-relevant event.
	ErrPathEscape = errors.New("storage: path escapes storage root")
	// ErrNotFound means the referenced file does not exist.
	ErrNotFound = errors.New("storage: file not found")
	// ErrValidation means the caller-supplied input was rejected before any
	// filesystem access.
	ErrValidation = errors.New("storage: invalid input")
)
