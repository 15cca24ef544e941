package store

import "errors"

// Sentinel errors returned by store implementations. Services translate
// them into coded domain errors.
var (
	ErrNotFound      = errors.New("store: resource not found")
	ErrAlreadyExists = errors.New("store: resource already exists")
)

// ErrLastFile is returned when removing a file would leave its manual empty.
var ErrLastFile = errors.New("store: manual must keep at least one file")
