package todo

import "errors"

var (
	// ErrNotFound is returned when a todo is created on a missing list.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned when an identifier cannot be coerced to an integer.
	ErrInvalidID = errors.New("invalid id")
)
