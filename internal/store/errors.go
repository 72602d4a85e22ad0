package store

import "errors"

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is attempted from a
	// state that does not allow it. The stored row is left unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateTask is returned when a scheduled task with the same dedupe key
	// already exists for the location.
	ErrDuplicateTask = errors.New("duplicate task")

	// ErrDuplicateUser is returned when the email or API key is already registered.
	ErrDuplicateUser = errors.New("user already exists")
)
