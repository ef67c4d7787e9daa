package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("already exists")
	// ErrLocked indicates a write into a locked category or topic.
	ErrLocked = errors.New("locked")
)
