package repository

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyConsumed is returned when a single-use entity (an
	// authorization code, or a refresh token under rotation) was
	// already claimed by another request.
	ErrAlreadyConsumed = errors.New("already consumed")
)
