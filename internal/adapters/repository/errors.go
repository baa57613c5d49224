package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("user record not found")
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalidID   = errors.New("user id is required")
	ErrClosed      = errors.New("store is closed")
)
