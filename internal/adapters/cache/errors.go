package cache

import "errors"

var (
	// ErrEmptyRoster is returned when a cache is built without users.
	ErrEmptyRoster = errors.New("cache: empty roster")
	// ErrRefreshFailed means no roster user could be fetched.
	ErrRefreshFailed = errors.New("cache: refresh failed for every user")
)
