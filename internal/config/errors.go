package config

import "errors"

// Sentinel error kinds for this package. Roster problems wrap both
// ErrInvalidConfig and ErrInvalidRoster.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidRoster = errors.New("invalid roster")
	ErrLoadConfig    = errors.New("load config failed")
)
