package model

import "errors"

// Sentinel kinds for model validation and decoding.
var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrNegativeNumber = errors.New("negative number")
	ErrBadValue       = errors.New("malformed numeric value")
	ErrBadDeduction   = errors.New("malformed deduction")
	ErrBadID          = errors.New("malformed submission id")
)
