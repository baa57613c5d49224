package service

import "errors"

// Sentinel kinds returned by Service.
var (
	ErrUnknownUser         = errors.New("unknown user")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrBadWindow           = errors.New("window must not be negative")
	ErrBadOrder            = errors.New("order must be newest or oldest")
)
