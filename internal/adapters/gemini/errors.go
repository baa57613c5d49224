package gemini

import "errors"

var (
	// ErrNoAPIKey is returned by New when no key is configured.
	ErrNoAPIKey = errors.New("gemini: api key is required")
	// ErrEmptyReply means the model returned no text.
	ErrEmptyReply = errors.New("gemini: empty reply")
	// ErrBadReply means the reply did not match the requested JSON shape.
	ErrBadReply = errors.New("gemini: malformed reply")
)
