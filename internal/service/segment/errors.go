package segment

import "errors"

// Sentinel errors for the segment service layer.
var (
	ErrInvalidInput = errors.New("invalid segment input")
	ErrNotFound     = errors.New("segment not found")
)
