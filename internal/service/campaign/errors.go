package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrInvalidInput    = errors.New("invalid campaign input")
	ErrNotFound        = errors.New("campaign not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoRecipients    = errors.New("segment matches no customers")
	ErrAlreadyRunning  = errors.New("campaign is already processing or finished")
)
