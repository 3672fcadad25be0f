package repository

import "errors"

// Sentinel kinds for event store errors.
var (
	ErrIndexOutOfRange = errors.New("event index out of range")
	ErrUnknownID       = errors.New("unknown event id")
)
