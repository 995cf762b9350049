package storage

import "errors"

// Sentinel errors for session store operations.
var (
	// ErrSessionBusy is returned when waiting for a session lease is
	// abandoned because the caller's context ended.
	ErrSessionBusy = errors.New("session is busy")

	// ErrInvalidSessionID is returned for an empty session identifier.
	ErrInvalidSessionID = errors.New("invalid session id")
)
