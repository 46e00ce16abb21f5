package rolestore

import "errors"

var (
	// ErrSourceUnavailable indicates the backing store could not be
	// reached or read.
	ErrSourceUnavailable = errors.New("rolestore: source unavailable")

	// ErrInvalidRecord indicates a loaded role or user record failed
	// validation before it reached the engine.
	ErrInvalidRecord = errors.New("rolestore: invalid record")
)
