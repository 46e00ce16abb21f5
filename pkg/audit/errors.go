package audit

import "errors"

var (
	// ErrSinkUnavailable indicates the sink rejected a delivery.
	ErrSinkUnavailable = errors.New("audit: sink is unavailable")

	// ErrRecorderClosed indicates the recorder has been shut down.
	ErrRecorderClosed = errors.New("audit: recorder is closed")
)
