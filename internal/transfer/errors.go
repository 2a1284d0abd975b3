package transfer

import "errors"

var (
	// ErrNilMapping is returned when a run is started without a mapping.
	ErrNilMapping = errors.New("transfer: mapping configuration is nil")
	// ErrMissingServerID is returned when an existing-server mode is
	// selected without naming the server.
	ErrMissingServerID = errors.New("transfer: target server id required")
	// ErrAlreadyRunning is returned when a second run is started while one
	// is still in flight.
	ErrAlreadyRunning = errors.New("transfer: a run is already in progress")
)
